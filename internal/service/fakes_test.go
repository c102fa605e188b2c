package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

// In-memory фейки стораджей для сервисных тестов. Транзакционный
// хендл игнорируется: сериализацию проверяет база, не фейк.

type fakeUserStore struct {
	users  map[int64]*domain.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]*domain.User{}, nextID: 1}
}

func (f *fakeUserStore) addUser(username, email string) *domain.User {
	user := &domain.User{ID: f.nextID, Username: username, Email: email, CreatedAt: time.Now()}
	f.users[user.ID] = user
	f.nextID++
	return user
}

func (f *fakeUserStore) Create(_ context.Context, user *domain.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return fmt.Errorf("%w: email taken", domain.ErrConflict)
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
	}
	return user, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, email)
}

func (f *fakeUserStore) GetUsernames(_ context.Context, ids []int64) (map[int64]string, error) {
	names := map[int64]string{}
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			names[id] = user.Username
		}
	}
	return names, nil
}

type fakeBucketStore struct {
	buckets map[int64]*domain.Bucket
	nextID  int64

	// grants нужен GetAccessible: в SQL прямые гранты отбирает join
	// на permissions, фейк смотрит в стор прав напрямую.
	grants *fakePermissionStore
}

func newFakeBucketStore() *fakeBucketStore {
	return &fakeBucketStore{buckets: map[int64]*domain.Bucket{}, nextID: 1}
}

func (f *fakeBucketStore) addBucket(b domain.Bucket) *domain.Bucket {
	b.ID = f.nextID
	f.nextID++
	bucket := b
	f.buckets[bucket.ID] = &bucket
	return &bucket
}

func (f *fakeBucketStore) Create(_ context.Context, bucket *domain.Bucket) error {
	bucket.ID = f.nextID
	f.nextID++
	bucket.CreatedAt = time.Now()
	stored := *bucket
	f.buckets[bucket.ID] = &stored
	return nil
}

func (f *fakeBucketStore) GetByID(_ context.Context, id int64) (*domain.Bucket, error) {
	bucket, ok := f.buckets[id]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %d", domain.ErrNotFound, id)
	}
	return bucket, nil
}

func (f *fakeBucketStore) GetByNameAndOwner(_ context.Context, name string, ownerID int64, parentID *int64) (*domain.Bucket, error) {
	for _, bucket := range f.buckets {
		if bucket.Name != name || bucket.OwnerID != ownerID {
			continue
		}
		if (bucket.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID != nil && *bucket.ParentID != *parentID {
			continue
		}
		return bucket, nil
	}
	return nil, nil
}

func (f *fakeBucketStore) GetChildren(_ context.Context, parentID int64) ([]domain.Bucket, error) {
	var children []domain.Bucket
	for _, bucket := range f.buckets {
		if bucket.ParentID != nil && *bucket.ParentID == parentID {
			children = append(children, *bucket)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (f *fakeBucketStore) GetAncestorChain(_ context.Context, bucketID int64) ([]domain.Bucket, error) {
	var chain []domain.Bucket
	current, ok := f.buckets[bucketID]
	if !ok {
		return nil, fmt.Errorf("%w: bucket %d", domain.ErrNotFound, bucketID)
	}
	for current.ParentID != nil {
		parent, ok := f.buckets[*current.ParentID]
		if !ok {
			break
		}
		chain = append(chain, *parent)
		current = parent
	}
	return chain, nil
}

func (f *fakeBucketStore) GetAccessible(_ context.Context, userID int64) ([]domain.Bucket, error) {
	var accessible []domain.Bucket
	for _, bucket := range f.buckets {
		if bucket.OwnerID == userID || f.hasDirectGrant(userID, bucket.ID) {
			accessible = append(accessible, *bucket)
		}
	}
	sort.Slice(accessible, func(i, j int) bool { return accessible[i].ID < accessible[j].ID })
	return accessible, nil
}

func (f *fakeBucketStore) hasDirectGrant(userID, bucketID int64) bool {
	if f.grants == nil {
		return false
	}
	_, ok := f.grants.grants[grantKey{userID, domain.TargetBucket, bucketID}]
	return ok
}

type itemKey struct {
	bucketID int64
	key      string
}

type fakeItemStore struct {
	items  map[int64]*domain.Item
	byKey  map[itemKey]int64
	nextID int64
}

func newFakeItemStore() *fakeItemStore {
	return &fakeItemStore{items: map[int64]*domain.Item{}, byKey: map[itemKey]int64{}, nextID: 1}
}

func (f *fakeItemStore) addItem(i domain.Item) *domain.Item {
	i.ID = f.nextID
	f.nextID++
	item := i
	f.items[item.ID] = &item
	f.byKey[itemKey{item.BucketID, item.Key}] = item.ID
	return &item
}

func (f *fakeItemStore) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", domain.ErrNotFound, id)
	}
	return item, nil
}

func (f *fakeItemStore) GetByBucketAndKey(_ context.Context, _ *sqlx.Tx, bucketID int64, key string) (*domain.Item, error) {
	id, ok := f.byKey[itemKey{bucketID, key}]
	if !ok {
		return nil, nil
	}
	return f.items[id], nil
}

func (f *fakeItemStore) Create(_ context.Context, _ *sqlx.Tx, item *domain.Item) error {
	item.ID = f.nextID
	f.nextID++
	item.CreatedAt = time.Now()
	stored := *item
	f.items[item.ID] = &stored
	f.byKey[itemKey{item.BucketID, item.Key}] = item.ID
	return nil
}

func (f *fakeItemStore) LockForUpdate(_ context.Context, _ *sqlx.Tx, id int64) (*domain.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: item %d", domain.ErrNotFound, id)
	}
	return item, nil
}

func (f *fakeItemStore) SetDefaultApprover(_ context.Context, _ *sqlx.Tx, itemID int64, approverID int64) error {
	item, ok := f.items[itemID]
	if !ok {
		return fmt.Errorf("%w: item %d", domain.ErrNotFound, itemID)
	}
	item.DefaultApproverID = &approverID
	return nil
}

func (f *fakeItemStore) GetByBucket(_ context.Context, bucketID int64) ([]domain.Item, error) {
	var items []domain.Item
	for _, item := range f.items {
		if item.BucketID == bucketID {
			items = append(items, *item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

type fakeVersionStore struct {
	versions map[uuid.UUID]*domain.ObjectVersion
	order    []uuid.UUID
}

func newFakeVersionStore() *fakeVersionStore {
	return &fakeVersionStore{versions: map[uuid.UUID]*domain.ObjectVersion{}}
}

func (f *fakeVersionStore) addVersion(v domain.ObjectVersion) *domain.ObjectVersion {
	version := v
	f.versions[version.ID] = &version
	f.order = append(f.order, version.ID)
	return &version
}

func (f *fakeVersionStore) Create(_ context.Context, _ *sqlx.Tx, version *domain.ObjectVersion) error {
	version.CreatedAt = time.Now()
	stored := *version
	f.versions[version.ID] = &stored
	f.order = append(f.order, version.ID)
	return nil
}

func (f *fakeVersionStore) GetByID(_ context.Context, _ *sqlx.Tx, id uuid.UUID) (*domain.ObjectVersion, error) {
	version, ok := f.versions[id]
	if !ok {
		return nil, fmt.Errorf("%w: version %s", domain.ErrNotFound, id)
	}
	copied := *version
	return &copied, nil
}

func (f *fakeVersionStore) GetNewest(_ context.Context, _ *sqlx.Tx, itemID int64) (*domain.ObjectVersion, error) {
	for i := len(f.order) - 1; i >= 0; i-- {
		if v := f.versions[f.order[i]]; v.ItemID == itemID {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeVersionStore) GetLatestApproved(_ context.Context, itemID int64) (*domain.ObjectVersion, error) {
	for _, v := range f.versions {
		if v.ItemID == itemID && v.IsLatest && v.Status == domain.VersionApproved {
			copied := *v
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: no approved version for item %d", domain.ErrNotFound, itemID)
}

func (f *fakeVersionStore) GetApprovedByID(_ context.Context, itemID int64, versionID uuid.UUID) (*domain.ObjectVersion, error) {
	v, ok := f.versions[versionID]
	if !ok || v.ItemID != itemID || v.Status != domain.VersionApproved {
		return nil, fmt.Errorf("%w: version %s not found or not approved", domain.ErrNotFound, versionID)
	}
	copied := *v
	return &copied, nil
}

func (f *fakeVersionStore) DemoteLatest(_ context.Context, _ *sqlx.Tx, itemID int64) error {
	for _, v := range f.versions {
		if v.ItemID == itemID && v.IsLatest {
			v.IsLatest = false
		}
	}
	return nil
}

func (f *fakeVersionStore) MarkApprovedLatest(_ context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	v, ok := f.versions[id]
	if !ok {
		return fmt.Errorf("%w: version %s", domain.ErrNotFound, id)
	}
	v.Status = domain.VersionApproved
	v.IsLatest = true
	return nil
}

func (f *fakeVersionStore) MarkRejected(_ context.Context, _ *sqlx.Tx, id uuid.UUID) error {
	v, ok := f.versions[id]
	if !ok {
		return fmt.Errorf("%w: version %s", domain.ErrNotFound, id)
	}
	v.Status = domain.VersionRejected
	v.IsLatest = false
	return nil
}

func (f *fakeVersionStore) ListByItem(_ context.Context, itemID int64) ([]domain.ObjectVersion, error) {
	var versions []domain.ObjectVersion
	for i := len(f.order) - 1; i >= 0; i-- {
		if v := f.versions[f.order[i]]; v.ItemID == itemID {
			versions = append(versions, *v)
		}
	}
	return versions, nil
}

// latestFor — вспомогательная проверка инварианта в тестах.
func (f *fakeVersionStore) latestFor(itemID int64) []*domain.ObjectVersion {
	var latest []*domain.ObjectVersion
	for _, v := range f.versions {
		if v.ItemID == itemID && v.IsLatest {
			latest = append(latest, v)
		}
	}
	return latest
}

type grantKey struct {
	userID     int64
	targetType domain.TargetType
	targetID   int64
}

type fakePermissionStore struct {
	grants map[grantKey]*domain.Permission
	nextID int64
}

func newFakePermissionStore() *fakePermissionStore {
	return &fakePermissionStore{grants: map[grantKey]*domain.Permission{}, nextID: 1}
}

func (f *fakePermissionStore) grant(userID int64, target domain.Target, t domain.PermissionType) {
	p := &domain.Permission{ID: f.nextID, UserID: userID, PermissionType: t}
	f.nextID++
	switch target.Type {
	case domain.TargetBucket:
		p.BucketID = &target.ID
	case domain.TargetItem:
		p.ItemID = &target.ID
	}
	f.grants[grantKey{userID, target.Type, target.ID}] = p
}

func (f *fakePermissionStore) GetForTarget(_ context.Context, userID int64, target domain.Target) (*domain.Permission, error) {
	p, ok := f.grants[grantKey{userID, target.Type, target.ID}]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (f *fakePermissionStore) Create(_ context.Context, permission *domain.Permission) error {
	permission.ID = f.nextID
	f.nextID++
	target := domain.Target{Type: domain.TargetBucket}
	if permission.BucketID != nil {
		target.ID = *permission.BucketID
	} else if permission.ItemID != nil {
		target = domain.Target{Type: domain.TargetItem, ID: *permission.ItemID}
	}
	f.grants[grantKey{permission.UserID, target.Type, target.ID}] = permission
	return nil
}

func (f *fakePermissionStore) CreateTx(ctx context.Context, _ *sqlx.Tx, permission *domain.Permission) error {
	return f.Create(ctx, permission)
}

func (f *fakePermissionStore) UpdateType(_ context.Context, id int64, permissionType domain.PermissionType) error {
	for _, p := range f.grants {
		if p.ID == id {
			p.PermissionType = permissionType
			return nil
		}
	}
	return fmt.Errorf("%w: permission %d", domain.ErrNotFound, id)
}

func (f *fakePermissionStore) Delete(_ context.Context, userID int64, target domain.Target) error {
	key := grantKey{userID, target.Type, target.ID}
	if _, ok := f.grants[key]; !ok {
		return fmt.Errorf("%w: no grant for user %d", domain.ErrNotFound, userID)
	}
	delete(f.grants, key)
	return nil
}

type fakeApproverStore struct {
	groups  map[int64]*domain.Approver
	members map[int64][]int64
	nextID  int64
}

func newFakeApproverStore() *fakeApproverStore {
	return &fakeApproverStore{groups: map[int64]*domain.Approver{}, members: map[int64][]int64{}, nextID: 1}
}

func (f *fakeApproverStore) addGroup(g domain.Approver, memberIDs []int64) *domain.Approver {
	g.ID = f.nextID
	f.nextID++
	group := g
	f.groups[group.ID] = &group
	f.members[group.ID] = append([]int64{}, memberIDs...)
	return &group
}

func (f *fakeApproverStore) CreateWithMembers(_ context.Context, approver *domain.Approver, memberIDs []int64) error {
	approver.ID = f.nextID
	f.nextID++
	approver.CreatedAt = time.Now()
	stored := *approver
	f.groups[approver.ID] = &stored
	f.members[approver.ID] = append([]int64{}, memberIDs...)
	return nil
}

func (f *fakeApproverStore) CreateTx(ctx context.Context, _ *sqlx.Tx, approver *domain.Approver, memberIDs []int64) error {
	return f.CreateWithMembers(ctx, approver, memberIDs)
}

func (f *fakeApproverStore) GetByID(_ context.Context, _ *sqlx.Tx, id int64) (*domain.Approver, error) {
	group, ok := f.groups[id]
	if !ok {
		return nil, fmt.Errorf("%w: approver group %d", domain.ErrNotFound, id)
	}
	return group, nil
}

func (f *fakeApproverStore) GetMemberIDs(_ context.Context, _ *sqlx.Tx, approverID int64) ([]int64, error) {
	return append([]int64{}, f.members[approverID]...), nil
}

func (f *fakeApproverStore) GetGroupsForUser(_ context.Context, userID int64) ([]domain.Approver, error) {
	var groups []domain.Approver
	for id, memberIDs := range f.members {
		for _, memberID := range memberIDs {
			if memberID == userID {
				groups = append(groups, *f.groups[id])
				break
			}
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups, nil
}

func (f *fakeApproverStore) GetGroupIDsForUserTx(ctx context.Context, _ *sqlx.Tx, userID int64) ([]int64, error) {
	groups, err := f.GetGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

func (f *fakeApproverStore) GetNamesForTarget(_ context.Context, target domain.Target) ([]string, error) {
	var names []string
	for _, group := range f.groups {
		switch target.Type {
		case domain.TargetBucket:
			if group.BucketID != nil && *group.BucketID == target.ID {
				names = append(names, group.Name)
			}
		case domain.TargetItem:
			if group.ItemID != nil && *group.ItemID == target.ID {
				names = append(names, group.Name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeApproverStore) GetMemberUserIDsForGroups(_ context.Context, groupIDs []int64) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, groupID := range groupIDs {
		for _, memberID := range f.members[groupID] {
			if !seen[memberID] {
				seen[memberID] = true
				ids = append(ids, memberID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type fakeApprovalStore struct {
	approvals []*domain.Approval
	nextID    int64

	// groupMembers нужен ExistsPendingForUser: в SQL членство проверяет
	// подзапрос, фейк держит копию.
	groupMembers map[int64][]int64
}

func newFakeApprovalStore() *fakeApprovalStore {
	return &fakeApprovalStore{nextID: 1, groupMembers: map[int64][]int64{}}
}

func (f *fakeApprovalStore) Create(_ context.Context, _ *sqlx.Tx, approval *domain.Approval) error {
	approval.ID = f.nextID
	f.nextID++
	approval.CreatedAt = time.Now()
	stored := *approval
	f.approvals = append(f.approvals, &stored)
	return nil
}

func (f *fakeApprovalStore) FindPendingForUser(_ context.Context, _ *sqlx.Tx, versionID uuid.UUID, groupIDs []int64, userID int64) (*domain.Approval, error) {
	inGroups := map[int64]bool{}
	for _, id := range groupIDs {
		inGroups[id] = true
	}
	// Именная строка выигрывает у общегрупповой.
	var groupWide *domain.Approval
	for _, a := range f.approvals {
		if a.ObjectVersionID != versionID || a.Decision != domain.DecisionPending || !inGroups[a.ApproverGroupID] {
			continue
		}
		if a.UserID != nil && *a.UserID == userID {
			copied := *a
			return &copied, nil
		}
		if a.UserID == nil && groupWide == nil {
			groupWide = a
		}
	}
	if groupWide != nil {
		copied := *groupWide
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeApprovalStore) Decide(_ context.Context, _ *sqlx.Tx, approvalID int64, userID int64, decision domain.Decision, comments string) error {
	for _, a := range f.approvals {
		if a.ID == approvalID {
			a.Decision = decision
			a.UserID = &userID
			a.Comments = &comments
			return nil
		}
	}
	return fmt.Errorf("%w: approval %d", domain.ErrNotFound, approvalID)
}

func (f *fakeApprovalStore) CountPending(_ context.Context, _ *sqlx.Tx, versionID uuid.UUID, groupID int64) (int, error) {
	count := 0
	for _, a := range f.approvals {
		if a.ObjectVersionID == versionID && a.ApproverGroupID == groupID && a.Decision == domain.DecisionPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeApprovalStore) ExistsPendingForUser(_ context.Context, versionID uuid.UUID, userID int64) (bool, error) {
	for _, a := range f.approvals {
		if a.ObjectVersionID != versionID || a.Decision != domain.DecisionPending {
			continue
		}
		if a.UserID != nil && *a.UserID == userID {
			return true, nil
		}
		if a.UserID == nil {
			for _, memberID := range f.groupMembers[a.ApproverGroupID] {
				if memberID == userID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func (f *fakeApprovalStore) ListByVersion(_ context.Context, versionID uuid.UUID) ([]domain.Approval, error) {
	var approvals []domain.Approval
	for _, a := range f.approvals {
		if a.ObjectVersionID == versionID {
			approvals = append(approvals, *a)
		}
	}
	return approvals, nil
}
