package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
	"vaultdrive/internal/notify"
	"vaultdrive/internal/service/s3"
)

// VersionService управляет жизненным циклом версий: загрузка,
// согласование, отклонение, выдача содержимого.
// Мутации идут в одной транзакции под FOR UPDATE на строке item,
// поэтому конкурентные писатели выстраиваются в очередь и инвариант
// «не более одной latest-версии, и она approved» сохраняется.
type VersionService struct {
	db              *sqlx.DB
	bucketStore     BucketStore
	itemStore       ItemStore
	versionStore    VersionStore
	approverStore   ApproverStore
	approvalStore   ApprovalStore
	permissionStore PermissionStore
	permissions     *PermissionService
	approvers       *ApproverService
	storage         s3.Storage
	notifier        notify.Notifier

	// strictQuorum: unanimous-группа утверждает версию только когда не
	// осталось pending-строк. false воспроизводит поведение
	// «первый согласующий решает за всех».
	strictQuorum bool
}

func NewVersionService(
	db *sqlx.DB,
	bucketStore BucketStore,
	itemStore ItemStore,
	versionStore VersionStore,
	approverStore ApproverStore,
	approvalStore ApprovalStore,
	permissionStore PermissionStore,
	permissions *PermissionService,
	approvers *ApproverService,
	storage s3.Storage,
	notifier notify.Notifier,
	strictQuorum bool,
) *VersionService {
	return &VersionService{
		db:              db,
		bucketStore:     bucketStore,
		itemStore:       itemStore,
		versionStore:    versionStore,
		approverStore:   approverStore,
		approvalStore:   approvalStore,
		permissionStore: permissionStore,
		permissions:     permissions,
		approvers:       approvers,
		storage:         storage,
		notifier:        notifier,
		strictQuorum:    strictQuorum,
	}
}

// Fingerprint считает отпечаток содержимого (hex md5, как etag).
func Fingerprint(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Upload создаёт новую версию item по ключу внутри бакета. Item создаётся
// при первой загрузке и наследует настройки согласования бакета.
// Авторизация: write на бакет, а для существующего item достаточно
// гранта write на сам item.
func (s *VersionService) Upload(ctx context.Context, uploaderID int64, bucketID int64, key string, data []byte) (*domain.ObjectVersion, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: object key is required", domain.ErrValidation)
	}

	bucket, err := s.bucketStore.GetByID(ctx, bucketID)
	if err != nil {
		return nil, err
	}

	bucketWrite, err := s.permissions.HasPermission(ctx, uploaderID, domain.Target{Type: domain.TargetBucket, ID: bucketID}, domain.PermissionWrite)
	if err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(data)

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	item, err := s.itemStore.GetByBucketAndKey(ctx, tx, bucketID, key)
	if err != nil {
		return nil, err
	}
	if item == nil {
		// Создание item требует write на бакет.
		if !bucketWrite {
			return nil, fmt.Errorf("%w: uploading requires write access", domain.ErrForbidden)
		}
		item = &domain.Item{
			BucketID:          bucketID,
			Key:               key,
			OwnerID:           uploaderID,
			VersioningEnabled: true,
			RequiresApproval:  bucket.RequiresApproval,
			DefaultApproverID: bucket.DefaultApproverID,
		}
		if err := s.itemStore.Create(ctx, tx, item); err != nil {
			return nil, err
		}
		// Владелец получает явный грант на item, как при создании бакета.
		ownerGrant := &domain.Permission{
			UserID:         uploaderID,
			ItemID:         &item.ID,
			PermissionType: domain.PermissionWrite,
		}
		if err := s.permissionStore.CreateTx(ctx, tx, ownerGrant); err != nil {
			return nil, err
		}
	} else {
		if !bucketWrite {
			itemWrite, err := s.permissions.HasPermission(ctx, uploaderID, domain.Target{Type: domain.TargetItem, ID: item.ID}, domain.PermissionWrite)
			if err != nil {
				return nil, err
			}
			if !itemWrite {
				return nil, fmt.Errorf("%w: uploading requires write access", domain.ErrForbidden)
			}
		}
		// Блокируем строку item: конкурентные загрузки по очереди.
		item, err = s.itemStore.LockForUpdate(ctx, tx, item.ID)
		if err != nil {
			return nil, err
		}
	}

	newest, err := s.versionStore.GetNewest(ctx, tx, item.ID)
	if err != nil {
		return nil, err
	}
	if newest != nil && newest.ContentFingerprint == fingerprint {
		return nil, fmt.Errorf("%w: content is identical to the newest version", domain.ErrNoChanges)
	}

	requiresApproval := item.RequiresApproval || bucket.RequiresApproval

	version := &domain.ObjectVersion{
		ID:                 uuid.New(),
		ItemID:             item.ID,
		UploaderID:         uploaderID,
		SizeBytes:          int64(len(data)),
		ContentFingerprint: fingerprint,
	}

	var pendingGroupID *int64

	if !requiresApproval {
		version.Status = domain.VersionApproved
		version.IsLatest = true
		if err := s.versionStore.DemoteLatest(ctx, tx, item.ID); err != nil {
			return nil, err
		}
		if err := s.versionStore.Create(ctx, tx, version); err != nil {
			return nil, err
		}
	} else {
		group, err := s.effectiveApproverGroup(ctx, tx, bucket, item)
		if err != nil {
			return nil, err
		}
		version.ApproverGroupID = &group.ID

		ownerUpload := uploaderID == item.OwnerID || uploaderID == bucket.OwnerID
		if bucket.OwnerAutoApproves && ownerUpload {
			version.Status = domain.VersionApproved
			version.IsLatest = true
			if err := s.versionStore.DemoteLatest(ctx, tx, item.ID); err != nil {
				return nil, err
			}
			if err := s.versionStore.Create(ctx, tx, version); err != nil {
				return nil, err
			}
			comment := "Auto-approved by owner"
			approval := &domain.Approval{
				ObjectVersionID: version.ID,
				ApproverGroupID: group.ID,
				UserID:          &uploaderID,
				Decision:        domain.DecisionApproved,
				Comments:        &comment,
			}
			if err := s.approvalStore.Create(ctx, tx, approval); err != nil {
				return nil, err
			}
		} else {
			version.Status = domain.VersionPending
			version.IsLatest = false
			if err := s.versionStore.Create(ctx, tx, version); err != nil {
				return nil, err
			}
			if err := s.materializeApprovals(ctx, tx, version, group); err != nil {
				return nil, err
			}
			pendingGroupID = &group.ID
		}
	}

	// Содержимое пишем до commit: если хранилище недоступно,
	// метаданные версии не появятся.
	if err := s.storage.WriteContent(ctx, bucketID, item.Key, version.ID.String(), data); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if pendingGroupID != nil {
		s.notifyPending(ctx, version.ID, item.Key, *pendingGroupID)
	}

	return version, nil
}

// effectiveApproverGroup выбирает группу согласующих: item, затем бакет,
// иначе создаёт singleton-группу из владельца и запоминает её на item.
func (s *VersionService) effectiveApproverGroup(ctx context.Context, tx *sqlx.Tx, bucket *domain.Bucket, item *domain.Item) (*domain.Approver, error) {
	if item.DefaultApproverID != nil {
		return s.approverStore.GetByID(ctx, tx, *item.DefaultApproverID)
	}
	if bucket.DefaultApproverID != nil {
		return s.approverStore.GetByID(ctx, tx, *bucket.DefaultApproverID)
	}

	group, err := s.approvers.CreateOwnerGroup(ctx, tx, domain.Target{Type: domain.TargetItem, ID: item.ID}, item.OwnerID, item.Key)
	if err != nil {
		return nil, err
	}
	if err := s.itemStore.SetDefaultApprover(ctx, tx, item.ID, group.ID); err != nil {
		return nil, err
	}
	item.DefaultApproverID = &group.ID

	return group, nil
}

// materializeApprovals создаёт pending-строки по правилу группы:
// по строке на участника для unanimous, одна общегрупповая для standard.
func (s *VersionService) materializeApprovals(ctx context.Context, tx *sqlx.Tx, version *domain.ObjectVersion, group *domain.Approver) error {
	if group.ApprovalType == domain.ApprovalUnanimous {
		memberIDs, err := s.approverStore.GetMemberIDs(ctx, tx, group.ID)
		if err != nil {
			return err
		}
		for _, memberID := range memberIDs {
			memberID := memberID
			approval := &domain.Approval{
				ObjectVersionID: version.ID,
				ApproverGroupID: group.ID,
				UserID:          &memberID,
				Decision:        domain.DecisionPending,
			}
			if err := s.approvalStore.Create(ctx, tx, approval); err != nil {
				return err
			}
		}
		return nil
	}

	approval := &domain.Approval{
		ObjectVersionID: version.ID,
		ApproverGroupID: group.ID,
		UserID:          nil,
		Decision:        domain.DecisionPending,
	}
	return s.approvalStore.Create(ctx, tx, approval)
}

func (s *VersionService) notifyPending(ctx context.Context, versionID uuid.UUID, itemKey string, groupID int64) {
	memberIDs, err := s.approverStore.GetMemberUserIDsForGroups(ctx, []int64{groupID})
	if err != nil {
		log.Printf("[Upload] Failed to resolve approvers for notification: %v", err)
		return
	}
	if err := s.notifier.VersionPending(ctx, versionID, itemKey, memberIDs); err != nil {
		log.Printf("[Upload] Failed to notify approvers: %v", err)
	}
}

// Approve фиксирует согласие и, когда кворум собран, передаёт версии
// latest-флаг. Повторное согласование утверждённой версии — успех без
// побочных эффектов.
func (s *VersionService) Approve(ctx context.Context, actorID int64, versionID uuid.UUID, comments string) (*domain.ObjectVersion, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := s.versionStore.GetByID(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status == domain.VersionApproved {
		return version, nil
	}
	if version.Status == domain.VersionRejected {
		return nil, fmt.Errorf("%w: version is already rejected", domain.ErrConflict)
	}

	item, err := s.itemStore.LockForUpdate(ctx, tx, version.ItemID)
	if err != nil {
		return nil, err
	}

	if version.UploaderID == actorID && item.OwnerID != actorID {
		return nil, fmt.Errorf("%w: cannot approve your own version unless you are the owner", domain.ErrForbidden)
	}

	approval, err := s.eligiblePendingApproval(ctx, tx, versionID, actorID)
	if err != nil {
		return nil, err
	}

	if comments == "" {
		comments = "Approved"
	}
	if err := s.approvalStore.Decide(ctx, tx, approval.ID, actorID, domain.DecisionApproved, comments); err != nil {
		return nil, err
	}

	promote := true
	if s.strictQuorum {
		group, err := s.approverStore.GetByID(ctx, tx, approval.ApproverGroupID)
		if err != nil {
			return nil, err
		}
		if group.ApprovalType == domain.ApprovalUnanimous {
			pending, err := s.approvalStore.CountPending(ctx, tx, versionID, group.ID)
			if err != nil {
				return nil, err
			}
			promote = pending == 0
		}
	}

	if promote {
		if err := s.versionStore.DemoteLatest(ctx, tx, item.ID); err != nil {
			return nil, err
		}
		if err := s.versionStore.MarkApprovedLatest(ctx, tx, versionID); err != nil {
			return nil, err
		}
		version.Status = domain.VersionApproved
		version.IsLatest = true
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return version, nil
}

// Reject фиксирует отказ. Версия становится rejected, её содержимое
// удаляется из хранилища после commit; ошибка удаления только логируется,
// источником истины остаются метаданные.
func (s *VersionService) Reject(ctx context.Context, actorID int64, versionID uuid.UUID, comments string) (*domain.ObjectVersion, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	version, err := s.versionStore.GetByID(ctx, tx, versionID)
	if err != nil {
		return nil, err
	}
	if version.Status == domain.VersionRejected {
		return version, nil
	}
	if version.Status == domain.VersionApproved {
		return nil, fmt.Errorf("%w: version is already approved", domain.ErrConflict)
	}

	item, err := s.itemStore.LockForUpdate(ctx, tx, version.ItemID)
	if err != nil {
		return nil, err
	}

	approval, err := s.eligiblePendingApproval(ctx, tx, versionID, actorID)
	if err != nil {
		return nil, err
	}

	if comments == "" {
		comments = "Rejected"
	}
	if err := s.approvalStore.Decide(ctx, tx, approval.ID, actorID, domain.DecisionRejected, comments); err != nil {
		return nil, err
	}

	if err := s.versionStore.MarkRejected(ctx, tx, versionID); err != nil {
		return nil, err
	}
	version.Status = domain.VersionRejected
	version.IsLatest = false

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.storage.DeleteContent(ctx, item.BucketID, item.Key, versionID.String()); err != nil {
		log.Printf("[Reject] Failed to delete content of version %s: %v", versionID, err)
	}

	return version, nil
}

// eligiblePendingApproval находит pending-строку, которую действующий
// пользователь вправе решить, или возвращает ErrForbidden.
func (s *VersionService) eligiblePendingApproval(ctx context.Context, tx *sqlx.Tx, versionID uuid.UUID, actorID int64) (*domain.Approval, error) {
	groupIDs, err := s.approverStore.GetGroupIDsForUserTx(ctx, tx, actorID)
	if err != nil {
		return nil, err
	}

	approval, err := s.approvalStore.FindPendingForUser(ctx, tx, versionID, groupIDs, actorID)
	if err != nil {
		return nil, err
	}
	if approval == nil {
		return nil, fmt.Errorf("%w: no pending approval for this user", domain.ErrForbidden)
	}

	return approval, nil
}

// GetContent выдаёт содержимое утверждённой версии. versionID == nil
// означает текущую latest-версию.
func (s *VersionService) GetContent(ctx context.Context, actorID int64, itemID int64, versionID *uuid.UUID) (*domain.ObjectVersion, s3.S3Object, error) {
	item, err := s.itemStore.GetByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}

	allowed, err := s.permissions.HasPermission(ctx, actorID, domain.Target{Type: domain.TargetItem, ID: itemID}, domain.PermissionRead)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, nil, fmt.Errorf("%w: downloading requires read access", domain.ErrForbidden)
	}

	var version *domain.ObjectVersion
	if versionID == nil {
		version, err = s.versionStore.GetLatestApproved(ctx, itemID)
	} else {
		version, err = s.versionStore.GetApprovedByID(ctx, itemID, *versionID)
	}
	if err != nil {
		return nil, nil, err
	}

	obj, err := s.storage.ReadContent(ctx, item.BucketID, item.Key, version.ID.String())
	if err != nil {
		return nil, nil, err
	}

	return version, obj, nil
}
