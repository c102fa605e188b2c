package service

import (
	"context"
	"fmt"

	"vaultdrive/internal/domain"
)

// ContentService собирает отфильтрованное по правам содержимое бакетов.
// Только чтение, вне транзакций: согласованная с in-flight записями
// картина не гарантируется и не требуется.
type ContentService struct {
	bucketStore   BucketStore
	itemStore     ItemStore
	versionStore  VersionStore
	approvalStore ApprovalStore
	approverStore ApproverStore
	userStore     UserStore
	permissions   *PermissionService
}

func NewContentService(
	bucketStore BucketStore,
	itemStore ItemStore,
	versionStore VersionStore,
	approvalStore ApprovalStore,
	approverStore ApproverStore,
	userStore UserStore,
	permissions *PermissionService,
) *ContentService {
	return &ContentService{
		bucketStore:   bucketStore,
		itemStore:     itemStore,
		versionStore:  versionStore,
		approvalStore: approvalStore,
		approverStore: approverStore,
		userStore:     userStore,
		permissions:   permissions,
	}
}

// ListContents возвращает содержимое бакета. bucketID == nil — корневой вид:
// только верхние из достижимых бакетов, чтобы не дублировать в корне каждый
// доступный потомок. Отказ в чтении конкретного бакета отдаёт пустой
// результат, а не ошибку.
func (s *ContentService) ListContents(ctx context.Context, userID int64, bucketID *int64) (*domain.BucketContent, error) {
	if bucketID == nil {
		return s.listRoot(ctx, userID)
	}
	return s.listBucket(ctx, userID, *bucketID)
}

func (s *ContentService) listRoot(ctx context.Context, userID int64) (*domain.BucketContent, error) {
	accessible, err := s.bucketStore.GetAccessible(ctx, userID)
	if err != nil {
		return nil, err
	}

	reachable := make(map[int64]bool, len(accessible))
	for _, bucket := range accessible {
		reachable[bucket.ID] = true
	}

	content := &domain.BucketContent{
		CurrentLocation: domain.Location{Name: "root"},
		Folders:         []domain.FolderEntry{},
		Files:           []domain.FileEntry{},
	}

	for _, bucket := range accessible {
		// Пропускаем бакеты, чей родитель и так достижим: они
		// появятся при навигации внутрь.
		if bucket.ParentID != nil && reachable[*bucket.ParentID] {
			continue
		}
		entry, err := s.folderEntry(ctx, userID, bucket)
		if err != nil {
			return nil, err
		}
		content.Folders = append(content.Folders, entry)
	}

	return content, nil
}

func (s *ContentService) listBucket(ctx context.Context, userID int64, bucketID int64) (*domain.BucketContent, error) {
	allowed, err := s.permissions.HasPermission(ctx, userID, domain.Target{Type: domain.TargetBucket, ID: bucketID}, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	if !allowed {
		// Деградируем до пустого листинга, не раскрывая содержимое.
		return &domain.BucketContent{
			CurrentLocation: domain.Location{ID: &bucketID},
			Folders:         []domain.FolderEntry{},
			Files:           []domain.FileEntry{},
		}, nil
	}

	bucket, err := s.bucketStore.GetByID(ctx, bucketID)
	if err != nil {
		return nil, err
	}

	content := &domain.BucketContent{
		CurrentLocation: domain.Location{ID: &bucket.ID, Name: bucket.Name, ParentID: bucket.ParentID},
		Folders:         []domain.FolderEntry{},
		Files:           []domain.FileEntry{},
	}

	children, err := s.bucketStore.GetChildren(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		entry, err := s.folderEntry(ctx, userID, child)
		if err != nil {
			return nil, err
		}
		content.Folders = append(content.Folders, entry)
	}

	items, err := s.itemStore.GetByBucket(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		entry, err := s.fileEntry(ctx, userID, item)
		if err != nil {
			return nil, err
		}
		content.Files = append(content.Files, entry)
	}

	return content, nil
}

func (s *ContentService) folderEntry(ctx context.Context, userID int64, bucket domain.Bucket) (domain.FolderEntry, error) {
	permission, err := s.permissions.Resolve(ctx, userID, domain.Target{Type: domain.TargetBucket, ID: bucket.ID})
	if err != nil {
		return domain.FolderEntry{}, err
	}

	names, err := s.approverStore.GetNamesForTarget(ctx, domain.Target{Type: domain.TargetBucket, ID: bucket.ID})
	if err != nil {
		return domain.FolderEntry{}, err
	}

	return domain.FolderEntry{
		ID:             bucket.ID,
		Name:           bucket.Name,
		ParentID:       bucket.ParentID,
		OwnerID:        bucket.OwnerID,
		PermissionType: permission,
		ApproverNames:  names,
	}, nil
}

func (s *ContentService) fileEntry(ctx context.Context, userID int64, item domain.Item) (domain.FileEntry, error) {
	permission, err := s.permissions.Resolve(ctx, userID, domain.Target{Type: domain.TargetItem, ID: item.ID})
	if err != nil {
		return domain.FileEntry{}, err
	}

	names, err := s.approverStore.GetNamesForTarget(ctx, domain.Target{Type: domain.TargetItem, ID: item.ID})
	if err != nil {
		return domain.FileEntry{}, err
	}

	views, err := s.visibleVersions(ctx, userID, item.ID)
	if err != nil {
		return domain.FileEntry{}, err
	}

	entry := domain.FileEntry{
		ID:             item.ID,
		Name:           item.Key,
		BucketID:       item.BucketID,
		OwnerID:        item.OwnerID,
		PermissionType: permission,
		ApproverNames:  names,
		Versions:       views,
	}

	for i := range views {
		if views[i].IsLatest {
			entry.LatestVersion = &views[i]
			break
		}
	}

	return entry, nil
}

// visibleVersions применяет правило видимости: версия видна если она
// approved, либо запрашивающий её загрузил, либо он согласующий с
// нерешённой строкой по ней. Невидимые версии опускаются целиком.
func (s *ContentService) visibleVersions(ctx context.Context, userID int64, itemID int64) ([]domain.VersionView, error) {
	versions, err := s.versionStore.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	uploaderIDs := make([]int64, 0, len(versions))
	for _, v := range versions {
		uploaderIDs = append(uploaderIDs, v.UploaderID)
	}
	usernames, err := s.userStore.GetUsernames(ctx, uploaderIDs)
	if err != nil {
		return nil, err
	}

	views := []domain.VersionView{}
	for _, v := range versions {
		view := domain.VersionView{
			VersionID:          v.ID,
			Status:             v.Status,
			IsLatest:           v.IsLatest,
			SizeBytes:          v.SizeBytes,
			ContentFingerprint: v.ContentFingerprint,
			Uploader:           usernames[v.UploaderID],
			CreatedAt:          v.CreatedAt,
		}

		switch {
		case v.Status == domain.VersionApproved:
		case v.UploaderID == userID:
		case v.Status == domain.VersionPending:
			pending, err := s.approvalStore.ExistsPendingForUser(ctx, v.ID, userID)
			if err != nil {
				return nil, err
			}
			if !pending {
				continue
			}
			view.RequestingApproval = true
		default:
			continue
		}

		views = append(views, view)
	}

	return views, nil
}

// ListItemVersions возвращает видимые запрашивающему версии item.
func (s *ContentService) ListItemVersions(ctx context.Context, userID int64, itemID int64) ([]domain.VersionView, error) {
	if _, err := s.itemStore.GetByID(ctx, itemID); err != nil {
		return nil, err
	}

	allowed, err := s.permissions.HasPermission(ctx, userID, domain.Target{Type: domain.TargetItem, ID: itemID}, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: listing versions requires read access", domain.ErrForbidden)
	}

	return s.visibleVersions(ctx, userID, itemID)
}
