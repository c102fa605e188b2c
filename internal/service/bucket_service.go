package service

import (
	"context"
	"fmt"

	"vaultdrive/internal/domain"
)

// BucketService создаёт узлы иерархии и отвечает за их настройки согласования.
type BucketService struct {
	bucketStore BucketStore
	permissions *PermissionService
}

func NewBucketService(bucketStore BucketStore, permissions *PermissionService) *BucketService {
	return &BucketService{
		bucketStore: bucketStore,
		permissions: permissions,
	}
}

// CreateBucket создаёт бакет. Родитель должен существовать заранее, поэтому
// циклы в дереве невозможны. Для вложенного бакета нужен write на родителе.
func (s *BucketService) CreateBucket(
	ctx context.Context,
	ownerID int64,
	name string,
	parentID *int64,
	requiresApproval bool,
	ownerAutoApproves bool,
	defaultApproverID *int64,
) (*domain.Bucket, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: bucket name is required", domain.ErrValidation)
	}

	if parentID != nil {
		if _, err := s.bucketStore.GetByID(ctx, *parentID); err != nil {
			return nil, err
		}
		allowed, err := s.permissions.HasPermission(ctx, ownerID, domain.Target{Type: domain.TargetBucket, ID: *parentID}, domain.PermissionWrite)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%w: creating a nested bucket requires write access to the parent", domain.ErrForbidden)
		}
	}

	existing, err := s.bucketStore.GetByNameAndOwner(ctx, name, ownerID, parentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: bucket %q already exists", domain.ErrConflict, name)
	}

	bucket := &domain.Bucket{
		Name:              name,
		ParentID:          parentID,
		OwnerID:           ownerID,
		RequiresApproval:  requiresApproval,
		OwnerAutoApproves: ownerAutoApproves,
		DefaultApproverID: defaultApproverID,
	}

	if err := s.bucketStore.Create(ctx, bucket); err != nil {
		return nil, err
	}

	return bucket, nil
}

// GetBucket возвращает бакет, если у запрашивающего есть хотя бы read.
func (s *BucketService) GetBucket(ctx context.Context, userID int64, bucketID int64) (*domain.Bucket, error) {
	bucket, err := s.bucketStore.GetByID(ctx, bucketID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.permissions.HasPermission(ctx, userID, domain.Target{Type: domain.TargetBucket, ID: bucketID}, domain.PermissionRead)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: no access to bucket %d", domain.ErrForbidden, bucketID)
	}

	return bucket, nil
}
