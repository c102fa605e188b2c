package service

import (
	"context"
	"fmt"

	"vaultdrive/internal/domain"
)

// PermissionService вычисляет эффективное право пользователя на бакет
// или item: владелец / прямой грант / наследование от предка / ничего.
type PermissionService struct {
	permissionStore PermissionStore
	bucketStore     BucketStore
	itemStore       ItemStore
	userStore       UserStore
}

func NewPermissionService(
	permissionStore PermissionStore,
	bucketStore BucketStore,
	itemStore ItemStore,
	userStore UserStore,
) *PermissionService {
	return &PermissionService{
		permissionStore: permissionStore,
		bucketStore:     bucketStore,
		itemStore:       itemStore,
		userStore:       userStore,
	}
}

// Resolve возвращает эффективное право пользователя на цель.
// PermissionNone — доступа нет. Только чтение, без побочных эффектов.
func (s *PermissionService) Resolve(ctx context.Context, userID int64, target domain.Target) (domain.PermissionType, error) {
	switch target.Type {
	case domain.TargetBucket:
		return s.resolveBucket(ctx, userID, target.ID)
	case domain.TargetItem:
		return s.resolveItem(ctx, userID, target.ID)
	default:
		return domain.PermissionNone, fmt.Errorf("%w: unknown target type %q", domain.ErrValidation, target.Type)
	}
}

func (s *PermissionService) resolveBucket(ctx context.Context, userID int64, bucketID int64) (domain.PermissionType, error) {
	bucket, err := s.bucketStore.GetByID(ctx, bucketID)
	if err != nil {
		return domain.PermissionNone, err
	}

	if bucket.OwnerID == userID {
		return domain.PermissionOwner, nil
	}

	grant, err := s.permissionStore.GetForTarget(ctx, userID, domain.Target{Type: domain.TargetBucket, ID: bucketID})
	if err != nil {
		return domain.PermissionNone, err
	}
	if grant != nil {
		return grant.PermissionType, nil
	}

	// Наследование: идём вверх по дереву, побеждает первый найденный грант.
	// Гранты нескольких предков не объединяются.
	ancestors, err := s.bucketStore.GetAncestorChain(ctx, bucketID)
	if err != nil {
		return domain.PermissionNone, err
	}

	for _, ancestor := range ancestors {
		if ancestor.OwnerID == userID {
			return domain.PermissionOwner, nil
		}
		grant, err := s.permissionStore.GetForTarget(ctx, userID, domain.Target{Type: domain.TargetBucket, ID: ancestor.ID})
		if err != nil {
			return domain.PermissionNone, err
		}
		if grant != nil {
			return grant.PermissionType, nil
		}
	}

	return domain.PermissionNone, nil
}

func (s *PermissionService) resolveItem(ctx context.Context, userID int64, itemID int64) (domain.PermissionType, error) {
	item, err := s.itemStore.GetByID(ctx, itemID)
	if err != nil {
		return domain.PermissionNone, err
	}

	if item.OwnerID == userID {
		return domain.PermissionOwner, nil
	}

	grant, err := s.permissionStore.GetForTarget(ctx, userID, domain.Target{Type: domain.TargetItem, ID: itemID})
	if err != nil {
		return domain.PermissionNone, err
	}
	if grant != nil {
		return grant.PermissionType, nil
	}

	// Владелец бакета имеет неявный доступ к items внутри него.
	bucket, err := s.bucketStore.GetByID(ctx, item.BucketID)
	if err != nil {
		return domain.PermissionNone, err
	}
	if bucket.OwnerID == userID {
		return domain.PermissionOwner, nil
	}

	return domain.PermissionNone, nil
}

// HasPermission сообщает, покрывает ли эффективное право требуемое,
// в порядке read < write < admin; owner покрывает всё.
func (s *PermissionService) HasPermission(ctx context.Context, userID int64, target domain.Target, required domain.PermissionType) (bool, error) {
	resolved, err := s.Resolve(ctx, userID, target)
	if err != nil {
		return false, err
	}
	if resolved == domain.PermissionNone {
		return false, nil
	}
	return resolved.Satisfies(required), nil
}

// AssignPermission выдаёт грант пользователю по email. Требует у выдающего
// write или сильнее на цель. Повторная выдача обновляет тип на месте;
// выдача того же типа — ErrConflict.
func (s *PermissionService) AssignPermission(
	ctx context.Context,
	granterID int64,
	target domain.Target,
	granteeEmail string,
	permissionType domain.PermissionType,
) (*domain.Permission, error) {
	if !permissionType.Valid() {
		return nil, fmt.Errorf("%w: invalid permission type %q", domain.ErrValidation, permissionType)
	}

	allowed, err := s.HasPermission(ctx, granterID, target, domain.PermissionWrite)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: granting requires write access", domain.ErrForbidden)
	}

	grantee, err := s.userStore.GetByEmail(ctx, granteeEmail)
	if err != nil {
		return nil, err
	}

	existing, err := s.permissionStore.GetForTarget(ctx, grantee.ID, target)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		if existing.PermissionType == permissionType {
			return nil, fmt.Errorf("%w: permission already granted", domain.ErrConflict)
		}
		if err := s.permissionStore.UpdateType(ctx, existing.ID, permissionType); err != nil {
			return nil, err
		}
		existing.PermissionType = permissionType
		return existing, nil
	}

	permission := &domain.Permission{
		UserID:         grantee.ID,
		PermissionType: permissionType,
	}
	switch target.Type {
	case domain.TargetBucket:
		permission.BucketID = &target.ID
	case domain.TargetItem:
		permission.ItemID = &target.ID
	}

	if err := s.permissionStore.Create(ctx, permission); err != nil {
		return nil, err
	}

	return permission, nil
}

// RevokePermission снимает грант. Авторизация как у AssignPermission.
func (s *PermissionService) RevokePermission(ctx context.Context, granterID int64, target domain.Target, granteeEmail string) error {
	allowed, err := s.HasPermission(ctx, granterID, target, domain.PermissionWrite)
	if err != nil {
		return err
	}
	if !allowed {
		return fmt.Errorf("%w: revoking requires write access", domain.ErrForbidden)
	}

	grantee, err := s.userStore.GetByEmail(ctx, granteeEmail)
	if err != nil {
		return err
	}

	return s.permissionStore.Delete(ctx, grantee.ID, target)
}
