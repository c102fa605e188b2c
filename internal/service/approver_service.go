package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

// ApproverService управляет группами согласующих.
// Существование цели проверяется резолвером прав: для отсутствующего
// бакета или item он возвращает ErrNotFound.
type ApproverService struct {
	approverStore   ApproverStore
	permissionCheck *PermissionService
}

func NewApproverService(approverStore ApproverStore, permissionCheck *PermissionService) *ApproverService {
	return &ApproverService{
		approverStore:   approverStore,
		permissionCheck: permissionCheck,
	}
}

// CreateGroup создаёт именованную группу согласующих на бакете или item.
// Создающий должен иметь admin или выше на цель.
func (s *ApproverService) CreateGroup(
	ctx context.Context,
	actorID int64,
	target domain.Target,
	name string,
	approvalType domain.ApprovalType,
	minApprovals int,
	memberIDs []int64,
) (*domain.Approver, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: group name is required", domain.ErrValidation)
	}
	if !approvalType.Valid() {
		return nil, fmt.Errorf("%w: invalid approval type %q", domain.ErrValidation, approvalType)
	}
	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("%w: group needs at least one member", domain.ErrValidation)
	}
	if minApprovals < 1 {
		minApprovals = 1
	}

	allowed, err := s.permissionCheck.HasPermission(ctx, actorID, target, domain.PermissionAdmin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: creating an approver group requires admin access", domain.ErrForbidden)
	}

	approver := &domain.Approver{
		Name:         name,
		IsGroup:      len(memberIDs) > 1,
		ApprovalType: approvalType,
		MinApprovals: minApprovals,
	}
	switch target.Type {
	case domain.TargetBucket:
		approver.BucketID = &target.ID
	case domain.TargetItem:
		approver.ItemID = &target.ID
	default:
		return nil, fmt.Errorf("%w: unknown target type %q", domain.ErrValidation, target.Type)
	}

	if err := s.approverStore.CreateWithMembers(ctx, approver, memberIDs); err != nil {
		return nil, err
	}

	return approver, nil
}

// CreateOwnerGroup создаёт singleton-группу из владельца внутри внешней
// транзакции. Используется при первой загрузке в item без согласующих.
func (s *ApproverService) CreateOwnerGroup(ctx context.Context, tx *sqlx.Tx, target domain.Target, ownerID int64, itemKey string) (*domain.Approver, error) {
	approver := &domain.Approver{
		Name:         fmt.Sprintf("Approvers for %s", itemKey),
		IsGroup:      false,
		ApprovalType: domain.ApprovalStandard,
		MinApprovals: 1,
	}
	switch target.Type {
	case domain.TargetBucket:
		approver.BucketID = &target.ID
	case domain.TargetItem:
		approver.ItemID = &target.ID
	}

	if err := s.approverStore.CreateTx(ctx, tx, approver, []int64{ownerID}); err != nil {
		return nil, err
	}

	return approver, nil
}

// GroupsForUser возвращает группы, в которых состоит пользователь.
func (s *ApproverService) GroupsForUser(ctx context.Context, userID int64) ([]domain.Approver, error) {
	return s.approverStore.GetGroupsForUser(ctx, userID)
}
