package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

// Контракты слоя хранения, реализуемые internal/repository.
// Мутации принимают явный *sqlx.Tx: транзакцией владеет сервис.

type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUsernames(ctx context.Context, ids []int64) (map[int64]string, error)
}

type BucketStore interface {
	Create(ctx context.Context, bucket *domain.Bucket) error
	GetByID(ctx context.Context, id int64) (*domain.Bucket, error)
	GetByNameAndOwner(ctx context.Context, name string, ownerID int64, parentID *int64) (*domain.Bucket, error)
	GetChildren(ctx context.Context, parentID int64) ([]domain.Bucket, error)
	GetAncestorChain(ctx context.Context, bucketID int64) ([]domain.Bucket, error)
	GetAccessible(ctx context.Context, userID int64) ([]domain.Bucket, error)
}

type ItemStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	GetByBucketAndKey(ctx context.Context, tx *sqlx.Tx, bucketID int64, key string) (*domain.Item, error)
	Create(ctx context.Context, tx *sqlx.Tx, item *domain.Item) error
	LockForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Item, error)
	SetDefaultApprover(ctx context.Context, tx *sqlx.Tx, itemID int64, approverID int64) error
	GetByBucket(ctx context.Context, bucketID int64) ([]domain.Item, error)
}

type VersionStore interface {
	Create(ctx context.Context, tx *sqlx.Tx, version *domain.ObjectVersion) error
	GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.ObjectVersion, error)
	GetNewest(ctx context.Context, tx *sqlx.Tx, itemID int64) (*domain.ObjectVersion, error)
	GetLatestApproved(ctx context.Context, itemID int64) (*domain.ObjectVersion, error)
	GetApprovedByID(ctx context.Context, itemID int64, versionID uuid.UUID) (*domain.ObjectVersion, error)
	DemoteLatest(ctx context.Context, tx *sqlx.Tx, itemID int64) error
	MarkApprovedLatest(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	MarkRejected(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
	ListByItem(ctx context.Context, itemID int64) ([]domain.ObjectVersion, error)
}

type PermissionStore interface {
	GetForTarget(ctx context.Context, userID int64, target domain.Target) (*domain.Permission, error)
	Create(ctx context.Context, permission *domain.Permission) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, permission *domain.Permission) error
	UpdateType(ctx context.Context, id int64, permissionType domain.PermissionType) error
	Delete(ctx context.Context, userID int64, target domain.Target) error
}

type ApproverStore interface {
	CreateWithMembers(ctx context.Context, approver *domain.Approver, memberIDs []int64) error
	CreateTx(ctx context.Context, tx *sqlx.Tx, approver *domain.Approver, memberIDs []int64) error
	GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Approver, error)
	GetMemberIDs(ctx context.Context, tx *sqlx.Tx, approverID int64) ([]int64, error)
	GetGroupsForUser(ctx context.Context, userID int64) ([]domain.Approver, error)
	GetGroupIDsForUserTx(ctx context.Context, tx *sqlx.Tx, userID int64) ([]int64, error)
	GetNamesForTarget(ctx context.Context, target domain.Target) ([]string, error)
	GetMemberUserIDsForGroups(ctx context.Context, groupIDs []int64) ([]int64, error)
}

type ApprovalStore interface {
	Create(ctx context.Context, tx *sqlx.Tx, approval *domain.Approval) error
	FindPendingForUser(ctx context.Context, tx *sqlx.Tx, versionID uuid.UUID, groupIDs []int64, userID int64) (*domain.Approval, error)
	Decide(ctx context.Context, tx *sqlx.Tx, approvalID int64, userID int64, decision domain.Decision, comments string) error
	CountPending(ctx context.Context, tx *sqlx.Tx, versionID uuid.UUID, groupID int64) (int, error)
	ExistsPendingForUser(ctx context.Context, versionID uuid.UUID, userID int64) (bool, error)
	ListByVersion(ctx context.Context, versionID uuid.UUID) ([]domain.Approval, error)
}
