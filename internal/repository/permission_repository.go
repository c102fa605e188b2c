package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

type PermissionRepository struct {
	db *sqlx.DB
}

func NewPermissionRepository(db *sqlx.DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

func targetColumn(t domain.TargetType) string {
	if t == domain.TargetItem {
		return "item_id"
	}
	return "bucket_id"
}

// GetForTarget возвращает прямой грант пользователя на цель.
// nil, nil — если гранта нет.
func (r *PermissionRepository) GetForTarget(ctx context.Context, userID int64, target domain.Target) (*domain.Permission, error) {
	var permission domain.Permission
	query := fmt.Sprintf(
		`SELECT * FROM permissions WHERE user_id = $1 AND %s = $2`,
		targetColumn(target.Type),
	)

	err := r.db.GetContext(ctx, &permission, query, userID, target.ID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}

	return &permission, nil
}

func (r *PermissionRepository) Create(ctx context.Context, permission *domain.Permission) error {
	query := `
        INSERT INTO permissions (user_id, bucket_id, item_id, permission_type)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		permission.UserID,
		permission.BucketID,
		permission.ItemID,
		permission.PermissionType,
	).Scan(&permission.ID, &permission.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}

	return nil
}

// CreateTx — вариант для вызова внутри транзакции загрузки
// (грант владельцу при создании item).
func (r *PermissionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, permission *domain.Permission) error {
	query := `
        INSERT INTO permissions (user_id, bucket_id, item_id, permission_type)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at`

	err := tx.QueryRowContext(
		ctx,
		query,
		permission.UserID,
		permission.BucketID,
		permission.ItemID,
		permission.PermissionType,
	).Scan(&permission.ID, &permission.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create permission: %w", err)
	}

	return nil
}

func (r *PermissionRepository) UpdateType(ctx context.Context, id int64, permissionType domain.PermissionType) error {
	query := `UPDATE permissions SET permission_type = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, permissionType, id)
	if err != nil {
		return fmt.Errorf("failed to update permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: permission %d", domain.ErrNotFound, id)
	}

	return nil
}

func (r *PermissionRepository) Delete(ctx context.Context, userID int64, target domain.Target) error {
	query := fmt.Sprintf(
		`DELETE FROM permissions WHERE user_id = $1 AND %s = $2`,
		targetColumn(target.Type),
	)

	result, err := r.db.ExecContext(ctx, query, userID, target.ID)
	if err != nil {
		return fmt.Errorf("failed to delete permission: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: no grant for user %d", domain.ErrNotFound, userID)
	}

	return nil
}
