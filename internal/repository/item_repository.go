package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

type ItemRepository struct {
	db *sqlx.DB
}

func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	var item domain.Item
	query := `SELECT * FROM items WHERE id = $1`

	err := r.db.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	return &item, nil
}

// GetByBucketAndKey ищет item внутри транзакции загрузки.
// Возвращает nil, nil если item ещё не создан.
func (r *ItemRepository) GetByBucketAndKey(ctx context.Context, tx *sqlx.Tx, bucketID int64, key string) (*domain.Item, error) {
	var item domain.Item
	query := `SELECT * FROM items WHERE bucket_id = $1 AND key = $2`

	err := tx.GetContext(ctx, &item, query, bucketID, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item by key: %w", err)
	}

	return &item, nil
}

func (r *ItemRepository) Create(ctx context.Context, tx *sqlx.Tx, item *domain.Item) error {
	query := `
        INSERT INTO items (bucket_id, key, owner_id, versioning_enabled, requires_approval, default_approver_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	err := tx.QueryRowContext(
		ctx,
		query,
		item.BucketID,
		item.Key,
		item.OwnerID,
		item.VersioningEnabled,
		item.RequiresApproval,
		item.DefaultApproverID,
	).Scan(&item.ID, &item.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

// LockForUpdate блокирует строку item до конца транзакции, чтобы
// конкурентные загрузки/решения по одному item выполнялись по очереди
// и latest-флаг передавался атомарно.
func (r *ItemRepository) LockForUpdate(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Item, error) {
	var item domain.Item
	query := `SELECT * FROM items WHERE id = $1 FOR UPDATE`

	err := tx.GetContext(ctx, &item, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: item %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock item: %w", err)
	}

	return &item, nil
}

func (r *ItemRepository) SetDefaultApprover(ctx context.Context, tx *sqlx.Tx, itemID int64, approverID int64) error {
	query := `UPDATE items SET default_approver_id = $1 WHERE id = $2`

	result, err := tx.ExecContext(ctx, query, approverID, itemID)
	if err != nil {
		return fmt.Errorf("failed to set default approver: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: item %d", domain.ErrNotFound, itemID)
	}

	return nil
}

func (r *ItemRepository) GetByBucket(ctx context.Context, bucketID int64) ([]domain.Item, error) {
	var items []domain.Item
	query := `SELECT * FROM items WHERE bucket_id = $1 ORDER BY key`

	err := r.db.SelectContext(ctx, &items, query, bucketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket items: %w", err)
	}

	return items, nil
}
