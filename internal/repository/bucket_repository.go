package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

// Ограничение на глубину обхода предков. Циклы невозможны по построению,
// но рекурсивный запрос всё равно ограничен.
const maxTreeDepth = 64

type BucketRepository struct {
	db *sqlx.DB
}

func NewBucketRepository(db *sqlx.DB) *BucketRepository {
	return &BucketRepository{db: db}
}

// Create вставляет бакет и выдаёт владельцу write-грант в одной транзакции.
func (r *BucketRepository) Create(ctx context.Context, bucket *domain.Bucket) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
        INSERT INTO buckets (name, parent_id, owner_id, requires_approval, owner_auto_approves, default_approver_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	err = tx.QueryRowContext(
		ctx,
		query,
		bucket.Name,
		bucket.ParentID,
		bucket.OwnerID,
		bucket.RequiresApproval,
		bucket.OwnerAutoApproves,
		bucket.DefaultApproverID,
	).Scan(&bucket.ID, &bucket.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO permissions (user_id, bucket_id, permission_type)
        VALUES ($1, $2, $3)`,
		bucket.OwnerID, bucket.ID, domain.PermissionWrite)
	if err != nil {
		return fmt.Errorf("failed to create owner permission: %w", err)
	}

	return tx.Commit()
}

func (r *BucketRepository) GetByID(ctx context.Context, id int64) (*domain.Bucket, error) {
	var bucket domain.Bucket
	query := `SELECT * FROM buckets WHERE id = $1`

	err := r.db.GetContext(ctx, &bucket, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: bucket %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &bucket, nil
}

// GetByNameAndOwner используется для проверки дубликатов при создании.
// Возвращает nil, nil если бакета нет.
func (r *BucketRepository) GetByNameAndOwner(ctx context.Context, name string, ownerID int64, parentID *int64) (*domain.Bucket, error) {
	var bucket domain.Bucket
	query := `
        SELECT * FROM buckets
        WHERE name = $1 AND owner_id = $2 AND parent_id IS NOT DISTINCT FROM $3
        LIMIT 1`

	err := r.db.GetContext(ctx, &bucket, query, name, ownerID, parentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}

	return &bucket, nil
}

func (r *BucketRepository) GetChildren(ctx context.Context, parentID int64) ([]domain.Bucket, error) {
	var buckets []domain.Bucket
	query := `SELECT * FROM buckets WHERE parent_id = $1 ORDER BY name`

	err := r.db.SelectContext(ctx, &buckets, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get child buckets: %w", err)
	}

	return buckets, nil
}

// GetAncestorChain возвращает предков бакета снизу вверх (ближайший первым),
// не включая сам бакет. Глубина обхода ограничена maxTreeDepth.
func (r *BucketRepository) GetAncestorChain(ctx context.Context, bucketID int64) ([]domain.Bucket, error) {
	var buckets []domain.Bucket
	query := `
        WITH RECURSIVE ancestors AS (
            -- Начальный бакет
            SELECT b.*, 0 AS depth
            FROM buckets b
            WHERE b.id = $1

            UNION ALL

            -- Родители до корня
            SELECT b.*, a.depth + 1
            FROM buckets b
            INNER JOIN ancestors a ON b.id = a.parent_id
            WHERE a.depth < $2
        )
        SELECT id, name, parent_id, owner_id, requires_approval,
               owner_auto_approves, default_approver_id, created_at
        FROM ancestors
        WHERE depth > 0
        ORDER BY depth`

	err := r.db.SelectContext(ctx, &buckets, query, bucketID, maxTreeDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to get ancestor chain: %w", err)
	}

	return buckets, nil
}

// GetAccessible возвращает бакеты, которыми пользователь владеет или на
// которые у него есть прямой грант. Корневой листинг фильтрует их
// до верхних видимых узлов уже на сервисном слое.
func (r *BucketRepository) GetAccessible(ctx context.Context, userID int64) ([]domain.Bucket, error) {
	var buckets []domain.Bucket
	query := `
        SELECT DISTINCT b.*
        FROM buckets b
        LEFT JOIN permissions p ON p.bucket_id = b.id AND p.user_id = $1
        WHERE b.owner_id = $1 OR p.id IS NOT NULL
        ORDER BY b.name`

	err := r.db.SelectContext(ctx, &buckets, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get accessible buckets: %w", err)
	}

	return buckets, nil
}
