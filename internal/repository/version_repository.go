package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"vaultdrive/internal/domain"
)

type VersionRepository struct {
	db *sqlx.DB
}

func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

func (r *VersionRepository) Create(ctx context.Context, tx *sqlx.Tx, version *domain.ObjectVersion) error {
	query := `
        INSERT INTO object_versions (id, item_id, uploader_id, size_bytes, content_fingerprint, status, is_latest, approver_group_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at`

	err := tx.QueryRowContext(
		ctx,
		query,
		version.ID,
		version.ItemID,
		version.UploaderID,
		version.SizeBytes,
		version.ContentFingerprint,
		version.Status,
		version.IsLatest,
		version.ApproverGroupID,
	).Scan(&version.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create version: %w", err)
	}

	return nil
}

func (r *VersionRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.ObjectVersion, error) {
	var version domain.ObjectVersion
	query := `SELECT * FROM object_versions WHERE id = $1`

	err := tx.GetContext(ctx, &version, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: version %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	return &version, nil
}

// GetNewest возвращает самую свежую версию item (для проверки отпечатка).
// nil, nil — если версий ещё нет.
func (r *VersionRepository) GetNewest(ctx context.Context, tx *sqlx.Tx, itemID int64) (*domain.ObjectVersion, error) {
	var version domain.ObjectVersion
	query := `
        SELECT * FROM object_versions
        WHERE item_id = $1
        ORDER BY created_at DESC
        LIMIT 1`

	err := tx.GetContext(ctx, &version, query, itemID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get newest version: %w", err)
	}

	return &version, nil
}

// GetLatestApproved ищет текущую авторитетную версию item вне транзакций
// (read-only путь скачивания).
func (r *VersionRepository) GetLatestApproved(ctx context.Context, itemID int64) (*domain.ObjectVersion, error) {
	var version domain.ObjectVersion
	query := `
        SELECT * FROM object_versions
        WHERE item_id = $1 AND is_latest = TRUE AND status = 'approved'`

	err := r.db.GetContext(ctx, &version, query, itemID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: no approved version for item %d", domain.ErrNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest version: %w", err)
	}

	return &version, nil
}

func (r *VersionRepository) GetApprovedByID(ctx context.Context, itemID int64, versionID uuid.UUID) (*domain.ObjectVersion, error) {
	var version domain.ObjectVersion
	query := `
        SELECT * FROM object_versions
        WHERE item_id = $1 AND id = $2 AND status = 'approved'`

	err := r.db.GetContext(ctx, &version, query, itemID, versionID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: version %s not found or not approved", domain.ErrNotFound, versionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get version: %w", err)
	}

	return &version, nil
}

// DemoteLatest снимает latest-флаг с текущей версии item. Выполняется
// в одной транзакции с продвижением новой версии.
func (r *VersionRepository) DemoteLatest(ctx context.Context, tx *sqlx.Tx, itemID int64) error {
	query := `
        UPDATE object_versions
        SET is_latest = FALSE
        WHERE item_id = $1 AND is_latest = TRUE`

	if _, err := tx.ExecContext(ctx, query, itemID); err != nil {
		return fmt.Errorf("failed to demote latest version: %w", err)
	}

	return nil
}

func (r *VersionRepository) MarkApprovedLatest(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := `
        UPDATE object_versions
        SET status = 'approved', is_latest = TRUE
        WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark version approved: %w", err)
	}

	return nil
}

func (r *VersionRepository) MarkRejected(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error {
	query := `
        UPDATE object_versions
        SET status = 'rejected', is_latest = FALSE
        WHERE id = $1`

	if _, err := tx.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to mark version rejected: %w", err)
	}

	return nil
}

func (r *VersionRepository) ListByItem(ctx context.Context, itemID int64) ([]domain.ObjectVersion, error) {
	var versions []domain.ObjectVersion
	query := `
        SELECT * FROM object_versions
        WHERE item_id = $1
        ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &versions, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	return versions, nil
}
