package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vaultdrive/internal/domain"
)

type ApprovalRepository struct {
	db *sqlx.DB
}

func NewApprovalRepository(db *sqlx.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

func (r *ApprovalRepository) Create(ctx context.Context, tx *sqlx.Tx, approval *domain.Approval) error {
	query := `
        INSERT INTO approvals (object_version_id, approver_group_id, user_id, decision, comments)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	err := tx.QueryRowContext(
		ctx,
		query,
		approval.ObjectVersionID,
		approval.ApproverGroupID,
		approval.UserID,
		approval.Decision,
		approval.Comments,
	).Scan(&approval.ID, &approval.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create approval: %w", err)
	}

	return nil
}

// FindPendingForUser ищет pending-строку по версии, которую пользователь
// вправе решить: либо именную (user_id = userID), либо общегрупповую
// (user_id IS NULL) в одной из его групп. nil, nil — если строки нет.
func (r *ApprovalRepository) FindPendingForUser(ctx context.Context, tx *sqlx.Tx, versionID uuid.UUID, groupIDs []int64, userID int64) (*domain.Approval, error) {
	if len(groupIDs) == 0 {
		return nil, nil
	}

	var approval domain.Approval
	query := `
        SELECT * FROM approvals
        WHERE object_version_id = $1
        AND approver_group_id = ANY($2)
        AND decision = 'pending'
        AND (user_id = $3 OR user_id IS NULL)
        ORDER BY user_id NULLS LAST
        LIMIT 1`

	err := tx.GetContext(ctx, &approval, query, versionID, pq.Array(groupIDs), userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find pending approval: %w", err)
	}

	return &approval, nil
}

// Decide фиксирует решение. Общегрупповую строку при этом «забирает»
// действующий пользователь.
func (r *ApprovalRepository) Decide(ctx context.Context, tx *sqlx.Tx, approvalID int64, userID int64, decision domain.Decision, comments string) error {
	query := `
        UPDATE approvals
        SET decision = $1, user_id = $2, comments = $3
        WHERE id = $4`

	result, err := tx.ExecContext(ctx, query, decision, userID, comments, approvalID)
	if err != nil {
		return fmt.Errorf("failed to record decision: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: approval %d", domain.ErrNotFound, approvalID)
	}

	return nil
}

// CountPending возвращает число нерешённых строк по версии внутри группы.
// Для unanimous-групп версия утверждается только при нуле.
func (r *ApprovalRepository) CountPending(ctx context.Context, tx *sqlx.Tx, versionID uuid.UUID, groupID int64) (int, error) {
	var count int
	query := `
        SELECT COUNT(*) FROM approvals
        WHERE object_version_id = $1 AND approver_group_id = $2 AND decision = 'pending'`

	err := tx.QueryRowContext(ctx, query, versionID, groupID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending approvals: %w", err)
	}

	return count, nil
}

// ExistsPendingForUser — read-only проверка для листинга: видит ли
// пользователь pending-версию как её согласующий.
func (r *ApprovalRepository) ExistsPendingForUser(ctx context.Context, versionID uuid.UUID, userID int64) (bool, error) {
	var exists bool
	query := `
        SELECT EXISTS(
            SELECT 1 FROM approvals a
            WHERE a.object_version_id = $1
            AND a.decision = 'pending'
            AND (
                a.user_id = $2
                OR (a.user_id IS NULL AND EXISTS(
                    SELECT 1 FROM approver_users au
                    WHERE au.approver_id = a.approver_group_id AND au.user_id = $2
                ))
            )
        )`

	err := r.db.GetContext(ctx, &exists, query, versionID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check pending approval: %w", err)
	}

	return exists, nil
}

func (r *ApprovalRepository) ListByVersion(ctx context.Context, versionID uuid.UUID) ([]domain.Approval, error) {
	var approvals []domain.Approval
	query := `
        SELECT * FROM approvals
        WHERE object_version_id = $1
        ORDER BY created_at`

	err := r.db.SelectContext(ctx, &approvals, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}

	return approvals, nil
}
