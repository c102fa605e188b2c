package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"vaultdrive/internal/domain"
)

type ApproverRepository struct {
	db *sqlx.DB
}

func NewApproverRepository(db *sqlx.DB) *ApproverRepository {
	return &ApproverRepository{db: db}
}

// CreateWithMembers создаёт группу и её участников в собственной транзакции.
func (r *ApproverRepository) CreateWithMembers(ctx context.Context, approver *domain.Approver, memberIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.CreateTx(ctx, tx, approver, memberIDs); err != nil {
		return err
	}

	return tx.Commit()
}

// CreateTx — вариант для внешней транзакции (создание singleton-группы
// владельца внутри транзакции загрузки).
func (r *ApproverRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, approver *domain.Approver, memberIDs []int64) error {
	query := `
        INSERT INTO approvers (name, is_group, approval_type, min_approvals, bucket_id, item_id)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`

	err := tx.QueryRowContext(
		ctx,
		query,
		approver.Name,
		approver.IsGroup,
		approver.ApprovalType,
		approver.MinApprovals,
		approver.BucketID,
		approver.ItemID,
	).Scan(&approver.ID, &approver.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create approver group: %w", err)
	}

	for _, userID := range memberIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO approver_users (approver_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			approver.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to add group member: %w", err)
		}
	}

	return nil
}

func (r *ApproverRepository) GetByID(ctx context.Context, tx *sqlx.Tx, id int64) (*domain.Approver, error) {
	var approver domain.Approver
	query := `SELECT * FROM approvers WHERE id = $1`

	err := tx.GetContext(ctx, &approver, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: approver group %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approver group: %w", err)
	}

	return &approver, nil
}

func (r *ApproverRepository) GetMemberIDs(ctx context.Context, tx *sqlx.Tx, approverID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT user_id FROM approver_users WHERE approver_id = $1 ORDER BY user_id`

	err := tx.SelectContext(ctx, &ids, query, approverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}

	return ids, nil
}

// GetGroupsForUser возвращает все группы, в которых состоит пользователь.
func (r *ApproverRepository) GetGroupsForUser(ctx context.Context, userID int64) ([]domain.Approver, error) {
	var approvers []domain.Approver
	query := `
        SELECT a.*
        FROM approvers a
        INNER JOIN approver_users au ON au.approver_id = a.id
        WHERE au.user_id = $1
        ORDER BY a.id`

	err := r.db.SelectContext(ctx, &approvers, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approver groups: %w", err)
	}

	return approvers, nil
}

// GetGroupIDsForUserTx — то же самое внутри транзакции approve/reject.
func (r *ApproverRepository) GetGroupIDsForUserTx(ctx context.Context, tx *sqlx.Tx, userID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT approver_id FROM approver_users WHERE user_id = $1 ORDER BY approver_id`

	err := tx.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approver group ids: %w", err)
	}

	return ids, nil
}

// GetNamesForTarget возвращает имена групп, привязанных к бакету или item.
// Используется листингом как подсказка approverNames.
func (r *ApproverRepository) GetNamesForTarget(ctx context.Context, target domain.Target) ([]string, error) {
	var names []string
	query := fmt.Sprintf(
		`SELECT name FROM approvers WHERE %s = $1 ORDER BY name`,
		targetColumn(target.Type),
	)

	err := r.db.SelectContext(ctx, &names, query, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approver names: %w", err)
	}

	return names, nil
}

// GetMemberUserIDsForGroups возвращает участников набора групп
// (для уведомлений о pending-версиях).
func (r *ApproverRepository) GetMemberUserIDsForGroups(ctx context.Context, groupIDs []int64) ([]int64, error) {
	var ids []int64
	if len(groupIDs) == 0 {
		return ids, nil
	}

	query := `SELECT DISTINCT user_id FROM approver_users WHERE approver_id = ANY($1) ORDER BY user_id`

	err := r.db.SelectContext(ctx, &ids, query, pq.Array(groupIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get group member ids: %w", err)
	}

	return ids, nil
}
