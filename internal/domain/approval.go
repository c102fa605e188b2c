package domain

import (
	"github.com/google/uuid"
	"time"
)

type Decision string

const (
	DecisionPending  Decision = "pending"
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

func (d Decision) Valid() bool {
	switch d {
	case DecisionPending, DecisionApproved, DecisionRejected:
		return true
	}
	return false
}

// Approval — одно решение по версии от имени группы согласующих.
// UserID == nil означает общегрупповую pending-строку (standard-группы):
// её «забирает» тот участник, который среагирует первым.
type Approval struct {
	ID              int64     `json:"id" db:"id"`
	ObjectVersionID uuid.UUID `json:"object_version_id" db:"object_version_id"`
	ApproverGroupID int64     `json:"approver_group_id" db:"approver_group_id"`
	UserID          *int64    `json:"user_id,omitempty" db:"user_id"`
	Decision        Decision  `json:"decision" db:"decision"`
	Comments        *string   `json:"comments,omitempty" db:"comments"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
