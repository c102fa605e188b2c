package domain

import "time"

// Bucket представляет узел иерархии (папку). Дерево строится через ParentID,
// циклы невозможны по построению: родитель должен существовать до ребёнка.
type Bucket struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	ParentID          *int64    `json:"parent_id,omitempty" db:"parent_id"`
	OwnerID           int64     `json:"owner_id" db:"owner_id"`
	RequiresApproval  bool      `json:"requires_approval" db:"requires_approval"`
	OwnerAutoApproves bool      `json:"owner_auto_approves" db:"owner_auto_approves"`
	DefaultApproverID *int64    `json:"default_approver_id,omitempty" db:"default_approver_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
