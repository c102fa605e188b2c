package domain

import "time"

type ApprovalType string

const (
	// ApprovalStandard — достаточно одного согласующего из группы.
	ApprovalStandard ApprovalType = "standard"
	// ApprovalUnanimous — требуется решение каждого участника группы.
	ApprovalUnanimous ApprovalType = "unanimous"
)

func (t ApprovalType) Valid() bool {
	return t == ApprovalStandard || t == ApprovalUnanimous
}

// Approver — именованная группа согласующих. Привязана к бакету или item
// через явные nullable-ссылки (ровно одна из них заполнена).
type Approver struct {
	ID           int64        `json:"id" db:"id"`
	Name         string       `json:"name" db:"name"`
	IsGroup      bool         `json:"is_group" db:"is_group"`
	ApprovalType ApprovalType `json:"approval_type" db:"approval_type"`
	MinApprovals int          `json:"min_approvals" db:"min_approvals"`
	BucketID     *int64       `json:"bucket_id,omitempty" db:"bucket_id"`
	ItemID       *int64       `json:"item_id,omitempty" db:"item_id"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}
