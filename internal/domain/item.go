package domain

import "time"

// Item представляет версионируемый файл внутри бакета.
// Key уникален в пределах бакета.
type Item struct {
	ID                int64     `json:"id" db:"id"`
	BucketID          int64     `json:"bucket_id" db:"bucket_id"`
	Key               string    `json:"key" db:"key"`
	OwnerID           int64     `json:"owner_id" db:"owner_id"`
	VersioningEnabled bool      `json:"versioning_enabled" db:"versioning_enabled"`
	RequiresApproval  bool      `json:"requires_approval" db:"requires_approval"`
	DefaultApproverID *int64    `json:"default_approver_id,omitempty" db:"default_approver_id"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}
