package domain

import (
	"time"

	"github.com/google/uuid"
)

type VersionStatus string

const (
	VersionPending  VersionStatus = "pending"
	VersionApproved VersionStatus = "approved"
	VersionRejected VersionStatus = "rejected"
)

// ObjectVersion — одна неизменяемая загрузка содержимого Item.
// Инвариант: не более одной версии с IsLatest=true на item,
// и такая версия всегда имеет статус approved.
type ObjectVersion struct {
	ID                 uuid.UUID     `json:"version_id" db:"id"`
	ItemID             int64         `json:"item_id" db:"item_id"`
	UploaderID         int64         `json:"uploader_id" db:"uploader_id"`
	SizeBytes          int64         `json:"size_bytes" db:"size_bytes"`
	ContentFingerprint string        `json:"content_fingerprint" db:"content_fingerprint"`
	Status             VersionStatus `json:"status" db:"status"`
	IsLatest           bool          `json:"is_latest" db:"is_latest"`
	ApproverGroupID    *int64        `json:"approver_group_id,omitempty" db:"approver_group_id"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
}

func (s VersionStatus) Valid() bool {
	switch s {
	case VersionPending, VersionApproved, VersionRejected:
		return true
	}
	return false
}
