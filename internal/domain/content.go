package domain

import (
	"github.com/google/uuid"
	"time"
)

// VersionView — версия в выдаче листинга. RequestingApproval выставляется,
// когда запрашивающий состоит в группе, ожидающей решения по этой версии.
type VersionView struct {
	VersionID          uuid.UUID     `json:"version_id"`
	Status             VersionStatus `json:"status"`
	IsLatest           bool          `json:"is_latest"`
	SizeBytes          int64         `json:"size_bytes"`
	ContentFingerprint string        `json:"content_fingerprint"`
	Uploader           string        `json:"uploader"`
	CreatedAt          time.Time     `json:"created_at"`
	RequestingApproval bool          `json:"requesting_approval,omitempty"`
}

// FileEntry — item в листинге вместе с видимыми версиями.
// LatestVersion == nil допустим: согласующий может видеть item,
// у которого ещё нет ни одной утверждённой версии.
type FileEntry struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	BucketID       int64          `json:"bucket_id"`
	OwnerID        int64          `json:"owner_id"`
	PermissionType PermissionType `json:"permission_type"`
	ApproverNames  []string       `json:"approver_names,omitempty"`
	LatestVersion  *VersionView   `json:"latest_version"`
	Versions       []VersionView  `json:"versions"`
}

type FolderEntry struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	ParentID       *int64         `json:"parent_id,omitempty"`
	OwnerID        int64          `json:"owner_id"`
	PermissionType PermissionType `json:"permission_type"`
	ApproverNames  []string       `json:"approver_names,omitempty"`
}

type Location struct {
	ID       *int64 `json:"id,omitempty"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// BucketContent — отфильтрованное по правам содержимое бакета.
type BucketContent struct {
	CurrentLocation Location      `json:"current_location"`
	Folders         []FolderEntry `json:"folders"`
	Files           []FileEntry   `json:"files"`
}
