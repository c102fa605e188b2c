package domain

import "time"

type PermissionType string

const (
	PermissionRead  PermissionType = "read"
	PermissionWrite PermissionType = "write"
	PermissionAdmin PermissionType = "admin"

	// PermissionOwner не хранится в таблице permissions: владелец
	// получает её неявно и она покрывает любую проверку.
	PermissionOwner PermissionType = "owner"

	// PermissionNone — результат резолва при полном отсутствии доступа.
	PermissionNone PermissionType = ""
)

func (p PermissionType) Valid() bool {
	switch p {
	case PermissionRead, PermissionWrite, PermissionAdmin:
		return true
	}
	return false
}

// rank задаёт порядок read < write < admin < owner.
func (p PermissionType) rank() int {
	switch p {
	case PermissionRead:
		return 1
	case PermissionWrite:
		return 2
	case PermissionAdmin:
		return 3
	case PermissionOwner:
		return 4
	}
	return 0
}

// Satisfies сообщает, достаточно ли права p для требования required.
func (p PermissionType) Satisfies(required PermissionType) bool {
	if p == PermissionOwner {
		return true
	}
	return p.rank() >= required.rank()
}

// TargetType различает цель выдачи права: бакет или item.
type TargetType string

const (
	TargetBucket TargetType = "bucket"
	TargetItem   TargetType = "item"
)

// Target указывает на ровно одну сущность.
type Target struct {
	Type TargetType
	ID   int64
}

// Permission — выданное право. Ровно одно из BucketID/ItemID заполнено
// (CHECK-ограничение в схеме).
type Permission struct {
	ID             int64          `json:"id" db:"id"`
	UserID         int64          `json:"user_id" db:"user_id"`
	BucketID       *int64         `json:"bucket_id,omitempty" db:"bucket_id"`
	ItemID         *int64         `json:"item_id,omitempty" db:"item_id"`
	PermissionType PermissionType `json:"permission_type" db:"permission_type"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}
