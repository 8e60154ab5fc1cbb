package models

import (
	"time"

	"gorm.io/gorm"
)

// Base carries the lifecycle stamps shared by every soft-deletable entity.
// created_at and updated_at are filled by gorm through the clock-driven NowFunc;
// deleted_at is only ever stamped by a soft delete.
type Base struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// GetID returns the primary key (0 before first persistence).
func (b Base) GetID() uint { return b.ID }

// IsDeleted reports whether the row has been soft-deleted.
func (b Base) IsDeleted() bool { return b.DeletedAt.Valid }

// Entity is the contract the lifecycle layer works with.
// EntityKind is the short name used in audit details and purge registration.
type Entity interface {
	GetID() uint
	IsDeleted() bool
	EntityKind() string
}
