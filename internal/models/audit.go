package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Audit actions emitted by the write path.
const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionPurged      = "purged"
	ActionPurgeFailed = "purge_failed"
)

// ErrAuditLogImmutable is returned when something tries to update an audit row.
var ErrAuditLogImmutable = errors.New("audit_log_immutable")

// AuditLog is an append-only record of a domain mutation.
// Actor is nil for system actions, and nulled when the actor is purged.
type AuditLog struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	ActorID   *uint          `gorm:"index" json:"actor_id,omitempty"` // qui a fait la modification
	Actor     *User          `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"-"`
	Action    string         `gorm:"size:32;not null;index" json:"action"`
	Details   map[string]any `gorm:"serializer:json;type:text" json:"details"`
	IP        *string        `gorm:"size:64" json:"ip,omitempty"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a AuditLog) GetID() uint { return a.ID }
func (AuditLog) IsDeleted() bool { return false }
func (AuditLog) EntityKind() string { return KindAuditLog }

// BeforeUpdate keeps the log append-only.
func (a *AuditLog) BeforeUpdate(tx *gorm.DB) error { return ErrAuditLogImmutable }
