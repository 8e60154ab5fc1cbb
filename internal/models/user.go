package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account of the association (adhérent, bureau, admin).
// Users are identified by their normalized email; the password is never stored in clear.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index;index:idx_users_role_active,priority:3" json:"deleted_at,omitempty"`

	Email        string `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"` // bcrypt
	Username     string `gorm:"size:150" json:"username,omitempty"`
	FirstName    string `gorm:"size:150" json:"first_name,omitempty"`
	LastName     string `gorm:"size:150" json:"last_name,omitempty"`

	IsActive    bool `gorm:"not null;default:false;index:idx_users_role_active,priority:2" json:"is_active"`
	IsStaff     bool `gorm:"not null;default:false" json:"is_staff"`
	IsSuperuser bool `gorm:"not null;default:false" json:"is_superuser"`

	// ActivationKey is consumed once to flip IsActive; nil once the account is active.
	ActivationKey *string    `gorm:"index;size:64" json:"-"`
	LastLogin     *time.Time `json:"last_login,omitempty"` // derniere_connexion

	// RoleID is optional; nil means no role (new users get the default role when one exists).
	RoleID *uint `gorm:"index:idx_users_role_active,priority:1" json:"role_id,omitempty"`
	Role   *Role `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL" json:"role,omitempty"`
}

func (u User) GetID() uint { return u.ID }
func (u User) IsDeleted() bool { return u.DeletedAt.Valid }
func (u User) EntityKind() string { return KindUser }

// FullName returns "Prénom Nom" or the email when both are empty.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	}
	return u.Email
}
