package models

// Role is a named group users can belong to.
// At most one role is flagged IsDefault; it is given to new users without an explicit role.
type Role struct {
	Base
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `gorm:"size:500" json:"description,omitempty"`
	// The partial unique index enforces the single default at the database level.
	IsDefault bool `gorm:"not null;default:false;uniqueIndex:idx_roles_single_default,where:is_default = true" json:"is_default"`

	Users []User `gorm:"foreignKey:RoleID" json:"users,omitempty"`
}

func (Role) EntityKind() string { return KindRole }
