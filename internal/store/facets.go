package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/models"
	"gorm.io/gorm"
)

// Scope is a composable query facet. Every user facet states its full
// predicate, so chaining facets yields their conjunction.
type Scope = func(*gorm.DB) *gorm.DB

// Default keeps non-deleted rows. gorm already filters deleted_at for models
// embedding gorm.DeletedAt; the scope exists so callers can name it.
func Default(db *gorm.DB) *gorm.DB { return db }

// Deleted keeps soft-deleted rows only.
func Deleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Where("deleted_at IS NOT NULL")
}

// IncludeDeleted is the escape hatch that disables soft-delete filtering.
func IncludeDeleted(db *gorm.DB) *gorm.DB { return db.Unscoped() }

// ActiveUsers: is_active and not deleted.
func ActiveUsers(db *gorm.DB) *gorm.DB {
	return db.Where("users.is_active = ? AND users.deleted_at IS NULL", true)
}

// InactiveUsers: not is_active and not deleted.
func InactiveUsers(db *gorm.DB) *gorm.DB {
	return db.Where("users.is_active = ? AND users.deleted_at IS NULL", false)
}

// DeletedUsers: soft-deleted accounts, active or not.
func DeletedUsers(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Where("users.deleted_at IS NOT NULL")
}

// StaffUsers: is_staff, active and not deleted.
func StaffUsers(db *gorm.DB) *gorm.DB {
	return db.Where("users.is_staff = ? AND users.is_active = ? AND users.deleted_at IS NULL", true, true)
}

// UsersWithRole keeps active users whose role is named name. The role is
// matched through a subquery so applying the facet twice adds no join.
func UsersWithRole(name string) Scope {
	return func(db *gorm.DB) *gorm.DB {
		roles := db.Session(&gorm.Session{NewDB: true}).Table("roles").Select("id").Where("name = ?", name)
		return ActiveUsers(db).Where("users.role_id IN (?)", roles)
	}
}

// UsersActiveSince keeps active users who logged in at or after since.
func UsersActiveSince(since time.Time) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return ActiveUsers(db).Where("users.last_login >= ?", since.UTC())
	}
}

// DefaultRole keeps the non-deleted role flagged is_default.
func DefaultRole(db *gorm.DB) *gorm.DB {
	return db.Where("roles.is_default = ? AND roles.deleted_at IS NULL", true)
}

// ActiveRoles keeps non-deleted roles.
func ActiveRoles(db *gorm.DB) *gorm.DB {
	return db.Where("roles.deleted_at IS NULL")
}

// DeletedRoles keeps soft-deleted roles.
func DeletedRoles(db *gorm.DB) *gorm.DB {
	return db.Unscoped().Where("roles.deleted_at IS NOT NULL")
}

// facets records the scopes applied to a query by key, so applying the same
// facet twice is a no-op. facets values are immutable; each call returns a copy.
type facets struct {
	keys   []string
	scopes []Scope
}

func (f facets) with(key string, s Scope) facets {
	for _, k := range f.keys {
		if k == key {
			return f
		}
	}
	return facets{
		keys:   append(append([]string(nil), f.keys...), key),
		scopes: append(append([]Scope(nil), f.scopes...), s),
	}
}

// UserQuery is a chainable, immutable query over users.
type UserQuery struct {
	db     *gorm.DB
	clock  clock.Clock
	facets facets
}

func newUserQuery(db *gorm.DB, clk clock.Clock) *UserQuery {
	return &UserQuery{db: db, clock: clk}
}

func (q *UserQuery) with(key string, s Scope) *UserQuery {
	return &UserQuery{db: q.db, clock: q.clock, facets: q.facets.with(key, s)}
}

func (q *UserQuery) Active() *UserQuery { return q.with("active", ActiveUsers) }

func (q *UserQuery) Inactive() *UserQuery { return q.with("inactive", InactiveUsers) }

func (q *UserQuery) Deleted() *UserQuery { return q.with("deleted", DeletedUsers) }

func (q *UserQuery) Staff() *UserQuery { return q.with("staff", StaffUsers) }

// All includes soft-deleted users.
func (q *UserQuery) All() *UserQuery { return q.with("all", IncludeDeleted) }

func (q *UserQuery) WithRole(name string) *UserQuery {
	return q.with("with_role:"+name, UsersWithRole(name))
}

// RecentlyActive keeps active users seen in the last days days.
func (q *UserQuery) RecentlyActive(days int) *UserQuery {
	since := q.clock.Now().AddDate(0, 0, -days)
	return q.with("recently_active:"+strconv.Itoa(days), UsersActiveSince(since))
}

// Facets returns the applied facet keys in order.
func (q *UserQuery) Facets() []string { return append([]string(nil), q.facets.keys...) }

func (q *UserQuery) build(ctx context.Context) *gorm.DB {
	return q.db.WithContext(ctx).Model(&models.User{}).Scopes(q.facets.scopes...)
}

func (q *UserQuery) Find(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := q.build(ctx).Order("users.id").Find(&users).Error; err != nil {
		return nil, wrap("find users", err)
	}
	return users, nil
}

// First returns the lowest-id match, nil when nothing matches.
func (q *UserQuery) First(ctx context.Context) (*models.User, error) {
	var u models.User
	err := q.build(ctx).Order("users.id").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("first user", err)
	}
	return &u, nil
}

func (q *UserQuery) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.build(ctx).Count(&n).Error; err != nil {
		return 0, wrap("count users", err)
	}
	return n, nil
}

func (q *UserQuery) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := q.build(ctx).Order("users.id").Pluck("users.id", &ids).Error; err != nil {
		return nil, wrap("user ids", err)
	}
	return ids, nil
}

// RoleQuery is a chainable, immutable query over roles.
type RoleQuery struct {
	db     *gorm.DB
	facets facets
}

func (q *RoleQuery) with(key string, s Scope) *RoleQuery {
	return &RoleQuery{db: q.db, facets: q.facets.with(key, s)}
}

func (q *RoleQuery) Active() *RoleQuery { return q.with("active", ActiveRoles) }

func (q *RoleQuery) Default() *RoleQuery { return q.with("default", DefaultRole) }

func (q *RoleQuery) Deleted() *RoleQuery { return q.with("deleted", DeletedRoles) }

func (q *RoleQuery) All() *RoleQuery { return q.with("all", IncludeDeleted) }

func (q *RoleQuery) build(ctx context.Context) *gorm.DB {
	return q.db.WithContext(ctx).Model(&models.Role{}).Scopes(q.facets.scopes...)
}

func (q *RoleQuery) Find(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := q.build(ctx).Order("roles.name").Find(&roles).Error; err != nil {
		return nil, wrap("find roles", err)
	}
	return roles, nil
}

func (q *RoleQuery) First(ctx context.Context) (*models.Role, error) {
	var r models.Role
	err := q.build(ctx).Order("roles.id").First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("first role", err)
	}
	return &r, nil
}

func (q *RoleQuery) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.build(ctx).Count(&n).Error; err != nil {
		return 0, wrap("count roles", err)
	}
	return n, nil
}
