package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/go-asso/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleStore is the role registry. At most one role is the default.
type RoleStore struct {
	lc *Lifecycle
}

// NewRoleStore returns a role registry writing through lc.
func NewRoleStore(lc *Lifecycle) *RoleStore { return &RoleStore{lc: lc} }

// Query starts a facet chain over roles.
func (s *RoleStore) Query() *RoleQuery { return &RoleQuery{db: s.lc.db} }

// Create registers a role. With isDefault the previous default loses its flag
// in the same transaction.
func (s *RoleStore) Create(ctx context.Context, name, description string, isDefault bool) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name required", ErrInvariantViolation)
	}
	r := &models.Role{Name: name, Description: description}
	err := s.lc.Transaction(ctx, func(tx *Lifecycle) error {
		var taken int64
		if err := tx.db.Unscoped().Model(&models.Role{}).Where("name = ?", name).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("%w: role %q already exists", ErrInvariantViolation, name)
		}
		if isDefault {
			if err := tx.clearDefault(ctx); err != nil {
				return err
			}
			r.IsDefault = true
		}
		return tx.Save(ctx, r)
	})
	if err != nil {
		return nil, wrap("create role", err)
	}
	return r, nil
}

// SetDefault makes role id the default. The previous default, deleted or
// not, is locked and cleared first in the same transaction; a concurrent
// SetDefault that slips past the lock hits the partial unique index and
// returns ErrConcurrencyConflict.
func (s *RoleStore) SetDefault(ctx context.Context, id uint) error {
	err := s.lc.Transaction(ctx, func(tx *Lifecycle) error {
		var r models.Role
		err := tx.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&r, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if r.IsDefault {
			return nil
		}
		if err := tx.clearDefault(ctx); err != nil {
			return err
		}
		return tx.update(ctx, &r, map[string]any{"is_default": true}, false)
	})
	return wrap("set default role", err)
}

// clearDefault unflags every default role, soft-deleted ones included.
func (l *Lifecycle) clearDefault(ctx context.Context) error {
	var prev []models.Role
	if err := l.db.Unscoped().Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("is_default = ?", true).Find(&prev).Error; err != nil {
		return err
	}
	for i := range prev {
		if err := l.update(ctx, &prev[i], map[string]any{"is_default": false}, true); err != nil {
			return err
		}
	}
	return nil
}

// SoftDelete hides a role. Deleting the default is allowed; Default then
// returns nil until another role is promoted.
func (s *RoleStore) SoftDelete(ctx context.Context, id uint) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrNotFound
	}
	return s.lc.Delete(ctx, r, false)
}

// Restore brings a soft-deleted role back.
func (s *RoleStore) Restore(ctx context.Context, id uint) (*models.Role, error) {
	r := &models.Role{Base: models.Base{ID: id}}
	if err := s.lc.Restore(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the live default role, nil when there is none.
func (s *RoleStore) Default(ctx context.Context) (*models.Role, error) {
	return s.Query().Default().First(ctx)
}

// Active lists non-deleted roles by name.
func (s *RoleStore) Active(ctx context.Context) ([]models.Role, error) {
	return s.Query().Active().Find(ctx)
}

// Get returns a non-deleted role, nil when absent.
func (s *RoleStore) Get(ctx context.Context, id uint) (*models.Role, error) {
	var r models.Role
	err := s.lc.DB(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("get role", err)
	}
	return &r, nil
}

// ByName returns a non-deleted role by exact name, nil when absent.
func (s *RoleStore) ByName(ctx context.Context, name string) (*models.Role, error) {
	var r models.Role
	err := s.lc.DB(ctx).Where("name = ?", name).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("role by name", err)
	}
	return &r, nil
}
