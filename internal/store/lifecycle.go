package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/diewo77/go-asso/internal/auth"
	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Columns never reported in an update diff.
var diffSkipped = map[string]bool{"created_at": true, "updated_at": true}

// Columns reported as changed without their values.
var diffRedacted = map[string]bool{"password_hash": true, "activation_key": true}

const redacted = "***"

// Lifecycle is the write path shared by every repository: it stamps the
// lifecycle columns, soft or hard deletes, and notifies observers inside the
// transaction of the write.
type Lifecycle struct {
	db    *gorm.DB
	clock clock.Clock
	hooks *Hooks
}

// NewLifecycle binds db to clk. hooks may be nil (no observers).
func NewLifecycle(db *gorm.DB, clk clock.Clock, hooks *Hooks) *Lifecycle {
	return &Lifecycle{db: db, clock: clk, hooks: hooks}
}

// DB returns the underlying handle, scoped to ctx.
func (l *Lifecycle) DB(ctx context.Context) *gorm.DB { return l.db.WithContext(ctx) }

// Clock returns the clock that stamps every write.
func (l *Lifecycle) Clock() clock.Clock { return l.clock }

// Hooks returns the observer registry, nil when none was given.
func (l *Lifecycle) Hooks() *Hooks { return l.hooks }

// Now is the clock reading stored in the database (UTC).
func (l *Lifecycle) Now() time.Time { return l.clock.Now().UTC() }

// Transaction runs fn with a Lifecycle bound to a single transaction. Nested
// calls reuse a savepoint of the outer transaction.
func (l *Lifecycle) Transaction(ctx context.Context, fn func(tx *Lifecycle) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Lifecycle{db: tx, clock: l.clock, hooks: l.hooks})
	})
}

// Save inserts e when it has no id yet, otherwise locks the stored row and
// overwrites it. e must be a pointer to a model. Soft-deleted rows cannot be
// saved; Restore them first.
func (l *Lifecycle) Save(ctx context.Context, e models.Entity) error {
	op := "save " + e.EntityKind()
	err := l.Transaction(ctx, func(tx *Lifecycle) error {
		if e.GetID() == 0 {
			if err := tx.db.Omit(clause.Associations).Create(e).Error; err != nil {
				return err
			}
			return tx.emit(ctx, models.ActionCreated, e, nil)
		}
		before, err := tx.lockRow(e, false)
		if err != nil {
			return err
		}
		if err := tx.db.Omit(clause.Associations).Save(e).Error; err != nil {
			return err
		}
		changes, err := tx.diff(ctx, before, e)
		if err != nil {
			return err
		}
		return tx.emit(ctx, models.ActionUpdated, e, changes)
	})
	return wrap(op, err)
}

// Update writes the given columns of an existing, non-deleted row and reloads e.
func (l *Lifecycle) Update(ctx context.Context, e models.Entity, values map[string]any) error {
	return wrap("update "+e.EntityKind(), l.update(ctx, e, values, false))
}

func (l *Lifecycle) update(ctx context.Context, e models.Entity, values map[string]any, includeDeleted bool) error {
	if e.GetID() == 0 {
		return ErrNotFound
	}
	return l.Transaction(ctx, func(tx *Lifecycle) error {
		before, err := tx.lockRow(e, includeDeleted)
		if err != nil {
			return err
		}
		db := tx.db
		if includeDeleted {
			db = db.Unscoped()
		}
		if err := db.Model(e).Omit(clause.Associations).Updates(values).Error; err != nil {
			return err
		}
		if err := tx.db.Unscoped().First(e, e.GetID()).Error; err != nil {
			return err
		}
		changes, err := tx.diff(ctx, before, e)
		if err != nil {
			return err
		}
		return tx.emit(ctx, models.ActionUpdated, e, changes)
	})
}

// Delete soft-deletes e (stamps deleted_at) or, with hard, removes the row.
// Soft-deleting a row that is already deleted is a no-op and emits nothing.
// Models without a deleted_at column can only be hard-deleted.
func (l *Lifecycle) Delete(ctx context.Context, e models.Entity, hard bool) error {
	op := "delete " + e.EntityKind()
	if e.GetID() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	err := l.Transaction(ctx, func(tx *Lifecycle) error {
		if hard {
			res := tx.db.Unscoped().Delete(e)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil
			}
			return tx.emit(ctx, models.ActionPurged, e, nil)
		}
		soft, err := tx.softDeletable(e)
		if err != nil {
			return err
		}
		if !soft {
			return fmt.Errorf("%w: %s has no soft delete", ErrInvariantViolation, e.EntityKind())
		}
		res := tx.db.Delete(e)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.db.Unscoped().First(e, e.GetID()).Error; err != nil {
			return err
		}
		return tx.emit(ctx, models.ActionDeleted, e, nil)
	})
	return wrap(op, err)
}

// Restore clears deleted_at. Restoring a live row is a no-op.
func (l *Lifecycle) Restore(ctx context.Context, e models.Entity) error {
	op := "restore " + e.EntityKind()
	if e.GetID() == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	err := l.Transaction(ctx, func(tx *Lifecycle) error {
		before, err := tx.lockRow(e, true)
		if err != nil {
			return err
		}
		if !before.IsDeleted() {
			return tx.db.Unscoped().First(e, e.GetID()).Error
		}
		if err := tx.db.Unscoped().Model(e).Update("deleted_at", nil).Error; err != nil {
			return err
		}
		if err := tx.db.Unscoped().First(e, e.GetID()).Error; err != nil {
			return err
		}
		changes, err := tx.diff(ctx, before, e)
		if err != nil {
			return err
		}
		return tx.emit(ctx, models.ActionUpdated, e, changes)
	})
	return wrap(op, err)
}

// lockRow loads a fresh copy of e's stored row with FOR UPDATE.
func (l *Lifecycle) lockRow(e models.Entity, includeDeleted bool) (models.Entity, error) {
	t := reflect.TypeOf(e)
	if t.Kind() != reflect.Pointer {
		return nil, fmt.Errorf("%w: %T is not a pointer", ErrInvariantViolation, e)
	}
	before, ok := reflect.New(t.Elem()).Interface().(models.Entity)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrInvariantViolation, e)
	}
	db := l.db
	if includeDeleted {
		db = db.Unscoped()
	}
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(before, e.GetID()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return before, err
}

func (l *Lifecycle) schemaOf(v any) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: l.db}
	if err := stmt.Parse(v); err != nil {
		return nil, err
	}
	return stmt.Schema, nil
}

func (l *Lifecycle) softDeletable(e models.Entity) (bool, error) {
	s, err := l.schemaOf(e)
	if err != nil {
		return false, err
	}
	f := s.LookUpField("deleted_at")
	return f != nil && f.FieldType == reflect.TypeOf(gorm.DeletedAt{}), nil
}

// diff lists the persisted columns that differ between before and after.
func (l *Lifecycle) diff(ctx context.Context, before, after models.Entity) (map[string]Change, error) {
	s, err := l.schemaOf(after)
	if err != nil {
		return nil, err
	}
	bv := reflect.Indirect(reflect.ValueOf(before))
	av := reflect.Indirect(reflect.ValueOf(after))
	changes := make(map[string]Change)
	for _, f := range s.Fields {
		if f.DBName == "" || f.DataType == "" || diffSkipped[f.DBName] {
			continue
		}
		ov, _ := f.ValueOf(ctx, bv)
		nv, _ := f.ValueOf(ctx, av)
		ov, nv = plain(ov), plain(nv)
		if sameValue(ov, nv) {
			continue
		}
		if diffRedacted[f.DBName] {
			changes[f.DBName] = Change{From: redacted, To: redacted}
			continue
		}
		changes[f.DBName] = Change{From: ov, To: nv}
	}
	return changes, nil
}

// plain dereferences pointers and unwraps gorm.DeletedAt so diffs hold
// JSON-friendly values.
func plain(v any) any {
	switch x := v.(type) {
	case gorm.DeletedAt:
		if !x.Valid {
			return nil
		}
		return x.Time
	case *gorm.DeletedAt:
		if x == nil || !x.Valid {
			return nil
		}
		return x.Time
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		return rv.Elem().Interface()
	}
	return v
}

func sameValue(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func (l *Lifecycle) emit(ctx context.Context, action string, e models.Entity, changes map[string]Change) error {
	return l.hooks.emit(l.db, Event{
		Action:   action,
		Kind:     e.EntityKind(),
		EntityID: e.GetID(),
		Changes:  changes,
		Actor:    auth.ActorFromContext(ctx),
		IP:       auth.IPFromContext(ctx),
	})
}
