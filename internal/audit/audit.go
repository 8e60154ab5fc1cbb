// Package audit appends AuditLog rows for every write the store reports and
// lets administrators query them. Rows are never updated; the only mutation
// is detaching the actor of a purged user.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/diewo77/go-asso/internal/auth"
	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/metrics"
	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Recorder writes audit rows. It implements store.Observer so it can be
// registered on the write-path hooks.
type Recorder struct {
	db      *gorm.DB
	clock   clock.Clock
	metrics metrics.Recorder

	mu   sync.Mutex
	last time.Time
}

// NewRecorder returns a Recorder. m may be nil.
func NewRecorder(db *gorm.DB, clk clock.Clock, m metrics.Recorder) *Recorder {
	if m == nil {
		m = (*metrics.Collector)(nil)
	}
	return &Recorder{db: db, clock: clk, metrics: m}
}

// stamp returns the clock reading, bumped past the previous stamp when the
// clock has not moved, so timestamps handed out are strictly increasing.
func (r *Recorder) stamp() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now().UTC().Truncate(time.Microsecond)
	if !now.After(r.last) {
		now = r.last.Add(time.Microsecond)
	}
	r.last = now
	return now
}

// Observe records a store event in the transaction of the write.
func (r *Recorder) Observe(tx *gorm.DB, ev store.Event) error {
	details := map[string]any{"kind": ev.Kind, "id": ev.EntityID}
	if len(ev.Changes) > 0 {
		details["changes"] = ev.Changes
	}
	_, err := r.write(tx, ev.Actor, ev.Action, details, ev.IP)
	return err
}

// Record appends an entry outside of the write path (system events such as
// purge failures). The actor and IP default to those carried by ctx.
func (r *Recorder) Record(ctx context.Context, actor *uint, action string, details map[string]any, ip string) (*models.AuditLog, error) {
	if actor == nil {
		actor = auth.ActorFromContext(ctx)
	}
	if ip == "" {
		ip = auth.IPFromContext(ctx)
	}
	return r.write(r.db.WithContext(ctx), actor, action, details, ip)
}

func (r *Recorder) write(db *gorm.DB, actor *uint, action string, details map[string]any, ip string) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		ActorID:   actor,
		Action:    action,
		Details:   details,
		Timestamp: r.stamp(),
	}
	if ip != "" {
		entry.IP = &ip
	}
	if err := db.Omit(clause.Associations).Create(entry).Error; err != nil {
		return nil, &store.PersistenceError{Op: "record audit " + action, Err: err}
	}
	r.metrics.RecordAuditEvent(action)
	return entry, nil
}

// timestamp is a keyword in PostgreSQL; the column is always quoted.
var tsColumn = clause.Column{Name: "timestamp"}

// Filter narrows List. Nil fields do not filter.
type Filter struct {
	Action  *string
	ActorID *uint
	Kind    *string
	Since   *time.Time
	Until   *time.Time
}

// List returns matching entries, newest first, and the total match count.
// A limit <= 0 returns every match.
func (r *Recorder) List(ctx context.Context, f Filter, limit, offset int) ([]models.AuditLog, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if f.Action != nil {
		q = q.Where("action = ?", *f.Action)
	}
	if f.ActorID != nil {
		q = q.Where("actor_id = ?", *f.ActorID)
	}
	if f.Kind != nil {
		q = q.Where("details LIKE ?", `%"kind":"`+*f.Kind+`"%`)
	}
	if f.Since != nil {
		q = q.Where(clause.Gte{Column: tsColumn, Value: f.Since.UTC()})
	}
	if f.Until != nil {
		q = q.Where(clause.Lt{Column: tsColumn, Value: f.Until.UTC()})
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, &store.PersistenceError{Op: "count audit logs", Err: err}
	}
	q = q.Order(clause.OrderByColumn{Column: tsColumn, Desc: true}).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var out []models.AuditLog
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, &store.PersistenceError{Op: "list audit logs", Err: err}
	}
	return out, total, nil
}

// DetachActor nulls the actor of every entry written by userID, like the
// foreign key's ON DELETE SET NULL. It goes through the table, not the model,
// so the immutability hook does not fire.
func DetachActor(tx *gorm.DB, userID uint) (int64, error) {
	res := tx.Table("audit_logs").Where("actor_id = ?", userID).Update("actor_id", nil)
	if res.Error != nil {
		return 0, &store.PersistenceError{Op: "detach audit actor", Err: res.Error}
	}
	return res.RowsAffected, nil
}
