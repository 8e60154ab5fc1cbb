// Package purge hard-deletes rows that have been soft-deleted for longer than
// the retention period.
package purge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-asso/internal/audit"
	"github.com/diewo77/go-asso/internal/auth"
	"github.com/diewo77/go-asso/internal/metrics"
	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/store"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultRetentionDays is used when no retention is configured.
const DefaultRetentionDays = 90

// ErrUnknownKind is returned by Purge for a kind nobody registered.
var ErrUnknownKind = errors.New("unknown purge kind")

// Kind is a purgeable entity type.
type Kind struct {
	Name string
	// New returns a pointer to a zero value of the model.
	New func() models.Entity
	// Detach clears references to row id before it is removed. Optional.
	Detach func(tx *gorm.DB, id uint) error
}

// DefaultKinds lists every soft-deletable entity, dependents first.
func DefaultKinds() []Kind {
	return []Kind{
		{Name: models.KindPaiement, New: func() models.Entity { return &models.Paiement{} }},
		{Name: models.KindCotisation, New: func() models.Entity { return &models.Cotisation{} }},
		{Name: models.KindMembre, New: func() models.Entity { return &models.Membre{} }},
		{Name: models.KindEvenement, New: func() models.Entity { return &models.Evenement{} }},
		{Name: models.KindUser, New: func() models.Entity { return &models.User{} }, Detach: detachUser},
		{Name: models.KindRole, New: func() models.Entity { return &models.Role{} }, Detach: detachRole},
	}
}

func detachUser(tx *gorm.DB, id uint) error {
	if _, err := audit.DetachActor(tx, id); err != nil {
		return err
	}
	return tx.Table("membres").Where("user_id = ?", id).Update("user_id", nil).Error
}

func detachRole(tx *gorm.DB, id uint) error {
	return tx.Table("users").Where("role_id = ?", id).Update("role_id", nil).Error
}

// Result reports a Run: rows removed per kind and the kinds that failed.
type Result struct {
	Counts map[string]int
	Errors map[string]error
}

// Total is the number of rows removed across kinds.
func (r Result) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// Worker removes expired soft-deleted rows.
type Worker struct {
	lc            *store.Lifecycle
	recorder      *audit.Recorder
	metrics       metrics.Recorder
	log           zerolog.Logger
	retentionDays int
	kinds         []Kind
}

// NewWorker returns a worker with DefaultKinds registered. m may be nil;
// retentionDays <= 0 means DefaultRetentionDays.
func NewWorker(lc *store.Lifecycle, rec *audit.Recorder, m metrics.Recorder, log zerolog.Logger, retentionDays int) *Worker {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if m == nil {
		m = (*metrics.Collector)(nil)
	}
	return &Worker{
		lc:            lc,
		recorder:      rec,
		metrics:       m,
		log:           log.With().Str("component", "purge").Logger(),
		retentionDays: retentionDays,
		kinds:         DefaultKinds(),
	}
}

// Register adds or replaces a kind.
func (w *Worker) Register(k Kind) {
	for i := range w.kinds {
		if w.kinds[i].Name == k.Name {
			w.kinds[i] = k
			return
		}
	}
	w.kinds = append(w.kinds, k)
}

// Kinds returns the registered kind names in processing order.
func (w *Worker) Kinds() []string {
	out := make([]string, len(w.kinds))
	for i, k := range w.kinds {
		out[i] = k.Name
	}
	return out
}

func (w *Worker) kind(name string) (Kind, bool) {
	for _, k := range w.kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// Purge hard-deletes rows of kind soft-deleted more than days ago. Each row
// is removed in its own transaction; a failing row is skipped and reported
// in the returned error while the others proceed.
func (w *Worker) Purge(ctx context.Context, kind string, days int) (int, error) {
	k, ok := w.kind(kind)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	ctx = auth.WithoutActor(ctx)
	if days <= 0 {
		days = w.retentionDays
	}
	horizon := w.lc.Now().AddDate(0, 0, -days)

	var ids []uint
	err := w.lc.DB(ctx).Unscoped().Model(k.New()).
		Where("deleted_at IS NOT NULL AND deleted_at < ?", horizon).
		Order("id").Pluck("id", &ids).Error
	if err != nil {
		return 0, &store.PersistenceError{Op: "select expired " + kind, Err: err}
	}

	purged := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		removed, err := w.purgeRow(ctx, k, id, horizon)
		if err != nil {
			w.log.Warn().Err(err).Str("kind", kind).Uint("id", id).Msg("purge row failed")
			errs = append(errs, fmt.Errorf("%s %d: %w", kind, id, err))
			continue
		}
		if removed {
			purged++
		}
	}
	return purged, errors.Join(errs...)
}

// purgeRow re-reads the row under lock so a row restored since the scan is left alone.
func (w *Worker) purgeRow(ctx context.Context, k Kind, id uint, horizon time.Time) (bool, error) {
	removed := false
	err := w.lc.Transaction(ctx, func(tx *store.Lifecycle) error {
		e := k.New()
		err := tx.DB(ctx).Unscoped().
			Where("id = ? AND deleted_at IS NOT NULL AND deleted_at < ?", id, horizon).
			First(e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if k.Detach != nil {
			if err := k.Detach(tx.DB(ctx), id); err != nil {
				return err
			}
		}
		if err := tx.Delete(ctx, e, true); err != nil {
			return err
		}
		removed = true
		return nil
	})
	return removed, err
}

// Run purges every registered kind with the configured retention. A failing
// kind is logged, counted and audited as purge_failed; the others still run.
func (w *Worker) Run(ctx context.Context) Result {
	start := time.Now()
	res := Result{Counts: make(map[string]int), Errors: make(map[string]error)}
	for _, k := range w.kinds {
		if ctx.Err() != nil {
			break
		}
		n, err := w.Purge(ctx, k.Name, w.retentionDays)
		res.Counts[k.Name] = n
		w.metrics.RecordPurged(k.Name, n)
		if err != nil {
			res.Errors[k.Name] = err
			w.fail(ctx, k.Name, n, err)
		}
	}
	w.metrics.RecordPurgeDuration(time.Since(start))
	w.log.Info().
		Int("purged", res.Total()).
		Int("failed_kinds", len(res.Errors)).
		Int("retention_days", w.retentionDays).
		Msg("purge run finished")
	return res
}

func (w *Worker) fail(ctx context.Context, kind string, purged int, err error) {
	w.metrics.RecordPurgeFailure(kind)
	w.log.Error().Err(err).Str("kind", kind).Msg("purge failed")
	if w.recorder == nil {
		return
	}
	details := map[string]any{"kind": kind, "purged": purged, "error": err.Error()}
	if _, aerr := w.recorder.Record(auth.WithoutActor(context.WithoutCancel(ctx)), nil, models.ActionPurgeFailed, details, ""); aerr != nil {
		w.log.Error().Err(aerr).Str("kind", kind).Msg("could not audit purge failure")
	}
}
