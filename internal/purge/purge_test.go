package purge

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diewo77/go-asso/internal/audit"
	"github.com/diewo77/go-asso/internal/auth"
	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/metrics"
	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/password"
	"github.com/diewo77/go-asso/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type fixture struct {
	db     *gorm.DB
	clk    *clock.Mock
	lc     *store.Lifecycle
	rec    *audit.Recorder
	users  *store.UserStore
	roles  *store.RoleStore
	reg    *prometheus.Registry
	worker *Worker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock(t0)
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		NowFunc:        clock.UTC(clk),
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.All()...))

	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)
	rec := audit.NewRecorder(db, clk, m)
	hooks := store.NewHooks()
	hooks.Register(rec)
	lc := store.NewLifecycle(db, clk, hooks)
	roles := store.NewRoleStore(lc)
	return &fixture{
		db:     db,
		clk:    clk,
		lc:     lc,
		rec:    rec,
		users:  store.NewUserStore(lc, roles, password.NewPolicy(0), bcrypt.MinCost),
		roles:  roles,
		reg:    reg,
		worker: NewWorker(lc, rec, m, zerolog.Nop(), 90),
	}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), email, "Str0ng!Pass", store.UserInput{})
	require.NoError(t, err)
	return u
}

func (f *fixture) exists(t *testing.T, model any, id uint) bool {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Unscoped().Model(model).Where("id = ?", id).Count(&n).Error)
	return n > 0
}

func TestPurgeRespectsRetention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	old := f.user(t, "olga@x.io")
	recent := f.user(t, "remi@x.io")
	live := f.user(t, "lucie@x.io")

	require.NoError(t, f.users.SoftDelete(ctx, old.ID))
	f.clk.Advance(70 * day)
	require.NoError(t, f.users.SoftDelete(ctx, recent.ID))
	f.clk.Advance(30 * day)

	n, err := f.worker.Purge(ctx, models.KindUser, 90)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.False(t, f.exists(t, &models.User{}, old.ID), "deleted 100 days ago must be gone")
	assert.True(t, f.exists(t, &models.User{}, recent.ID), "deleted 30 days ago must stay")
	assert.True(t, f.exists(t, &models.User{}, live.ID))

	purged, total, err := f.rec.List(ctx, audit.Filter{Action: ptr(models.ActionPurged)}, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Nil(t, purged[0].ActorID)
	assert.Equal(t, models.KindUser, purged[0].Details["kind"])
	assert.EqualValues(t, old.ID, purged[0].Details["id"])

	// Nothing left past the horizon: a second pass is a no-op.
	n, err = f.worker.Purge(ctx, models.KindUser, 90)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPurgeIgnoresRequestActor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@x.io")
	gone := f.user(t, "gaston@x.io")
	require.NoError(t, f.users.SoftDelete(ctx, gone.ID))
	f.clk.Advance(100 * day)

	asAdmin := auth.WithUserID(ctx, admin.ID)
	n, err := f.worker.Purge(asAdmin, models.KindUser, 90)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	purged, total, err := f.rec.List(ctx, audit.Filter{Action: ptr(models.ActionPurged)}, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Nil(t, purged[0].ActorID, "purge is a system action")

	f.worker.fail(asAdmin, models.KindRole, 0, errors.New("boom"))
	failed, total, err := f.rec.List(ctx, audit.Filter{Action: ptr(models.ActionPurgeFailed)}, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Nil(t, failed[0].ActorID)

	// The caller's context still carries its actor.
	id, ok := auth.UserIDFromContext(asAdmin)
	assert.True(t, ok)
	assert.Equal(t, admin.ID, id)
}

func TestPurgeDetachesReferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "alain@x.io")
	_ = f.user(t, "bea@x.io")

	// An audit row authored by admin, and a member linked to admin.
	_, err := f.users.CreateUser(auth.WithUserID(ctx, admin.ID), "cyril@x.io", "Str0ng!Pass", store.UserInput{})
	require.NoError(t, err)
	st := &models.Statut{Name: "Actif", TypeEntite: models.TypeMembre}
	require.NoError(t, f.lc.Save(ctx, st))
	m := &models.Membre{Nom: "Martin", UserID: &admin.ID, DateAdhesion: t0, StatutID: st.ID}
	require.NoError(t, f.lc.Save(ctx, m))

	require.NoError(t, f.users.SoftDelete(ctx, admin.ID))
	f.clk.Advance(91 * day)

	n, err := f.worker.Purge(ctx, models.KindUser, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, total, err := f.rec.List(ctx, audit.Filter{ActorID: &admin.ID}, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)

	var got models.Membre
	require.NoError(t, f.db.First(&got, m.ID).Error)
	assert.Nil(t, got.UserID)
}

func TestPurgeRoleClearsUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.roles.Create(ctx, "ancien bureau", "", false)
	require.NoError(t, err)
	u, err := f.users.CreateUser(ctx, "diane@x.io", "Str0ng!Pass", store.UserInput{RoleID: &r.ID})
	require.NoError(t, err)

	require.NoError(t, f.roles.SoftDelete(ctx, r.ID))
	f.clk.Advance(100 * day)

	n, err := f.worker.Purge(ctx, models.KindRole, 90)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.users.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Nil(t, got.RoleID)
}

func TestPurgeUnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.worker.Purge(context.Background(), "facture", 90)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestRunContinuesPastFailingKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	boom := errors.New("disk on fire")
	f.worker.Register(Kind{
		Name: models.KindEvenement,
		New:  func() models.Entity { return &models.Evenement{} },
		Detach: func(*gorm.DB, uint) error {
			return boom
		},
	})

	st := &models.Statut{Name: "Planifié", TypeEntite: models.TypeEvenement}
	require.NoError(t, f.lc.Save(ctx, st))
	ev := &models.Evenement{Titre: "AG", DateDebut: t0, StatutID: st.ID}
	require.NoError(t, f.lc.Save(ctx, ev))
	require.NoError(t, f.lc.Delete(ctx, ev, false))
	u := f.user(t, "gilles@x.io")
	require.NoError(t, f.users.SoftDelete(ctx, u.ID))
	f.clk.Advance(120 * day)

	res := f.worker.Run(ctx)
	assert.Equal(t, 1, res.Counts[models.KindUser])
	assert.Equal(t, 0, res.Counts[models.KindEvenement])
	require.Contains(t, res.Errors, models.KindEvenement)
	assert.ErrorIs(t, res.Errors[models.KindEvenement], boom)
	assert.NotContains(t, res.Errors, models.KindUser)
	assert.Equal(t, 1, res.Total())

	assert.True(t, f.exists(t, &models.Evenement{}, ev.ID), "failed row is rolled back")

	failed, total, err := f.rec.List(ctx, audit.Filter{Action: ptr(models.ActionPurgeFailed)}, 0, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, models.KindEvenement, failed[0].Details["kind"])

	rows, err := testutil.GatherAndCount(f.reg, "asso_purge_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
}

func TestKindsOrder(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"paiement", "cotisation", "membre", "evenement", "user", "role"}, f.worker.Kinds())
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	s := &Scheduler{
		run:      func(context.Context) Result { runs.Add(1); return Result{} },
		interval: 5 * time.Millisecond,
		log:      zerolog.Nop(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func ptr[T any](v T) *T { return &v }
