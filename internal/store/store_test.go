package store

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/models"
	"github.com/diewo77/go-asso/internal/password"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(_ *gorm.DB, ev Event) error {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return nil
}

func (l *eventLog) actions(kind string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev.Action)
		}
	}
	return out
}

func (l *eventLog) last() Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.events[len(l.events)-1]
}

type testEnv struct {
	db      *gorm.DB
	clk     *clock.Mock
	lc      *Lifecycle
	log     *eventLog
	roles   *RoleStore
	users   *UserStore
	statuts *StatutStore
}

// openTestDB opens a private in-memory SQLite database for the calling test.
func openTestDB(t *testing.T, clk clock.Clock) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_", "#", "_").Replace(t.Name())
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
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := clock.NewMock(t0)
	db := openTestDB(t, clk)
	hooks := NewHooks()
	log := &eventLog{}
	hooks.Register(log)
	lc := NewLifecycle(db, clk, hooks)
	roles := NewRoleStore(lc)
	return &testEnv{
		db:      db,
		clk:     clk,
		lc:      lc,
		log:     log,
		roles:   roles,
		users:   NewUserStore(lc, roles, password.NewPolicy(password.DefaultMinLength), bcrypt.MinCost),
		statuts: NewStatutStore(lc),
	}
}

func boolPtr(b bool) *bool { return &b }

// mustUser creates an account with a valid password.
func (e *testEnv) mustUser(t *testing.T, email string, in UserInput) *models.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), email, "Str0ng!Pass", in)
	require.NoError(t, err)
	return u
}
