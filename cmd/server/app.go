package main

import (
	"github.com/diewo77/go-asso/internal/audit"
	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/config"
	"github.com/diewo77/go-asso/internal/metrics"
	"github.com/diewo77/go-asso/internal/password"
	"github.com/diewo77/go-asso/internal/purge"
	"github.com/diewo77/go-asso/internal/services"
	"github.com/diewo77/go-asso/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// App holds the wired components of the process.
type App struct {
	Lifecycle   *store.Lifecycle
	Users       *store.UserStore
	Roles       *store.RoleStore
	Statuts     *store.StatutStore
	Association *services.AssociationService
	Audit       *audit.Recorder
	Purger      *purge.Worker
	Registry    *prometheus.Registry
}

// NewApp wires stores, the audit recorder and the purge worker on db.
func NewApp(cfg *config.Config, db *gorm.DB, clk clock.Clock, log zerolog.Logger) *App {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewCollector(reg)

	rec := audit.NewRecorder(db, clk, m)
	hooks := store.NewHooks()
	hooks.Register(rec)

	lc := store.NewLifecycle(db, clk, hooks)
	roles := store.NewRoleStore(lc)
	return &App{
		Lifecycle:   lc,
		Users:       store.NewUserStore(lc, roles, password.NewPolicy(cfg.MinPasswordLength), cfg.BcryptCost),
		Roles:       roles,
		Statuts:     store.NewStatutStore(lc),
		Association: services.NewAssociationService(lc),
		Audit:       rec,
		Purger:      purge.NewWorker(lc, rec, m, log, cfg.RetentionDays),
		Registry:    reg,
	}
}
