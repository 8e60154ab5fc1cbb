package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/config"
	"github.com/diewo77/go-asso/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// Registers the postgres database driver for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Connection retry policy.
var (
	connectAttempts = 10
	connectDelay    = 2 * time.Second
)

// requiredTables must exist once migrations have run.
var requiredTables = []string{"roles", "users", "statuts", "audit_logs"}

// Open opens a gorm handle whose timestamps come from clk. Unique violations
// are translated to gorm.ErrDuplicatedKey.
func Open(driver, dsn string, clk clock.Clock, debug bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(NormalizeDSN(dsn))
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		NowFunc:        clock.UTC(clk),
		TranslateError: true,
	})
}

// Connect opens the database with retries (Postgres may still be starting)
// and applies the schema. Seeding is left to the caller (see Seed) since it
// writes through the audited lifecycle.
func Connect(ctx context.Context, cfg *config.Config, clk clock.Clock, log zerolog.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error
	for i := 0; i < connectAttempts; i++ {
		db, err = Open(cfg.DatabaseDriver, cfg.DatabaseDSN, clk, cfg.DBDebug)
		if err == nil {
			err = db.WithContext(ctx).Exec("SELECT 1").Error
		}
		if err == nil {
			break
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("max", connectAttempts).Msg("database not ready, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectDelay):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	log.Info().Str("driver", cfg.DatabaseDriver).Str("dsn", MaskDSN(cfg.DatabaseDSN)).Msg("database connected")

	if err := Migrate(db, cfg.DatabaseDriver, cfg.DatabaseDSN, cfg.Migrations, log); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate applies the schema: the embedded SQL migrations when useSQL is set
// and the driver is postgres, AutoMigrate otherwise.
func Migrate(db *gorm.DB, driver, dsn string, useSQL bool, log zerolog.Logger) error {
	if useSQL && driver == "postgres" {
		if err := runSQLMigrations(dsn, log); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if useSQL {
			log.Warn().Str("driver", driver).Msg("sql migrations only exist for postgres, using AutoMigrate")
		}
		for _, m := range models.All() {
			if err := db.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	}
	for _, table := range requiredTables {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func newMigrator(dsn string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, ToURLDSN(NormalizeDSN(dsn)))
}

// runSQLMigrations applies the embedded migrations with golang-migrate.
func runSQLMigrations(dsn string, log zerolog.Logger) error {
	m, err := newMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
	return nil
}
