package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/config"
	"github.com/diewo77/go-asso/internal/db"
	"github.com/diewo77/go-asso/internal/logger"
	"github.com/diewo77/go-asso/internal/metrics"
	"github.com/diewo77/go-asso/internal/purge"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	purgeNowFlag    = flag.Bool("purge-now", false, "Run one purge pass and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	clk, err := clock.NewSystem(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("clock")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, err := db.Connect(ctx, cfg, clk, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if *migrateOnlyFlag {
		log.Info().Msg("migrations completed successfully")
		return
	}

	app := NewApp(cfg, conn, clk, log)
	if cfg.Seed {
		if err := db.Seed(ctx, app.Lifecycle, log); err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
	}

	if *reclassifyFlag {
		runReclassifyStatuts(ctx, app, log)
		return
	}
	if *purgeNowFlag {
		res := app.Purger.Run(ctx)
		if len(res.Errors) > 0 {
			os.Exit(1)
		}
		return
	}

	srv := metrics.NewServer(cfg.MetricsAddr, app.Registry)
	scheduler := purge.NewScheduler(app.Purger, cfg.PurgeInterval, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scheduler.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Str("env", cfg.Env).Msg("metrics server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
		os.Exit(1)
	}
	log.Info().Msg("stopped gracefully")
}
