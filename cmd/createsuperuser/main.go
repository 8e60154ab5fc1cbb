// Command createsuperuser creates an active staff superuser account.
//
//	SUPERUSER_PASSWORD=... go run ./cmd/createsuperuser -email admin@example.org
package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/diewo77/go-asso/internal/audit"
	"github.com/diewo77/go-asso/internal/clock"
	"github.com/diewo77/go-asso/internal/config"
	"github.com/diewo77/go-asso/internal/db"
	"github.com/diewo77/go-asso/internal/i18n"
	"github.com/diewo77/go-asso/internal/logger"
	"github.com/diewo77/go-asso/internal/password"
	"github.com/diewo77/go-asso/internal/store"
	"github.com/rs/zerolog"
)

func main() {
	email := flag.String("email", "", "Email of the superuser")
	username := flag.String("username", "", "Optional username")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	pw := os.Getenv("SUPERUSER_PASSWORD")
	if *email == "" || pw == "" {
		log.Fatal().Msg("-email and SUPERUSER_PASSWORD are required")
	}

	clk, err := clock.NewSystem(cfg.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("clock")
	}
	ctx := context.Background()
	conn, err := db.Connect(ctx, cfg, clk, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	hooks := store.NewHooks()
	hooks.Register(audit.NewRecorder(conn, clk, nil))
	lc := store.NewLifecycle(conn, clk, hooks)
	policy := password.NewPolicy(cfg.MinPasswordLength)
	users := store.NewUserStore(lc, store.NewRoleStore(lc), policy, cfg.BcryptCost)

	u, err := users.CreateSuperuser(ctx, *email, pw, store.UserInput{Username: *username})
	var verr *password.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Info().Msg(policy.HelpText(i18n.DetectLanguage(os.Getenv("LANG"))))
		log.Fatal().Strs("rules", verr.Codes()).Msg("password rejected")
	case err != nil:
		log.Fatal().Err(err).Msg("create superuser")
	}
	log.Info().Uint("id", u.ID).Str("email", u.Email).Msg("superuser created")
}
