package db

import (
	"context"

	"github.com/diewo77/go-asso/internal/store"
	"github.com/rs/zerolog"
)

// DefaultRoleName is the role seeded as default when none exists.
const DefaultRoleName = "Adhérent"

// Seed inserts the default statuts and a default role. It is idempotent.
func Seed(ctx context.Context, lc *store.Lifecycle, log zerolog.Logger) error {
	created, err := store.NewStatutStore(lc).Seed(ctx)
	if err != nil {
		return err
	}

	roles := store.NewRoleStore(lc)
	def, err := roles.Default(ctx)
	if err != nil {
		return err
	}
	roleCreated := false
	if def == nil {
		existing, err := roles.ByName(ctx, DefaultRoleName)
		if err != nil {
			return err
		}
		if existing != nil {
			err = roles.SetDefault(ctx, existing.ID)
		} else {
			_, err = roles.Create(ctx, DefaultRoleName, "Rôle attribué aux nouveaux comptes", true)
			roleCreated = true
		}
		if err != nil {
			return err
		}
	}
	log.Info().Int("statuts_created", created).Bool("default_role_created", roleCreated).Msg("seed done")
	return nil
}
