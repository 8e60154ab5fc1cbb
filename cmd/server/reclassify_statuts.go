package main

// go run ./cmd/server -reclassify-statuts
// Files legacy global statuts under the entity type their name designates.

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
)

var reclassifyFlag = flag.Bool("reclassify-statuts", false, "Reclassify global statuts and exit")

func runReclassifyStatuts(ctx context.Context, app *App, log zerolog.Logger) {
	moved, err := app.Statuts.Reclassify(ctx)
	if err != nil {
		log.Error().Err(err).Int("moved", moved).Msg("reclassify statuts")
		os.Exit(1)
	}
	log.Info().Int("moved", moved).Msg("reclassify done")
}
