package cmd

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal/config"
	"github.com/rm-hull/prix-carburant/internal/export"
)

// ExportGPX runs a refresh cycle and writes the tracked stations as GPX waypoints to
// path, or to out when path is empty or "-".
func ExportGPX(ctx context.Context, cfg *config.Config, path string, logger zerolog.Logger, out io.Writer) error {
	client, registry, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := newCoordinator(cfg, registry, logger).Refresh(ctx); err != nil {
		return err
	}

	fuels, err := cfg.EnabledFuels()
	if err != nil {
		return err
	}

	w := out
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "failed to create GPX file")
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("failed to close GPX file")
			}
		}()
		w = f
	}

	stations := registry.Stations()
	if err := export.WriteGPX(w, stations, fuels, time.Now().UTC()); err != nil {
		return err
	}
	logger.Info().Int("stations", len(stations)).Str("path", path).Msg("exported stations")
	return nil
}
