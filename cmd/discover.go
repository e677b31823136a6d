package cmd

import (
	"context"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/config"
	"github.com/rm-hull/prix-carburant/internal/models"
	"github.com/rm-hull/prix-carburant/internal/stats"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Discover runs a single refresh cycle and writes the registry as JSON.
func Discover(ctx context.Context, cfg *config.Config, logger zerolog.Logger, out io.Writer) error {
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

	stations := registry.Stations()
	logger.Info().Int("stations", len(stations)).Msg("discovery completed")

	return writeJSON(out, models.StationsResponse{
		Stations:    stations,
		Statistics:  stats.Derive(stations, fuels, 10),
		Attribution: internal.ATTRIBUTION,
		LastUpdated: registry.LastUpdated(),
	})
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
