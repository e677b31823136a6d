package cmd

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/godx"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/config"
)

// bootstrap initialises the resources shared by every command: the catalog client and
// a registry seeded with the enrichment table. The caller must Close the client.
func bootstrap(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (internal.CatalogClient, internal.StationRegistry, error) {
	godx.GitVersion()
	godx.EnvironmentVars()
	godx.UserInfo()

	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid configuration")
	}

	enrichment, err := internal.LoadEnrichment(ctx, internal.EnrichmentOptions{
		URL:          cfg.EnrichmentURL,
		Timeout:      cfg.RequestTimeout,
		FallbackFile: cfg.EnrichmentFile,
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load station names")
	}

	client := internal.NewCatalogClient(internal.ClientOptions{
		TimeZone: cfg.TimeZone,
		Timeout:  cfg.RequestTimeout,
		SSLCheck: cfg.APISSLCheck,
	}, logger)

	return client, internal.NewStationRegistry(client, enrichment, logger), nil
}

func newCoordinator(cfg *config.Config, registry internal.StationRegistry, logger zerolog.Logger) *internal.Coordinator {
	return internal.NewCoordinator(registry, internal.CoordinatorOptions{
		Stations:       cfg.Stations,
		ManualStations: cfg.ManualStations,
		Reference:      cfg.Reference(),
		MaxKm:          cfg.MaxKm,
	}, logger)
}
