package cmd

import (
	"context"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/config"
	"github.com/rm-hull/prix-carburant/internal/geocode"
	"github.com/rm-hull/prix-carburant/internal/models"
)

type NearestOptions struct {
	Fuel     string
	Location string
	RadiusKm int
}

// Nearest prints the cheapest stations for a fuel around the configured location, or
// around a geocoded place name when opts.Location is set.
func Nearest(ctx context.Context, cfg *config.Config, opts NearestOptions, logger zerolog.Logger, out io.Writer) error {
	fuel, err := models.ParseFuel(opts.Fuel)
	if err != nil {
		return err
	}

	ref := cfg.Reference()
	if opts.Location != "" {
		located, err := geocode.NewGeocoder("").Locate(opts.Location)
		if err != nil {
			return errors.Wrapf(err, "failed to locate %q", opts.Location)
		}
		logger.Info().Str("location", opts.Location).Float64("lat", located.Latitude).Float64("lon", located.Longitude).Msg("geocoded location")
		ref = &located
		cfg.Location = ref
	}
	if ref == nil {
		return errors.New("a location is required, set --location or configure latitude/longitude")
	}

	radius := opts.RadiusKm
	if radius <= 0 {
		radius = cfg.MaxKm
	}

	client, registry, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	stations, err := registry.FindNearest(ctx, *ref, fuel, radius)
	if err != nil {
		return err
	}

	return writeJSON(out, models.NearestResponse{
		Fuel:        fuel,
		Reference:   *ref,
		RadiusKm:    radius,
		Results:     stations.ByPrice(),
		Attribution: internal.ATTRIBUTION,
	})
}
