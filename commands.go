package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rm-hull/prix-carburant/cmd"
	"github.com/rm-hull/prix-carburant/internal/logging"
)

func setupLogger() zerolog.Logger {
	return logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func serveCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server with periodic refresh",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ApiServer(cfg, setupLogger())
		},
	}
	c.Flags().IntVar(&flagValues.HTTPPort, "port", flagValues.HTTPPort, "Port to run HTTP server on")
	c.Flags().BoolVar(&flagValues.Debug, "debug", false, "Enable debugging (pprof) - WARNING: do not enable in production")
	c.Flags().BoolVar(&flagValues.MQTT.Enabled, "mqtt", false, "Publish station sensors to the configured MQTT broker")
	return c
}

func discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Run one refresh cycle and print the stations as JSON",
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return cmd.Discover(ctx, cfg, setupLogger(), c.OutOrStdout())
		},
	}
}

func nearestCmd() *cobra.Command {
	var opts cmd.NearestOptions
	c := &cobra.Command{
		Use:   "nearest",
		Short: "Print the cheapest stations for a fuel around a location",
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return cmd.Nearest(ctx, cfg, opts, setupLogger(), c.OutOrStdout())
		},
	}
	c.Flags().StringVar(&opts.Fuel, "fuel", "E10", "Fuel to compare")
	c.Flags().StringVar(&opts.Location, "location", "", "Place name to geocode instead of the configured latitude/longitude")
	c.Flags().IntVar(&opts.RadiusKm, "radius", 0, "Search radius in km (defaults to --max-km)")
	return c
}

func exportGPXCmd() *cobra.Command {
	var output string
	c := &cobra.Command{
		Use:   "export-gpx",
		Short: "Run one refresh cycle and export the stations as GPX waypoints",
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()
			return cmd.ExportGPX(ctx, cfg, output, setupLogger(), c.OutOrStdout())
		},
	}
	c.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	return c
}

func validateStationsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-stations <file>",
		Short: "Validate a station names JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ValidateStations(args[0], c.OutOrStdout())
		},
	}
}
