package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rm-hull/prix-carburant/internal/config"
	"github.com/rm-hull/prix-carburant/internal/models"
)

var (
	configFile string
	cfg        *config.Config
	flagValues = config.DefaultConfig()
	latitude   float64
	longitude  float64
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:   "prix-carburant",
		Short: "Track French fuel station prices from the prix-carburants open data feed",
		Long: `prix-carburant discovers fuel stations from the French government open data
catalog, either by station id or within a radius of a reference point, enriches them
with curated names and brands and keeps their prices up to date.

Settings are read from defaults, then an optional YAML file (--config), then .env and
PRIX_CARBURANT_* environment variables, then command line flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			loaded, err := config.Load(configFile)
			if err != nil {
				return err
			}
			applyFlags(c, loaded)
			cfg = loaded
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML config file")
	flags.StringVar(&flagValues.LogLevel, "log-level", flagValues.LogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&flagValues.LogFormat, "log-format", flagValues.LogFormat, "Log format (json, console)")
	flags.Float64Var(&latitude, "latitude", 0, "Reference point latitude")
	flags.Float64Var(&longitude, "longitude", 0, "Reference point longitude")
	flags.IntVar(&flagValues.MaxKm, "max-km", flagValues.MaxKm, "Search radius in km")
	flags.StringSliceVar(&flagValues.Fuels, "fuels", flagValues.Fuels, "Enabled fuels")
	flags.IntSliceVar(&flagValues.Stations, "stations", nil, "Station ids to track instead of a radius search")
	flags.IntSliceVar(&flagValues.ManualStations, "manual-stations", nil, "Station ids tracked in addition to discovery")
	flags.BoolVar(&flagValues.APISSLCheck, "api-ssl-check", flagValues.APISSLCheck, "Verify the API TLS certificate")
	flags.DurationVar(&flagValues.RequestTimeout, "request-timeout", flagValues.RequestTimeout, "Timeout of each API request")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(discoverCmd())
	rootCmd.AddCommand(nearestCmd())
	rootCmd.AddCommand(exportGPXCmd())
	rootCmd.AddCommand(validateStationsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(c *cobra.Command, loaded *config.Config) {
	flags := c.Flags()
	if flags.Changed("log-level") {
		loaded.LogLevel = flagValues.LogLevel
	}
	if flags.Changed("log-format") {
		loaded.LogFormat = flagValues.LogFormat
	}
	if flags.Changed("latitude") || flags.Changed("longitude") {
		loaded.Location = &models.Coordinates{Latitude: latitude, Longitude: longitude}
	}
	if flags.Changed("max-km") {
		loaded.MaxKm = flagValues.MaxKm
	}
	if flags.Changed("fuels") {
		loaded.Fuels = flagValues.Fuels
	}
	if flags.Changed("stations") {
		loaded.Stations = flagValues.Stations
	}
	if flags.Changed("manual-stations") {
		loaded.ManualStations = flagValues.ManualStations
	}
	if flags.Changed("api-ssl-check") {
		loaded.APISSLCheck = flagValues.APISSLCheck
	}
	if flags.Changed("request-timeout") {
		loaded.RequestTimeout = flagValues.RequestTimeout
	}
	if flags.Changed("port") {
		loaded.HTTPPort = flagValues.HTTPPort
	}
	if flags.Changed("debug") {
		loaded.Debug = flagValues.Debug
	}
	if flags.Changed("mqtt") {
		loaded.MQTT.Enabled = flagValues.MQTT.Enabled
	}
}
