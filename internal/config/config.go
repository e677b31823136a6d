// Package config holds the runtime settings of the prix-carburant service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/rm-hull/prix-carburant/internal/models"
)

const envPrefix = "PRIX_CARBURANT_"

type Config struct {
	TimeZone              string              `yaml:"time_zone"`
	RequestTimeout        time.Duration       `yaml:"request_timeout"`
	APISSLCheck           bool                `yaml:"api_ssl_check"`
	Location              *models.Coordinates `yaml:"location"`
	MaxKm                 int                 `yaml:"max_km"`
	Fuels                 []string            `yaml:"fuels"`
	Stations              []int               `yaml:"stations"`
	ManualStations        []int               `yaml:"manual_stations"`
	ScanInterval          int                 `yaml:"scan_interval"`
	DisplayEntityPictures bool                `yaml:"display_entity_pictures"`
	EnrichmentURL         string              `yaml:"enrichment_url"`
	EnrichmentFile        string              `yaml:"enrichment_file"`
	LogLevel              string              `yaml:"log_level"`
	LogFormat             string              `yaml:"log_format"`
	HTTPPort              int                 `yaml:"http_port"`
	Debug                 bool                `yaml:"debug"`
	MQTT                  MQTTConfig          `yaml:"mqtt"`
}

// MQTTConfig controls publishing of station sensors to a home-automation broker.
type MQTTConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Broker          string `yaml:"broker"`
	ClientID        string `yaml:"client_id"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	DiscoveryPrefix string `yaml:"discovery_prefix"`
	TopicPrefix     string `yaml:"topic_prefix"`
	QoS             int    `yaml:"qos"`
}

func DefaultConfig() *Config {
	fuels := make([]string, 0, len(models.Fuels))
	for _, fuel := range models.Fuels {
		fuels = append(fuels, string(fuel))
	}
	return &Config{
		TimeZone:              "Europe/Paris",
		RequestTimeout:        30 * time.Second,
		APISSLCheck:           true,
		MaxKm:                 15,
		Fuels:                 fuels,
		ScanInterval:          4,
		DisplayEntityPictures: true,
		LogLevel:              "info",
		LogFormat:             "json",
		HTTPPort:              8080,
		MQTT: MQTTConfig{
			Broker:          "tcp://localhost:1883",
			ClientID:        "prix-carburant",
			DiscoveryPrefix: "homeassistant",
			TopicPrefix:     "prix_carburant",
			QoS:             1,
		},
	}
}

// Load returns the defaults, overlaid with the YAML file at path (when path is not
// empty) and then with environment variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(err, "parsing config file")
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, errors.Wrap(err, "reading environment")
	}
	return cfg, nil
}

// LoadFromEnv applies PRIX_CARBURANT_* environment variable overrides.
func (c *Config) LoadFromEnv() error {
	if v, ok := lookup("TIME_ZONE"); ok {
		c.TimeZone = v
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok {
		d, err := parseTimeout(v)
		if err != nil {
			return err
		}
		c.RequestTimeout = d
	}
	if v, ok := lookup("API_SSL_CHECK"); ok {
		c.APISSLCheck = parseBool(v)
	}
	lat, hasLat := lookup("LATITUDE")
	lon, hasLon := lookup("LONGITUDE")
	if hasLat || hasLon {
		if !hasLat || !hasLon {
			return errors.New("both latitude and longitude must be set")
		}
		ref, err := ParseCoordinates(lat, lon)
		if err != nil {
			return err
		}
		c.Location = ref
	}
	if v, ok := lookup("MAX_KM"); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sMAX_KM", envPrefix)
		}
		c.MaxKm = i
	}
	if v, ok := lookup("FUELS"); ok {
		c.Fuels = splitList(v)
	}
	if v, ok := lookup("STATIONS"); ok {
		ids, err := ParseStationIDs(splitList(v))
		if err != nil {
			return err
		}
		c.Stations = ids
	}
	if v, ok := lookup("MANUAL_STATIONS"); ok {
		ids, err := ParseStationIDs(splitList(v))
		if err != nil {
			return err
		}
		c.ManualStations = ids
	}
	if v, ok := lookup("SCAN_INTERVAL"); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sSCAN_INTERVAL", envPrefix)
		}
		c.ScanInterval = i
	}
	if v, ok := lookup("DISPLAY_ENTITY_PICTURES"); ok {
		c.DisplayEntityPictures = parseBool(v)
	}
	if v, ok := lookup("ENRICHMENT_URL"); ok {
		c.EnrichmentURL = v
	}
	if v, ok := lookup("ENRICHMENT_FILE"); ok {
		c.EnrichmentFile = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	if v, ok := lookup("HTTP_PORT"); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sHTTP_PORT", envPrefix)
		}
		c.HTTPPort = i
	}
	if v, ok := lookup("MQTT_ENABLED"); ok {
		c.MQTT.Enabled = parseBool(v)
	}
	if v, ok := lookup("MQTT_BROKER"); ok {
		c.MQTT.Broker = v
	}
	if v, ok := lookup("MQTT_USERNAME"); ok {
		c.MQTT.Username = v
	}
	if v, ok := lookup("MQTT_PASSWORD"); ok {
		c.MQTT.Password = v
	}
	return nil
}

func (c *Config) Validate() error {
	if c.MaxKm <= 0 {
		return errors.Newf("max_km must be positive, got %d", c.MaxKm)
	}
	if c.ScanInterval <= 0 {
		return errors.Newf("scan_interval must be a positive number of hours, got %d", c.ScanInterval)
	}
	if c.RequestTimeout <= 0 {
		return errors.Newf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if _, err := time.LoadLocation(c.TimeZone); err != nil {
		return errors.Wrapf(err, "invalid time_zone %q", c.TimeZone)
	}
	if _, err := c.EnabledFuels(); err != nil {
		return err
	}
	if c.Location != nil {
		if err := validateCoordinates(*c.Location); err != nil {
			return err
		}
	}
	if len(c.Stations) == 0 && c.Location == nil {
		return errors.New("either a station list or a location must be configured")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return errors.Newf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		return errors.Newf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	return nil
}

func (c *Config) EnabledFuels() ([]models.Fuel, error) {
	return models.ParseFuels(c.Fuels)
}

// Reference returns a copy of the configured location, or nil.
func (c *Config) Reference() *models.Coordinates {
	if c.Location == nil {
		return nil
	}
	ref := *c.Location
	return &ref
}

func ParseCoordinates(lat, lon string) (*models.Coordinates, error) {
	latitude, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid latitude %q", lat)
	}
	longitude, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid longitude %q", lon)
	}
	ref := models.Coordinates{Latitude: latitude, Longitude: longitude}
	if err := validateCoordinates(ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// ParseStationIDs converts user supplied station ids to integers.
func ParseStationIDs(values []string) ([]int, error) {
	ids := make([]int, 0, len(values))
	for _, v := range values {
		id, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid station id %q", v)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func validateCoordinates(ref models.Coordinates) error {
	if ref.Latitude < -90 || ref.Latitude > 90 {
		return errors.Newf("latitude out of range: %v", ref.Latitude)
	}
	if ref.Longitude < -180 || ref.Longitude > 180 {
		return errors.Newf("longitude out of range: %v", ref.Longitude)
	}
	return nil
}

// parseTimeout accepts either a Go duration ("45s") or a plain number of seconds.
func parseTimeout(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %sREQUEST_TIMEOUT", envPrefix)
	}
	return d, nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
