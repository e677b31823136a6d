package internal

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal/models"
)

const StationsNameURL = "https://raw.githubusercontent.com/Aohzan/hass-prixcarburant/refs/heads/master/custom_components/prix_carburant/stations_name.json"

//go:embed stations_name.json
var bundledStationsName []byte

// Some CDNs answer 200 with an HTML error page; these markers reject such bodies.
var errorPageMarkers = []string{"Bad Gateway", "Not Found"}

type EnrichmentOptions struct {
	URL     string
	Timeout time.Duration
	// FallbackFile overrides the copy bundled in the binary.
	FallbackFile string
	HTTPClient   *http.Client
}

// LoadEnrichment fetches the station name table from its remote home, falling back to
// the local copy on any failure. An error is returned only when both sources fail.
func LoadEnrichment(ctx context.Context, opts EnrichmentOptions, logger zerolog.Logger) (models.EnrichmentTable, error) {
	logger = logger.With().Str("component", "enrichment").Logger()
	if opts.URL == "" {
		opts.URL = StationsNameURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	logger.Debug().Str("url", opts.URL).Msg("loading stations from remote")
	table, err := fetchEnrichment(ctx, opts)
	if err == nil {
		logger.Debug().Int("stations", len(table)).Str("url", opts.URL).Msg("successfully retrieved station names")
		return table, nil
	}

	source := "bundled"
	if opts.FallbackFile != "" {
		source = opts.FallbackFile
	}
	logger.Error().Err(err).Str("fallback", source).Msg("loading station names from remote failed, using local data instead")

	data, err := readFallback(opts.FallbackFile)
	if err != nil {
		return nil, err
	}
	table, err = models.DecodeEnrichmentTable(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse local station names from %s", source)
	}
	return table, nil
}

func fetchEnrichment(ctx context.Context, opts EnrichmentOptions) (models.EnrichmentTable, error) {
	reqCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, opts.URL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to fetch from %s", opts.URL), ErrCannotConnect)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "failed to read response body"), ErrCannotConnect)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{URL: opts.URL, StatusCode: resp.StatusCode, Body: errorPageSummary(body)}
	}
	for _, marker := range errorPageMarkers {
		if bytes.Contains(body, []byte(marker)) {
			return nil, &RequestError{URL: opts.URL, StatusCode: resp.StatusCode, Body: errorPageSummary(body)}
		}
	}

	table, err := models.DecodeEnrichmentTable(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal station names")
	}
	return table, nil
}

// errorPageSummary keeps log lines short: the <title> of an HTML page, otherwise a
// truncated body.
func errorPageSummary(body []byte) string {
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body)); err == nil {
		if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
			return title
		}
	}
	const maxLen = 200
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}

func readFallback(path string) ([]byte, error) {
	if path == "" {
		return bundledStationsName, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read local station names from %s", path)
	}
	return data, nil
}

// ValidateEnrichment checks that data is a mapping of station ids to objects carrying
// string "name" and "brand" properties.
func ValidateEnrichment(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "invalid JSON format or not a dictionary")
	}

	for id, value := range raw {
		entry, ok := value.(map[string]any)
		if !ok {
			return errors.Newf("station data for %s should be a dictionary", id)
		}
		for _, prop := range []string{"name", "brand"} {
			v, ok := entry[prop]
			if !ok {
				return errors.Newf("station %s is missing the '%s' property", id, prop)
			}
			if _, ok := v.(string); !ok {
				return errors.Newf("station %s '%s' should be a string", id, prop)
			}
		}
	}
	return nil
}
