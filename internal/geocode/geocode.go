// Package geocode resolves place names into reference points using Nominatim.
package geocode

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/kofalt/go-memoize"
	"github.com/muesli/gominatim"

	"github.com/rm-hull/prix-carburant/internal/models"
)

const NominatimServer = "https://nominatim.openstreetmap.org"

// gominatim reports an empty result set as a plain error with this text.
const nothingFound = "Nothing found; sorry :/"

var ErrNoResults = errors.New("no results found for location")

type searchFunc func(query string) ([]gominatim.SearchResult, error)

type Geocoder struct {
	search searchFunc
	memo   *memoize.Memoizer
}

func NewGeocoder(server string) *Geocoder {
	if server == "" {
		server = NominatimServer
	}
	gominatim.SetServer(server)
	return newGeocoder(func(query string) ([]gominatim.SearchResult, error) {
		q := gominatim.SearchQuery{Q: query, Limit: 1}
		results, err := q.Get()
		if err != nil && err.Error() == nothingFound {
			return nil, nil
		}
		return results, err
	})
}

func newGeocoder(search searchFunc) *Geocoder {
	return &Geocoder{
		search: search,
		memo:   memoize.NewMemoizer(24*time.Hour, time.Hour),
	}
}

// Locate returns the coordinates of the best match for location.
func (g *Geocoder) Locate(location string) (models.Coordinates, error) {
	query := strings.TrimSpace(location)
	if query == "" {
		return models.Coordinates{}, errors.Wrap(ErrNoResults, "empty location")
	}

	result, err, _ := g.memo.Memoize(strings.ToLower(query), func() (any, error) {
		results, err := g.search(query)
		if err != nil {
			return nil, errors.Wrap(err, "geocoding error")
		}
		if len(results) == 0 {
			return nil, errors.Wrapf(ErrNoResults, "%q", location)
		}
		return toCoordinates(results[0])
	})
	if err != nil {
		return models.Coordinates{}, err
	}
	return result.(models.Coordinates), nil
}

func toCoordinates(result gominatim.SearchResult) (models.Coordinates, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return models.Coordinates{}, errors.Wrap(err, "error parsing latitude")
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return models.Coordinates{}, errors.Wrap(err, "error parsing longitude")
	}
	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
