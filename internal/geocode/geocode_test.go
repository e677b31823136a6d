package geocode

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/muesli/gominatim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/prix-carburant/internal/models"
)

func TestLocate(t *testing.T) {
	calls := 0
	g := newGeocoder(func(query string) ([]gominatim.SearchResult, error) {
		calls++
		assert.Equal(t, "Lyon", query)
		return []gominatim.SearchResult{
			{Lat: "45.7578137", Lon: "4.8320114"},
			{Lat: "0", Lon: "0"},
		}, nil
	})

	ref, err := g.Locate(" Lyon ")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Latitude: 45.7578137, Longitude: 4.8320114}, ref)

	again, err := g.Locate("LYON")
	require.NoError(t, err)
	assert.Equal(t, ref, again)
	assert.Equal(t, 1, calls, "lookups are memoized case-insensitively")
}

func TestLocate_Errors(t *testing.T) {
	g := newGeocoder(func(query string) ([]gominatim.SearchResult, error) {
		switch query {
		case "nowhere":
			return nil, nil
		case "garbage":
			return []gominatim.SearchResult{{Lat: "north", Lon: "2"}}, nil
		default:
			return nil, errors.New("service unavailable")
		}
	})

	_, err := g.Locate("nowhere")
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = g.Locate("   ")
	assert.ErrorIs(t, err, ErrNoResults)

	_, err = g.Locate("garbage")
	assert.Error(t, err)

	_, err = g.Locate("Paris")
	assert.ErrorContains(t, err, "service unavailable")
}

func TestNewGeocoder_Nominatim(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		q := r.URL.Query().Get("q")
		seen = append(seen, q)

		w.Header().Set("Content-Type", "application/json")
		switch q {
		case "Le Mans":
			_, _ = w.Write([]byte(`[{"lat":"48.0073849","lon":"0.1967849","display_name":"Le Mans, Sarthe, France"}]`))
		case "Saint-Étienne":
			_, _ = w.Write([]byte(`[{"lat":"45.4401467","lon":"4.3873058","display_name":"Saint-Étienne, Loire, France"}]`))
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	g := NewGeocoder(srv.URL + "/")

	ref, err := g.Locate("Le Mans")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Latitude: 48.0073849, Longitude: 0.1967849}, ref)

	ref, err = g.Locate("Saint-Étienne")
	require.NoError(t, err)
	assert.Equal(t, models.Coordinates{Latitude: 45.4401467, Longitude: 4.3873058}, ref)

	_, err = g.Locate("Atlantis")
	assert.ErrorIs(t, err, ErrNoResults)

	assert.Equal(t, []string{"Le Mans", "Saint-Étienne", "Atlantis"}, seen)
}
