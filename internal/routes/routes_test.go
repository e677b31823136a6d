package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/kofalt/go-memoize"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func ptr(f float64) *float64 { return &f }

type stubRegistry struct {
	mu           sync.Mutex
	stations     models.Stations
	updated      *time.Time
	catalog      map[int]models.Station
	nearest      models.Stations
	nearestErr   error
	nearestCalls int
	existsErr    error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		stations: models.Stations{
			"1": {ID: 1, Name: "Leclerc Paris", Brand: "Leclerc", City: "Paris", Fuels: map[models.Fuel]models.FuelPrice{
				models.FuelE10: {UpdatedDate: "2024-03-01", Price: 1.699},
			}},
			"2": {ID: 2, Name: models.UndefinedName, City: "Paris", Fuels: map[models.Fuel]models.FuelPrice{
				models.FuelE10: {UpdatedDate: "2024-03-01", Price: 1.799},
			}},
		},
		catalog: map[int]models.Station{
			3: {ID: 3, Name: models.UndefinedName, City: "Lyon", Fuels: map[models.Fuel]models.FuelPrice{}},
		},
	}
}

func (s *stubRegistry) Stations() models.Stations {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stations.Clone()
}

func (s *stubRegistry) Station(id int) (models.Station, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stations[models.StationKey(id)]
	return st.Clone(), ok
}

func (s *stubRegistry) LastUpdated() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updated
}

func (s *stubRegistry) InitFromList(context.Context, []int, *models.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.stations {
		if key != "1" && key != "2" {
			delete(s.stations, key)
		}
	}
	return nil
}

func (s *stubRegistry) InitFromLocation(context.Context, models.Coordinates, int) error {
	return nil
}

func (s *stubRegistry) AddManualStations(_ context.Context, ids []int, _ *models.Coordinates) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if st, ok := s.catalog[id]; ok {
			s.stations[st.Key()] = st
		}
	}
	return nil
}

func (s *stubRegistry) UpdatePrices(context.Context) error {
	now := time.Now()
	s.mu.Lock()
	s.updated = &now
	s.mu.Unlock()
	return nil
}

func (s *stubRegistry) FindNearest(context.Context, models.Coordinates, models.Fuel, int) (models.Stations, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nearestCalls++
	return s.nearest.Clone(), s.nearestErr
}

func (s *stubRegistry) StationExists(_ context.Context, id int) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.catalog[id]
	return ok, nil
}

func newRouter(reg *stubRegistry) (*gin.Engine, *internal.Coordinator) {
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	coord := internal.NewCoordinator(reg, internal.CoordinatorOptions{Stations: []int{1, 2}}, logger)

	r := gin.New()
	v1 := r.Group("/v1/prix-carburant")
	v1.GET("/stations", Stations(reg, []models.Fuel{models.FuelE10}))
	v1.GET("/stations.gpx", StationsGPX(reg, nil, logger))
	v1.GET("/stations/:id", Station(reg))
	v1.GET("/nearest", Nearest(reg, memoize.NewMemoizer(time.Minute, 5*time.Minute), logger))
	v1.GET("/manual-stations", ManualStations(coord))
	v1.POST("/manual-stations", AddManualStation(coord, logger))
	v1.DELETE("/manual-stations/:id", RemoveManualStation(coord, logger))
	return r, coord
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStations(t *testing.T) {
	r, _ := newRouter(newStubRegistry())

	w := do(r, http.MethodGet, "/v1/prix-carburant/stations", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.StationsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Stations, 2)
	assert.Equal(t, internal.ATTRIBUTION, resp.Attribution)
	assert.Nil(t, resp.LastUpdated)
	require.NotNil(t, resp.Statistics)
	assert.Equal(t, 1.699, resp.Statistics.LowestPrice[models.FuelE10])
	assert.Equal(t, []string{"1"}, resp.Statistics.CheapestStations[models.FuelE10])
	assert.Equal(t, map[string]int{"Leclerc": 1}, resp.Statistics.BrandDistribution)
}

func TestStation(t *testing.T) {
	r, _ := newRouter(newStubRegistry())

	w := do(r, http.MethodGet, "/v1/prix-carburant/stations/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st models.Station
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "Leclerc Paris", st.Name)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/v1/prix-carburant/stations/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/prix-carburant/stations/abc", "").Code)
}

func TestStationsGPX(t *testing.T) {
	r, _ := newRouter(newStubRegistry())

	w := do(r, http.MethodGet, "/v1/prix-carburant/stations.gpx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/gpx+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "<wpt")
	assert.Contains(t, w.Body.String(), "Leclerc Paris")
}

func TestNearest(t *testing.T) {
	reg := newStubRegistry()
	reg.nearest = models.Stations{
		"10": {ID: 10, Price: ptr(1.759)},
		"11": {ID: 11, Price: ptr(1.689)},
		"12": {ID: 12},
	}
	r, _ := newRouter(reg)

	target := "/v1/prix-carburant/nearest?fuel=e10&lat=48.8396&lon=2.3837&radius=5"
	w := do(r, http.MethodGet, target, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.NearestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.FuelE10, resp.Fuel)
	assert.Equal(t, 5, resp.RadiusKm)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, []int{11, 10, 12}, []int{resp.Results[0].ID, resp.Results[1].ID, resp.Results[2].ID})

	require.Equal(t, http.StatusOK, do(r, http.MethodGet, target, "").Code)
	assert.Equal(t, 1, reg.nearestCalls, "second lookup is memoized")
}

func TestNearest_BadRequests(t *testing.T) {
	r, _ := newRouter(newStubRegistry())

	for _, query := range []string{
		"fuel=kerosene&lat=48.8&lon=2.3",
		"fuel=E10&lat=north&lon=2.3",
		"fuel=E10&lat=48.8&lon=200",
		"fuel=E10&lat=48.8&lon=2.3&radius=500",
		"fuel=E10&lat=48.8&lon=2.3&radius=-1",
	} {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/prix-carburant/nearest?"+query, "").Code)
		})
	}
}

func TestNearest_CatalogErrors(t *testing.T) {
	reg := newStubRegistry()
	r, _ := newRouter(reg)

	reg.nearestErr = errors.Mark(errors.New("dial tcp: refused"), internal.ErrCannotConnect)
	w := do(r, http.MethodGet, "/v1/prix-carburant/nearest?fuel=E10&lat=48.8&lon=2.3", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	reg.nearestErr = &internal.RequestError{StatusCode: http.StatusInternalServerError, Body: "boom"}
	w = do(r, http.MethodGet, "/v1/prix-carburant/nearest?fuel=E10&lat=48.9&lon=2.3", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestManualStations(t *testing.T) {
	reg := newStubRegistry()
	r, coord := newRouter(reg)

	w := do(r, http.MethodPost, "/v1/prix-carburant/manual-stations", `{"id":"3"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var st models.Station
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, 3, st.ID)
	assert.Equal(t, []int{3}, coord.ManualStations())

	w = do(r, http.MethodGet, "/v1/prix-carburant/manual-stations", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"manual_stations":[3]}`, w.Body.String())

	w = do(r, http.MethodDelete, "/v1/prix-carburant/manual-stations/3", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, coord.ManualStations())
	_, ok := reg.Station(3)
	assert.False(t, ok)

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/v1/prix-carburant/manual-stations/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodDelete, "/v1/prix-carburant/manual-stations/x", "").Code)
}

func TestAddManualStation_Errors(t *testing.T) {
	reg := newStubRegistry()
	r, _ := newRouter(reg)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"not a number", `{"id":"abc"}`, http.StatusBadRequest, "invalid_station_id"},
		{"missing id", `{}`, http.StatusBadRequest, "invalid_station_id"},
		{"already tracked", `{"id":"1"}`, http.StatusConflict, "station_already_exists"},
		{"unknown", `{"id":"404"}`, http.StatusNotFound, "station_not_found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/v1/prix-carburant/manual-stations", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.code), w.Body.String())
		})
	}

	reg.existsErr = errors.Mark(errors.New("timeout"), internal.ErrCannotConnect)
	w := do(r, http.MethodPost, "/v1/prix-carburant/manual-stations", `{"id":"3"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, "connection errors are reported as not found")
}
