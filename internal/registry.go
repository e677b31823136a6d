package internal

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal/models"
)

const (
	stationFields   = "id,latitude,longitude,cp,adresse,ville"
	pageSize        = 100
	nearestLimit    = 10
	coordinateScale = 100000.0
)

type StationRegistry interface {
	// Stations returns a deep copy of the registry keyed by station id.
	Stations() models.Stations
	Station(id int) (models.Station, bool)
	LastUpdated() *time.Time

	// InitFromList replaces the registry with the given stations. Ids unknown to the
	// catalog are logged and skipped.
	InitFromList(ctx context.Context, ids []int, ref *models.Coordinates) error
	// InitFromLocation replaces the registry with every station within radiusKm of ref.
	InitFromLocation(ctx context.Context, ref models.Coordinates, radiusKm int) error
	// AddManualStations merges stations not yet tracked into the registry.
	AddManualStations(ctx context.Context, ids []int, ref *models.Coordinates) error
	// UpdatePrices refreshes the fuel prices of every tracked station.
	UpdatePrices(ctx context.Context) error
	// FindNearest returns the cheapest stations for fuel near ref without touching the registry.
	FindNearest(ctx context.Context, ref models.Coordinates, fuel models.Fuel, radiusKm int) (models.Stations, error)
	// StationExists reports whether the catalog knows exactly one station with this id.
	StationExists(ctx context.Context, id int) (bool, error)
}

type registry struct {
	client     CatalogClient
	enrichment models.EnrichmentTable
	logger     zerolog.Logger

	mu          sync.RWMutex
	stations    models.Stations
	lastUpdated *time.Time
}

func NewStationRegistry(client CatalogClient, enrichment models.EnrichmentTable, logger zerolog.Logger) StationRegistry {
	if enrichment == nil {
		enrichment = models.EnrichmentTable{}
	}
	return &registry{
		client:     client,
		enrichment: enrichment,
		logger:     logger.With().Str("component", "registry").Logger(),
		stations:   models.Stations{},
	}
}

func (r *registry) Stations() models.Stations {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stations.Clone()
}

func (r *registry) Station(id int) (models.Station, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.stations[models.StationKey(id)]
	if !ok {
		return models.Station{}, false
	}
	return st.Clone(), true
}

func (r *registry) LastUpdated() *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastUpdated == nil {
		return nil
	}
	t := *r.lastUpdated
	return &t
}

func (r *registry) InitFromList(ctx context.Context, ids []int, ref *models.Coordinates) error {
	r.logger.Debug().Ints("ids", ids).Msg("retrieving station data by id")

	data := models.Stations{}
	for _, id := range ids {
		r.logger.Debug().Int("id", id).Msg("search station")
		record, found, err := r.lookup(ctx, id, stationFields)
		if err != nil {
			return errors.Wrapf(err, "failed to look up station %d", id)
		}
		if !found {
			continue
		}
		if st, ok := r.build(record, ref, nil); ok {
			data[st.Key()] = st
		}
	}

	r.replace(data)
	return nil
}

func (r *registry) InitFromLocation(ctx context.Context, ref models.Coordinates, radiusKm int) error {
	where := spatialPredicate(ref, radiusKm)

	count, err := r.client.Request(ctx, url.Values{
		"select": {"id"},
		"where":  {where},
		"limit":  {"1"},
	})
	if err != nil {
		return errors.Wrap(err, "failed to count nearby stations")
	}
	total := count.TotalCount
	r.logger.Debug().Int("total", total).Int("radius_km", radiusKm).Msg("stations returned by the API")

	data := make(models.Stations, total)
	for offset := 0; offset < total; offset += pageSize {
		limit := min(pageSize, total-offset)
		r.logger.Debug().Int("offset", offset).Int("limit", limit).Int("total", total).Msg("query stations page")

		page, err := r.client.Request(ctx, url.Values{
			"select": {stationFields},
			"where":  {where},
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(limit)},
		})
		if err != nil {
			return errors.Wrapf(err, "failed to fetch stations page at offset %d", offset)
		}
		for _, record := range page.Results {
			if st, ok := r.build(record, &ref, nil); ok {
				data[st.Key()] = st
			}
		}
	}

	r.replace(data)
	return nil
}

func (r *registry) AddManualStations(ctx context.Context, ids []int, ref *models.Coordinates) error {
	r.logger.Debug().Int("count", len(ids)).Msg("adding manual stations")

	for _, id := range ids {
		key := models.StationKey(id)
		if r.has(key) {
			r.logger.Debug().Int("id", id).Msg("station already exists, skipping")
			continue
		}

		record, found, err := r.lookup(ctx, id, stationFields)
		if err != nil {
			return errors.Wrapf(err, "failed to look up manual station %d", id)
		}
		if !found {
			continue
		}
		st, ok := r.build(record, ref, nil)
		if !ok {
			continue
		}

		r.mu.Lock()
		if _, exists := r.stations[st.Key()]; !exists {
			r.stations[st.Key()] = st
		}
		size := len(r.stations)
		r.mu.Unlock()
		stationsTracked.Set(float64(size))
	}

	r.logger.Info().Int("total", len(r.Stations())).Msg("manual stations added")
	return nil
}

func (r *registry) UpdatePrices(ctx context.Context) error {
	fields := make([]string, 0, 2*len(models.Fuels))
	for _, fuel := range models.Fuels {
		fields = append(fields, fuel.PriceField())
	}
	for _, fuel := range models.Fuels {
		fields = append(fields, fuel.UpdatedField())
	}
	selectFields := strings.Join(fields, ",")

	for _, id := range r.ids() {
		r.logger.Debug().Int("id", id).Msg("update fuel prices")

		record, found, err := r.lookup(ctx, id, selectFields)
		if err != nil {
			return errors.Wrapf(err, "failed to refresh prices for station %d", id)
		}
		if !found {
			continue
		}
		r.applyPrices(id, record)
	}

	now := time.Now()
	r.mu.Lock()
	r.lastUpdated = &now
	r.mu.Unlock()
	return nil
}

// applyPrices overwrites fuels that have a price in record. Fuels missing from the
// catalog this cycle keep their previous value.
func (r *registry) applyPrices(id int, record models.CatalogRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.stations[models.StationKey(id)]
	if !ok {
		return
	}
	if st.Fuels == nil {
		st.Fuels = make(map[models.Fuel]models.FuelPrice)
	}

	for _, fuel := range models.Fuels {
		price, err := record.OptionalFloat(fuel.PriceField())
		if err != nil {
			r.logger.Warn().Err(err).Int("id", id).Str("fuel", string(fuel)).Msg("ignoring unreadable price")
			continue
		}
		if price == nil || *price == 0 {
			continue
		}
		updated, _ := record.String(fuel.UpdatedField())
		st.Fuels[fuel] = models.FuelPrice{UpdatedDate: updated, Price: *price}
	}
	r.stations[st.Key()] = st
}

func (r *registry) FindNearest(ctx context.Context, ref models.Coordinates, fuel models.Fuel, radiusKm int) (models.Stations, error) {
	resp, err := r.client.Request(ctx, url.Values{
		"select":   {fmt.Sprintf("%s,%s,%s", stationFields, fuel.PriceField(), fuel.UpdatedField())},
		"where":    {spatialPredicate(ref, radiusKm)},
		"order_by": {fuel.PriceField()},
		"limit":    {strconv.Itoa(nearestLimit)},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query nearest stations")
	}
	r.logger.Debug().Int("total", resp.TotalCount).Str("fuel", string(fuel)).Msg("stations returned by the API")

	data := make(models.Stations, len(resp.Results))
	for _, record := range resp.Results {
		if st, ok := r.build(record, &ref, &fuel); ok {
			data[st.Key()] = st
		}
	}
	return data, nil
}

func (r *registry) StationExists(ctx context.Context, id int) (bool, error) {
	resp, err := r.client.Request(ctx, url.Values{
		"select": {"id"},
		"where":  {fmt.Sprintf("id=%d", id)},
		"limit":  {"1"},
	})
	if err != nil {
		return false, err
	}
	return resp.TotalCount == 1, nil
}

// lookup fetches a single station row. found is false when the catalog did not return
// exactly one match.
func (r *registry) lookup(ctx context.Context, id int, fields string) (models.CatalogRecord, bool, error) {
	resp, err := r.client.Request(ctx, url.Values{
		"select": {fields},
		"where":  {fmt.Sprintf("id=%d", id)},
		"limit":  {"1"},
	})
	if err != nil {
		return nil, false, err
	}
	if resp.TotalCount != 1 || len(resp.Results) == 0 {
		r.logger.Error().Int("id", id).Int("total", resp.TotalCount).Msg("stations returned, must be 1")
		stationsSkippedTotal.WithLabelValues("not_unique").Inc()
		return nil, false, nil
	}
	return resp.Results[0], true, nil
}

// build turns a catalog row into a station record. A row missing a mandatory field is
// logged and reported as not ok so that the rest of the batch carries on.
func (r *registry) build(record models.CatalogRecord, ref *models.Coordinates, fuel *models.Fuel) (models.Station, bool) {
	st, err := r.buildStation(record, ref, fuel)
	if err != nil {
		r.logger.Error().Err(err).Int("id", record.ID()).Msg("error while getting station information")
		stationsSkippedTotal.WithLabelValues("invalid_record").Inc()
		return models.Station{}, false
	}
	return st, true
}

func (r *registry) buildStation(record models.CatalogRecord, ref *models.Coordinates, fuel *models.Fuel) (models.Station, error) {
	var st models.Station
	var err error

	if st.ID, err = record.Int("id"); err != nil {
		return st, err
	}
	lat, err := record.Float("latitude")
	if err != nil {
		return st, err
	}
	lon, err := record.Float("longitude")
	if err != nil {
		return st, err
	}
	st.Latitude = lat / coordinateScale
	st.Longitude = lon / coordinateScale

	if st.Address, err = record.String("adresse"); err != nil {
		return st, err
	}
	if st.PostalCode, err = record.String("cp"); err != nil {
		return st, err
	}
	if st.City, err = record.String("ville"); err != nil {
		return st, err
	}

	if ref != nil {
		d := Distance(st.Longitude, st.Latitude, ref.Longitude, ref.Latitude)
		st.Distance = &d
	}
	st.Name = models.UndefinedName
	st.Fuels = make(map[models.Fuel]models.FuelPrice)

	if fuel != nil {
		if st.Price, err = record.OptionalFloat(fuel.PriceField()); err != nil {
			return st, err
		}
	}

	if local, ok := r.enrichment[st.Key()]; ok {
		overlay(&st.Name, local.Name)
		overlay(&st.Brand, local.Brand)
		overlay(&st.Address, local.Address)
		overlay(&st.PostalCode, local.PostalCode)
		overlay(&st.City, local.City)
	}
	return st, nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = NormalizeString(value)
	}
}

func (r *registry) replace(data models.Stations) {
	r.mu.Lock()
	r.stations = data
	r.mu.Unlock()
	stationsTracked.Set(float64(len(data)))
}

func (r *registry) has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.stations[key]
	return ok
}

func (r *registry) ids() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int, 0, len(r.stations))
	for _, st := range r.stations {
		ids = append(ids, st.ID)
	}
	slices.Sort(ids)
	return ids
}

func spatialPredicate(ref models.Coordinates, radiusKm int) string {
	return fmt.Sprintf("distance(geom, geom'POINT(%s %s)', %dkm)", FormatCoordinate(ref.Longitude), FormatCoordinate(ref.Latitude), radiusKm)
}

func FormatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
