// Package sensors turns registry snapshots into per station, per fuel sensor readings.
package sensors

import (
	"fmt"
	"slices"
	"time"

	"github.com/rm-hull/prix-carburant/internal/brands"
	"github.com/rm-hull/prix-carburant/internal/models"
)

const (
	UnitOfMeasurement = "€/L"
	Icon              = "mdi:gas-station"
)

type Attributes struct {
	Address             string   `json:"address"`
	PostalCode          string   `json:"postal_code"`
	City                string   `json:"city"`
	Name                string   `json:"name"`
	Brand               string   `json:"brand"`
	Distance            *float64 `json:"distance,omitempty"`
	FuelType            string   `json:"fuel_type"`
	UpdatedDate         string   `json:"updated_date,omitempty"`
	DaysSinceLastUpdate *int     `json:"days_since_last_update,omitempty"`
}

type Sensor struct {
	UniqueID      string
	Name          string
	StationID     int
	Fuel          models.Fuel
	State         *float64
	EntityPicture string
	Attributes    Attributes
}

type Options struct {
	Fuels                 []models.Fuel
	DisplayEntityPictures bool
}

// Build returns one sensor per station and enabled fuel, ordered by station id then fuel.
// Fuels the station has never priced still get a sensor with a nil state.
func Build(stations models.Stations, opts Options, now time.Time) []Sensor {
	fuels := opts.Fuels
	if len(fuels) == 0 {
		fuels = models.Fuels
	}

	ids := make([]int, 0, len(stations))
	byID := make(map[int]models.Station, len(stations))
	for _, st := range stations {
		ids = append(ids, st.ID)
		byID[st.ID] = st
	}
	slices.Sort(ids)

	sensors := make([]Sensor, 0, len(ids)*len(fuels))
	for _, id := range ids {
		st := byID[id]
		for _, fuel := range fuels {
			sensors = append(sensors, build(st, fuel, opts, now))
		}
	}
	return sensors
}

func build(st models.Station, fuel models.Fuel, opts Options, now time.Time) Sensor {
	s := Sensor{
		UniqueID:  UniqueID(st.ID, fuel),
		Name:      fmt.Sprintf("%s %s", displayName(st), fuel),
		StationID: st.ID,
		Fuel:      fuel,
		Attributes: Attributes{
			Address:    st.Address,
			PostalCode: st.PostalCode,
			City:       st.City,
			Name:       st.Name,
			Brand:      st.Brand,
			Distance:   st.Distance,
			FuelType:   string(fuel),
		},
	}

	if info, ok := st.Fuels[fuel]; ok {
		price := info.Price
		s.State = &price
		s.Attributes.UpdatedDate = info.UpdatedDate
		s.Attributes.DaysSinceLastUpdate = DaysSince(info.UpdatedDate, now)
	}

	if opts.DisplayEntityPictures {
		s.EntityPicture = brands.GetEntityPicture(st.Brand)
	}
	return s
}

func UniqueID(stationID int, fuel models.Fuel) string {
	return fmt.Sprintf("prix_carburant_%d_%s", stationID, fuel.Key())
}

func displayName(st models.Station) string {
	if st.Name == "" || st.Name == models.UndefinedName {
		return fmt.Sprintf("Station %d", st.ID)
	}
	return st.Name
}

var updatedDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// DaysSince returns the number of whole days between updated and now, or nil when
// updated cannot be parsed.
func DaysSince(updated string, now time.Time) *int {
	for _, layout := range updatedDateLayouts {
		t, err := time.Parse(layout, updated)
		if err != nil {
			continue
		}
		days := max(int(now.Sub(t).Hours()/24), 0)
		return &days
	}
	return nil
}
