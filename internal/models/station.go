package models

import (
	"maps"
	"slices"
	"strconv"
)

const UndefinedName = "undefined"

// Coordinates is a reference point used for distance annotation and spatial queries.
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

type FuelPrice struct {
	UpdatedDate string  `json:"updated_date"`
	Price       float64 `json:"price"`
}

type Station struct {
	ID         int                `json:"id"`
	Latitude   float64            `json:"latitude"`
	Longitude  float64            `json:"longitude"`
	Distance   *float64           `json:"distance"`
	Address    string             `json:"address"`
	PostalCode string             `json:"postal_code"`
	City       string             `json:"city"`
	Name       string             `json:"name"`
	Brand      string             `json:"brand,omitempty"`
	Fuels      map[Fuel]FuelPrice `json:"fuels"`
	Price      *float64           `json:"price,omitempty"`
}

// Key is the registry key for the station.
func (s Station) Key() string {
	return StationKey(s.ID)
}

// Clone returns a deep copy so callers can't mutate registry state.
func (s Station) Clone() Station {
	out := s
	out.Fuels = maps.Clone(s.Fuels)
	if out.Fuels == nil {
		out.Fuels = make(map[Fuel]FuelPrice)
	}
	if s.Distance != nil {
		d := *s.Distance
		out.Distance = &d
	}
	if s.Price != nil {
		p := *s.Price
		out.Price = &p
	}
	return out
}

func StationKey(id int) string {
	return strconv.Itoa(id)
}

// Stations maps a station key to its record.
type Stations map[string]Station

func (s Stations) Clone() Stations {
	out := make(Stations, len(s))
	for k, v := range s {
		out[k] = v.Clone()
	}
	return out
}

// ByPrice lists the stations cheapest first. Stations without a price come last, and
// ties are broken by id.
func (s Stations) ByPrice() []Station {
	list := make([]Station, 0, len(s))
	for _, st := range s {
		list = append(list, st)
	}
	slices.SortFunc(list, func(a, b Station) int {
		switch {
		case a.Price == nil && b.Price != nil:
			return 1
		case a.Price != nil && b.Price == nil:
			return -1
		case a.Price != nil && *a.Price != *b.Price:
			if *a.Price < *b.Price {
				return -1
			}
			return 1
		}
		return a.ID - b.ID
	})
	return list
}
