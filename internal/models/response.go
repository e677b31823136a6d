package models

import "time"

type StationStatistics struct {
	CheapestStations  map[Fuel][]string       `json:"cheapest_stations"`
	LowestPrice       map[Fuel]float64        `json:"lowest_price"`
	AveragePrice      map[Fuel]float64        `json:"average_price"`
	HighestPrice      map[Fuel]float64        `json:"highest_price"`
	PriceDistribution map[Fuel]map[string]int `json:"price_distribution"`
	StandardDeviation map[Fuel]float64        `json:"standard_deviation"`
	BrandDistribution map[string]int          `json:"brand_distribution"`
}

type StationsResponse struct {
	Stations    Stations           `json:"stations"`
	Statistics  *StationStatistics `json:"statistics"`
	Attribution []string           `json:"attribution"`
	LastUpdated *time.Time         `json:"last_updated,omitempty"`
}

type NearestResponse struct {
	Fuel        Fuel        `json:"fuel"`
	Reference   Coordinates `json:"reference"`
	RadiusKm    int         `json:"radius_km"`
	Results     []Station   `json:"results"`
	Attribution []string    `json:"attribution"`
}

type ManualStationsResponse struct {
	ManualStations []int `json:"manual_stations"`
}
