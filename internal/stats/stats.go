package stats

import (
	"fmt"
	"math"
	"slices"

	"github.com/rm-hull/prix-carburant/internal/models"
)

// Derive summarises the prices of the given stations for each fuel in fuels (every
// fuel when empty). Prices are bucketed into bucketCents wide ranges.
func Derive(stations models.Stations, fuels []models.Fuel, bucketCents int) *models.StationStatistics {
	if bucketCents <= 0 {
		bucketCents = 10
	}
	if len(fuels) == 0 {
		fuels = models.Fuels
	}
	stats := &models.StationStatistics{
		CheapestStations:  make(map[models.Fuel][]string),
		LowestPrice:       make(map[models.Fuel]float64),
		AveragePrice:      make(map[models.Fuel]float64),
		HighestPrice:      make(map[models.Fuel]float64),
		PriceDistribution: make(map[models.Fuel]map[string]int),
		StandardDeviation: make(map[models.Fuel]float64),
		BrandDistribution: make(map[string]int),
	}

	// Group prices by fuel type
	fuelPrices := make(map[models.Fuel][]float64)
	fuelStations := make(map[models.Fuel]map[float64][]string) // price -> station keys

	for key, st := range stations {
		for _, fuel := range fuels {
			info, ok := st.Fuels[fuel]
			if !ok || info.Price <= 0 {
				continue
			}
			fuelPrices[fuel] = append(fuelPrices[fuel], info.Price)

			if fuelStations[fuel] == nil {
				fuelStations[fuel] = make(map[float64][]string)
			}
			fuelStations[fuel][info.Price] = append(fuelStations[fuel][info.Price], key)
		}
	}

	for fuel, prices := range fuelPrices {
		lowest := slices.Min(prices)
		highest := slices.Max(prices)
		sum := 0.0
		for _, p := range prices {
			sum += p
		}

		stats.LowestPrice[fuel] = lowest
		stats.HighestPrice[fuel] = highest
		cheapest := fuelStations[fuel][lowest]
		slices.Sort(cheapest)
		stats.CheapestStations[fuel] = cheapest

		avg := sum / float64(len(prices))
		stats.AveragePrice[fuel] = math.Round(avg*1000) / 1000

		if len(prices) > 1 {
			variance := 0.0
			for _, p := range prices {
				variance += math.Pow(p-avg, 2)
			}
			variance /= float64(len(prices))
			stats.StandardDeviation[fuel] = math.Sqrt(variance)
		}

		stats.PriceDistribution[fuel] = make(map[string]int)
		for _, p := range prices {
			cents := int(math.Round(p * 100))
			bucketStart := (cents / bucketCents) * bucketCents
			bucketEnd := bucketStart + bucketCents - 1
			stats.PriceDistribution[fuel][fmt.Sprintf("%d-%d", bucketStart, bucketEnd)]++
		}
	}

	for _, st := range stations {
		if st.Brand != "" {
			stats.BrandDistribution[st.Brand]++
		}
	}

	return stats
}
