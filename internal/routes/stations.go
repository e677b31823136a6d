package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/export"
	"github.com/rm-hull/prix-carburant/internal/models"
	"github.com/rm-hull/prix-carburant/internal/stats"
)

const priceBucketCents = 10

func Stations(registry internal.StationRegistry, fuels []models.Fuel) gin.HandlerFunc {
	return func(c *gin.Context) {
		stations := registry.Stations()
		c.JSON(http.StatusOK, models.StationsResponse{
			Stations:    stations,
			Statistics:  stats.Derive(stations, fuels, priceBucketCents),
			Attribution: internal.ATTRIBUTION,
			LastUpdated: registry.LastUpdated(),
		})
	}
}

func Station(registry internal.StationRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_station_id"})
			return
		}

		st, ok := registry.Station(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "station_not_found"})
			return
		}
		c.JSON(http.StatusOK, st)
	}
}

func StationsGPX(registry internal.StationRegistry, fuels []models.Fuel, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Disposition", `attachment; filename="stations.gpx"`)
		c.Header("Content-Type", "application/gpx+xml")
		c.Status(http.StatusOK)
		if err := export.WriteGPX(c.Writer, registry.Stations(), fuels, time.Now().UTC()); err != nil {
			logger.Error().Err(err).Msg("error while exporting stations")
		}
	}
}
