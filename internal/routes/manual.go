package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/models"
)

type addStationRequest struct {
	ID string `json:"id" binding:"required"`
}

func ManualStations(coordinator *internal.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.ManualStationsResponse{ManualStations: coordinator.ManualStations()})
	}
}

func AddManualStation(coordinator *internal.Coordinator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req addStationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_station_id"})
			return
		}

		id, err := coordinator.AddManualStation(c.Request.Context(), req.ID)
		if err != nil {
			abortWithError(c, logger, err)
			return
		}

		st, _ := coordinator.Registry().Station(id)
		c.JSON(http.StatusCreated, st)
	}
}

func RemoveManualStation(coordinator *internal.Coordinator, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_station_id"})
			return
		}

		if err := coordinator.RemoveManualStations(c.Request.Context(), []int{id}); err != nil {
			abortWithError(c, logger, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
