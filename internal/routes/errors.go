package routes

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal"
)

// abortWithError maps engine errors onto HTTP statuses.
func abortWithError(c *gin.Context, logger zerolog.Logger, err error) {
	var reqErr *internal.RequestError
	switch {
	case errors.Is(err, internal.ErrInvalidStationID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_station_id"})
	case errors.Is(err, internal.ErrStationAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "station_already_exists"})
	case errors.Is(err, internal.ErrStationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "station_not_found"})
	case errors.Is(err, internal.ErrCannotConnect):
		logger.Warn().Err(err).Msg("catalog unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cannot_connect"})
	case errors.As(err, &reqErr):
		logger.Error().Err(err).Int("status", reqErr.StatusCode).Msg("catalog request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "request_error"})
	default:
		logger.Error().Err(err).Msg("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "An internal server error occurred"})
	}
}
