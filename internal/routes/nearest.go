package routes

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kofalt/go-memoize"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/models"
)

const (
	defaultRadiusKm = 10
	maxRadiusKm     = 50
)

// Nearest looks up the cheapest stations for a fuel around a point. Identical lookups
// are served from memo until it expires.
func Nearest(registry internal.StationRegistry, memo *memoize.Memoizer, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuel, err := models.ParseFuel(c.Query("fuel"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ref, err := parseReference(c.Query("lat"), c.Query("lon"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		radius := defaultRadiusKm
		if s := c.Query("radius"); s != "" {
			r, rerr := strconv.Atoi(s)
			if rerr != nil || r <= 0 || r > maxRadiusKm {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("radius must be between 1 and %d km", maxRadiusKm)})
				return
			}
			radius = r
		}

		key := fmt.Sprintf("%s:%s:%s:%d", fuel, internal.FormatCoordinate(ref.Longitude), internal.FormatCoordinate(ref.Latitude), radius)
		result, err, cached := memo.Memoize(key, func() (any, error) {
			return registry.FindNearest(c.Request.Context(), ref, fuel, radius)
		})
		if err != nil {
			abortWithError(c, logger, err)
			return
		}
		logger.Debug().Str("key", key).Bool("cached", cached).Msg("nearest stations")

		c.JSON(http.StatusOK, models.NearestResponse{
			Fuel:        fuel,
			Reference:   ref,
			RadiusKm:    radius,
			Results:     result.(models.Stations).ByPrice(),
			Attribution: internal.ATTRIBUTION,
		})
	}
}

func parseReference(lat, lon string) (models.Coordinates, error) {
	latitude, err := strconv.ParseFloat(lat, 64)
	if err != nil || latitude < -90 || latitude > 90 {
		return models.Coordinates{}, fmt.Errorf("invalid lat parameter: %q", lat)
	}
	longitude, err := strconv.ParseFloat(lon, 64)
	if err != nil || longitude < -180 || longitude > 180 {
		return models.Coordinates{}, fmt.Errorf("invalid lon parameter: %q", lon)
	}
	return models.Coordinates{Latitude: latitude, Longitude: longitude}, nil
}
