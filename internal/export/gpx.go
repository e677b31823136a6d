// Package export renders tracked stations as GPX waypoints.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/rm-hull/prix-carburant/internal/models"
)

const creator = "prix-carburant"

// ToGPX builds one waypoint per station, ordered by station id. The description lists
// the prices of the requested fuels (every fuel when empty).
func ToGPX(stations models.Stations, fuels []models.Fuel, now time.Time) *gpx.GPX {
	if len(fuels) == 0 {
		fuels = models.Fuels
	}

	list := make([]models.Station, 0, len(stations))
	for _, st := range stations {
		list = append(list, st)
	}
	slices.SortFunc(list, func(a, b models.Station) int { return a.ID - b.ID })

	g := &gpx.GPX{
		Creator:   creator,
		Name:      "Stations",
		Time:      &now,
		Waypoints: make([]gpx.GPXPoint, 0, len(list)),
	}
	for _, st := range list {
		g.Waypoints = append(g.Waypoints, gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  st.Latitude,
				Longitude: st.Longitude,
			},
			Name:        waypointName(st),
			Description: describe(st, fuels),
			Comment:     fmt.Sprintf("%s, %s %s", st.Address, st.PostalCode, st.City),
			Symbol:      "Gas Station",
			Type:        st.Brand,
		})
	}
	return g
}

func WriteGPX(w io.Writer, stations models.Stations, fuels []models.Fuel, now time.Time) error {
	data, err := ToGPX(stations, fuels, now).ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return errors.Wrap(err, "failed to render GPX")
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "failed to write GPX")
	}
	return nil
}

func waypointName(st models.Station) string {
	if st.Name != "" && st.Name != models.UndefinedName {
		return st.Name
	}
	return fmt.Sprintf("Station %d", st.ID)
}

func describe(st models.Station, fuels []models.Fuel) string {
	parts := make([]string, 0, len(fuels))
	for _, fuel := range fuels {
		if info, ok := st.Fuels[fuel]; ok {
			parts = append(parts, fmt.Sprintf("%s: %.3f €", fuel, info.Price))
		}
	}
	if len(parts) == 0 {
		return "no price"
	}
	return strings.Join(parts, ", ")
}
