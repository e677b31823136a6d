package brands

import (
	_ "embed"
	"io"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rm-hull/prix-carburant/internal"
	"github.com/rm-hull/prix-carburant/internal/models"
)

//go:embed logos.csv
var logosCSV string

var logos = sync.OnceValues(func() (map[string]*models.Brand, error) {
	return parseLogos(strings.NewReader(logosCSV))
})

// parseLogos indexes the brand rows by name. A brand may appear only once.
func parseLogos(r io.Reader) (map[string]*models.Brand, error) {
	byName := make(map[string]*models.Brand, 50)
	for record := range internal.ParseCSV(r, true, models.BrandFromCSV) {
		if record.Error != nil {
			return nil, errors.Wrap(record.Error, "failed to load brand logos")
		}
		if _, dup := byName[record.Value.Name]; dup {
			return nil, errors.Newf("brand %q listed more than once", record.Value.Name)
		}
		byName[record.Value.Name] = record.Value
	}
	return byName, nil
}

// GetEntityPicture returns the logo URL for a brand, or "" when the brand is unknown.
// Brand names are matched exactly.
func GetEntityPicture(brand string) string {
	byName, err := logos()
	if err != nil {
		return ""
	}
	if b, ok := byName[brand]; ok {
		return b.LogoURL
	}
	return ""
}
