package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/rm-hull/prix-carburant/internal"
)

// ValidateStations checks that the station names file at path is well formed.
func ValidateStations(path string, out io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	if err := internal.ValidateEnrichment(data); err != nil {
		return errors.Wrapf(err, "%s is invalid", path)
	}
	_, err = fmt.Fprintf(out, "%s is valid\n", path)
	return err
}
