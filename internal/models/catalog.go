package models

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMissingField is returned when a mandatory catalog field is absent or of the wrong type.
var ErrMissingField = errors.New("missing or invalid catalog field")

// CatalogResponse is the envelope returned by the records endpoint.
type CatalogResponse struct {
	TotalCount int             `json:"total_count"`
	Results    []CatalogRecord `json:"results"`
}

// CatalogRecord is a single result row. Its shape depends on the "select" parameter
// so it is kept as a loose mapping and read through typed accessors.
type CatalogRecord map[string]any

func (r CatalogRecord) Has(field string) bool {
	v, ok := r[field]
	return ok && v != nil
}

func (r CatalogRecord) Int(field string) (int, error) {
	switch v := r[field].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case jsoniter.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, errors.Mark(errors.Wrapf(err, "field %q", field), ErrMissingField)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, errors.Mark(errors.Wrapf(err, "field %q", field), ErrMissingField)
		}
		return i, nil
	default:
		return 0, errors.Wrapf(ErrMissingField, "field %q (%T)", field, v)
	}
}

func (r CatalogRecord) Float(field string) (float64, error) {
	switch v := r[field].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case jsoniter.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errors.Mark(errors.Wrapf(err, "field %q", field), ErrMissingField)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, errors.Mark(errors.Wrapf(err, "field %q", field), ErrMissingField)
		}
		return f, nil
	default:
		return 0, errors.Wrapf(ErrMissingField, "field %q (%T)", field, v)
	}
}

// OptionalFloat returns nil when the field is absent or null.
func (r CatalogRecord) OptionalFloat(field string) (*float64, error) {
	if !r.Has(field) {
		return nil, nil
	}
	f, err := r.Float(field)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r CatalogRecord) String(field string) (string, error) {
	switch v := r[field].(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", errors.Wrapf(ErrMissingField, "field %q (%T)", field, v)
	}
}

// ID returns the record's station id, or -1 if it has none.
func (r CatalogRecord) ID() int {
	id, err := r.Int("id")
	if err != nil {
		return -1
	}
	return id
}

// DecodeCatalogResponse parses a records endpoint body.
func DecodeCatalogResponse(body []byte) (*CatalogResponse, error) {
	var resp CatalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal catalog response")
	}
	return &resp, nil
}
