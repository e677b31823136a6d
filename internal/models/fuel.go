package models

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type Fuel string

const (
	FuelE10    Fuel = "E10"
	FuelE85    Fuel = "E85"
	FuelSP95   Fuel = "SP95"
	FuelSP98   Fuel = "SP98"
	FuelGazole Fuel = "Gazole"
	FuelGPLc   Fuel = "GPLc"
)

// Fuels is the fixed set of fuels published by the catalog, in display order.
var Fuels = []Fuel{FuelE10, FuelE85, FuelSP95, FuelSP98, FuelGazole, FuelGPLc}

// Key returns the lowercase prefix the catalog uses for this fuel's fields.
func (f Fuel) Key() string {
	return strings.ToLower(string(f))
}

// PriceField is the catalog field holding this fuel's price, e.g. "e10_prix".
func (f Fuel) PriceField() string {
	return f.Key() + "_prix"
}

// UpdatedField is the catalog field holding this fuel's last update, e.g. "e10_maj".
func (f Fuel) UpdatedField() string {
	return f.Key() + "_maj"
}

func ParseFuel(s string) (Fuel, error) {
	for _, fuel := range Fuels {
		if strings.EqualFold(string(fuel), strings.TrimSpace(s)) {
			return fuel, nil
		}
	}
	return "", errors.Newf("unknown fuel type: %q", s)
}

func ParseFuels(values []string) ([]Fuel, error) {
	fuels := make([]Fuel, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		fuel, err := ParseFuel(v)
		if err != nil {
			return nil, err
		}
		fuels = append(fuels, fuel)
	}
	return fuels, nil
}
