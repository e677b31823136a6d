package models

import "github.com/cockroachdb/errors"

type Brand struct {
	Name    string
	LogoURL string
}

func BrandFromCSV(record, headers []string) (*Brand, error) {
	if len(record) < 2 {
		return nil, errors.Newf("expected 2 columns, got %d", len(record))
	}
	return &Brand{
		Name:    record[0],
		LogoURL: record[1],
	}, nil
}
