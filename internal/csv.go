package internal

import (
	"encoding/csv"
	"io"
	"iter"

	"github.com/cockroachdb/errors"
)

type Result[T any] struct {
	Value T
	Error error
}

// ParseCSV yields one decoded value per CSV row. When hasHeaders is set the first row
// is passed to fromCSV as headers rather than decoded. Iteration stops after the
// first error.
func ParseCSV[T any](r io.Reader, hasHeaders bool, fromCSV func(record, headers []string) (T, error)) iter.Seq[Result[T]] {
	return func(yield func(Result[T]) bool) {
		reader := csv.NewReader(r)
		reader.TrimLeadingSpace = true
		reader.FieldsPerRecord = -1

		var headers []string
		if hasHeaders {
			h, err := reader.Read()
			if err != nil {
				if err != io.EOF {
					yield(Result[T]{Error: errors.Wrap(err, "failed to read CSV headers")})
				}
				return
			}
			headers = h
		}

		for line := 1; ; line++ {
			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Result[T]{Error: errors.Wrapf(err, "failed to read CSV row %d", line)})
				return
			}

			value, err := fromCSV(record, headers)
			if err != nil {
				yield(Result[T]{Error: errors.Wrapf(err, "failed to decode CSV row %d", line)})
				return
			}
			if !yield(Result[T]{Value: value}) {
				return
			}
		}
	}
}
