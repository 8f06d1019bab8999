package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// CSVSource reads a header-rowed CSV export (bookings, campsites) into
// records. CSV carries no types, so fields listed in numeric_fields are
// parsed to int64 on read; everything else stays a string.
type CSVSource struct {
	name          string
	path          string
	numericFields map[string]bool
}

func NewCSVSource(config map[string]interface{}) (*CSVSource, error) {
	name, ok := types.GetString(config, "name")
	if !ok {
		return nil, errors.New("name must be specified")
	}

	path, ok := types.GetString(config, "path")
	if !ok {
		return nil, errors.New("path must be specified")
	}

	return &CSVSource{
		name:          name,
		path:          path,
		numericFields: numericFieldSet(config),
	}, nil
}

func (s *CSVSource) Name() string {
	return s.name
}

func (s *CSVSource) Extract(ctx context.Context) ([]types.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := readCSV(ctx, f, s.numericFields)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file %s: %w", s.path, err)
	}
	return records, nil
}

func (s *CSVSource) Close() error {
	return nil
}

func numericFieldSet(config map[string]interface{}) map[string]bool {
	set := make(map[string]bool)
	if fields, ok := types.GetStringSlice(config, "numeric_fields"); ok {
		for _, f := range fields {
			set[f] = true
		}
	}
	return set
}

// readCSV parses a header-rowed CSV stream into records, converting the
// named numeric fields to int64. Unparseable numerics stay strings; the
// incremental filter and validators deal with them downstream.
func readCSV(ctx context.Context, r io.Reader, numericFields map[string]bool) ([]types.Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var records []types.Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		rec := make(types.Record, len(header))
		for i, col := range header {
			if i >= len(row) {
				break
			}
			value := row[i]
			if numericFields[col] {
				if n, perr := strconv.ParseInt(value, 10, 64); perr == nil {
					rec[col] = n
					continue
				}
			}
			rec[col] = value
		}
		records = append(records, rec)
	}

	return records, nil
}
