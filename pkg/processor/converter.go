package processor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// TypeConverter coerces configured fields to a declared type: "int",
// "float", or "datetime" (RFC3339). File sources hand everything over as
// strings; destinations want real types.
//
// A value that cannot be converted is a data-integrity problem, so
// conversion failure is an error (fatal to the run), not a drop. Records
// that do not carry the field at all pass through untouched.
type TypeConverter struct {
	fields map[string]string
}

func NewTypeConverter(config map[string]interface{}) (*TypeConverter, error) {
	fields, ok := types.GetStringMap(config, "fields")
	if !ok || len(fields) == 0 {
		return nil, errors.New("fields map must be specified")
	}
	for field, kind := range fields {
		switch kind {
		case "int", "float", "datetime":
		default:
			return nil, fmt.Errorf("unsupported target type %q for field %q", kind, field)
		}
	}
	return &TypeConverter{fields: fields}, nil
}

func (c *TypeConverter) Name() string {
	return "TypeConverter"
}

func (c *TypeConverter) Transform(ctx context.Context, records []types.Record) ([]types.Record, error) {
	for i, rec := range records {
		for field, kind := range c.fields {
			value, ok := rec[field]
			if !ok || value == nil {
				continue
			}
			converted, err := convert(value, kind)
			if err != nil {
				return nil, fmt.Errorf("record %d, field %q: %w", i, field, err)
			}
			rec[field] = converted
		}
	}
	return records, nil
}

func convert(value interface{}, kind string) (interface{}, error) {
	switch kind {
	case "int":
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case float64:
			return int64(v), nil
		case string:
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to int", v)
			}
			return n, nil
		}
	case "float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot convert %q to float", v)
			}
			return f, nil
		}
	case "datetime":
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			t, err := types.ParseTimestamp(v)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot convert %T to %s", value, kind)
}
