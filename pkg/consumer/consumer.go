package consumer

import (
	"context"
	"fmt"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// Loader persists a batch of transformed records to a destination. Load is
// called once per run with the full batch; Close releases connections when
// the pipeline shuts down.
type Loader interface {
	Name() string
	Load(ctx context.Context, records []types.Record) error
	Close() error
}

// New creates a loader from its YAML config block.
func New(cfg types.ConsumerConfig) (Loader, error) {
	switch cfg.Type {
	case "SaveToSQLite":
		return NewSaveToSQLite(cfg.Config)
	case "SaveToPostgreSQL":
		return NewSaveToPostgreSQL(cfg.Config)
	case "SaveToMongoDB":
		return NewSaveToMongoDB(cfg.Config)
	case "SaveToRedis":
		return NewSaveToRedis(cfg.Config)
	case "SaveToExcel":
		return NewSaveToExcel(cfg.Config)
	case "SaveToCSV":
		return NewSaveToCSV(cfg.Config)
	default:
		return nil, fmt.Errorf("unsupported consumer type: %s", cfg.Type)
	}
}

// recordKey extracts the configured key field as a string, used by the
// destinations that upsert.
func recordKey(rec types.Record, field string) (string, error) {
	value, ok := rec[field]
	if !ok || value == nil {
		return "", fmt.Errorf("record missing key field %q", field)
	}
	return fmt.Sprintf("%v", value), nil
}
