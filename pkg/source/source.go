package source

import (
	"context"
	"fmt"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/watermark"
)

// Source reads all currently available records from an underlying store.
// Implementations are synchronous and blocking; timeout policy belongs to
// the caller via ctx.
type Source interface {
	Name() string
	Extract(ctx context.Context) ([]types.Record, error)
	Close() error
}

// New creates a source from its YAML config block. When the block names a
// watermark_field, the source is wrapped for incremental extraction
// against the given watermark manager.
func New(cfg types.SourceConfig, watermarks *watermark.Manager) (Source, error) {
	var (
		src Source
		err error
	)

	switch cfg.Type {
	case "CSVSource":
		src, err = NewCSVSource(cfg.Config)
	case "JSONSource":
		src, err = NewJSONSource(cfg.Config)
	case "PostgresSource":
		src, err = NewPostgresSource(cfg.Config)
	case "SQLiteSource":
		src, err = NewSQLiteSource(cfg.Config)
	case "S3Source":
		src, err = NewS3Source(cfg.Config)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if field, ok := types.GetString(cfg.Config, "watermark_field"); ok && field != "" {
		if watermarks == nil {
			return nil, fmt.Errorf("source %s declares watermark_field but no watermark store is configured", src.Name())
		}
		return NewIncremental(src, watermarks, field), nil
	}
	return src, nil
}
