package processor

import (
	"context"
	"time"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// AddMetadata stamps each record with the pipeline name and the wall-clock
// processing time, so the destinations can tell which run produced a row.
type AddMetadata struct {
	pipeline string
	now      func() time.Time
}

func NewAddMetadata(config map[string]interface{}) (*AddMetadata, error) {
	pipeline, _ := types.GetString(config, "pipeline")
	return &AddMetadata{pipeline: pipeline, now: time.Now}, nil
}

func (a *AddMetadata) Name() string {
	return "AddMetadata"
}

func (a *AddMetadata) Transform(ctx context.Context, records []types.Record) ([]types.Record, error) {
	processedAt := a.now().UTC().Format(time.RFC3339)
	for _, rec := range records {
		rec["processed_at"] = processedAt
		if a.pipeline != "" {
			rec["pipeline"] = a.pipeline
		}
	}
	return records, nil
}
