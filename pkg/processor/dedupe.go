package processor

import (
	"context"
	"fmt"
	"log"

	"github.com/pkg/errors"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// Deduplicate keeps the last record seen for each key field value.
// Partner exports routinely contain the same booking twice when their
// cron overlaps; last-write-wins matches how the destinations upsert.
type Deduplicate struct {
	field string
}

func NewDeduplicate(config map[string]interface{}) (*Deduplicate, error) {
	field, ok := types.GetString(config, "field")
	if !ok {
		// The destinations call their upsert key "key_field"; accept the
		// same name here so one spelling works across a pipeline file.
		field, ok = types.GetString(config, "key_field")
	}
	if !ok {
		return nil, errors.New("field must be specified")
	}
	return &Deduplicate{field: field}, nil
}

func (d *Deduplicate) Name() string {
	return "Deduplicate"
}

func (d *Deduplicate) Transform(ctx context.Context, records []types.Record) ([]types.Record, error) {
	seen := make(map[string]int, len(records))
	out := make([]types.Record, 0, len(records))

	for _, rec := range records {
		value, ok := rec[d.field]
		if !ok || value == nil {
			// No key to deduplicate on; keep the record.
			out = append(out, rec)
			continue
		}
		key := fmt.Sprintf("%v", value)
		if idx, dup := seen[key]; dup {
			out[idx] = rec
			continue
		}
		seen[key] = len(out)
		out = append(out, rec)
	}

	if removed := len(records) - len(out); removed > 0 {
		log.Printf("[INFO] Deduplicate removed %d duplicate records by %s", removed, d.field)
	}
	return out, nil
}
