package source

import (
	"context"
	"log"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/watermark"
)

// Incremental wraps a Source so each extraction returns only records whose
// watermark field is strictly greater than the stored watermark. After a
// non-empty extraction the watermark advances to the maximum field value
// seen, which makes a retried run with no new data return nothing and
// leave the watermark untouched.
//
// Records equal to the stored watermark are excluded: the boundary record
// was already delivered by the run that set the watermark.
//
// Records missing the watermark field, or carrying a value that cannot be
// compared with the stored watermark, are skipped and counted rather than
// delivered. They would otherwise be reprocessed on every run forever.
type Incremental struct {
	inner      Source
	watermarks *watermark.Manager
	field      string

	skipped int
}

func NewIncremental(inner Source, watermarks *watermark.Manager, field string) *Incremental {
	return &Incremental{
		inner:      inner,
		watermarks: watermarks,
		field:      field,
	}
}

func (s *Incremental) Name() string {
	return s.inner.Name()
}

func (s *Incremental) Extract(ctx context.Context) ([]types.Record, error) {
	all, err := s.inner.Extract(ctx)
	if err != nil {
		return nil, err
	}

	current := s.watermarks.Get(s.Name(), nil)
	s.skipped = 0

	var (
		out []types.Record
		max interface{}
	)
	for _, rec := range all {
		value, ok := rec[s.field]
		if !ok || value == nil {
			s.skipped++
			log.Printf("[WARN] source %s: record missing watermark field %q, skipping", s.Name(), s.field)
			continue
		}

		if current != nil {
			cmp, comparable := watermark.Compare(value, current)
			if !comparable {
				s.skipped++
				log.Printf("[WARN] source %s: watermark field %q has incomparable value %v (%T), skipping",
					s.Name(), s.field, value, value)
				continue
			}
			if cmp <= 0 {
				continue
			}
		}

		// On first run there is no stored watermark to compare against,
		// so a mixed-type batch is caught here: anything incomparable
		// with the running max is skipped, not delivered once and then
		// shadowed forever.
		if max == nil {
			max = value
		} else {
			cmp, comparable := watermark.Compare(value, max)
			if !comparable {
				s.skipped++
				log.Printf("[WARN] source %s: watermark field %q has incomparable value %v (%T), skipping",
					s.Name(), s.field, value, value)
				continue
			}
			if cmp > 0 {
				max = value
			}
		}

		out = append(out, rec)
	}

	if s.skipped > 0 {
		log.Printf("[WARN] source %s: skipped %d records without a usable watermark value", s.Name(), s.skipped)
	}

	// The watermark only moves on a non-empty result, and only after the
	// filtered batch is fully materialized. A failed extraction never
	// advances it.
	if len(out) > 0 {
		if err := s.watermarks.Update(s.Name(), max); err != nil {
			return nil, err
		}
	}

	return out, nil
}

// Skipped reports how many records the last Extract dropped for missing
// or incomparable watermark values.
func (s *Incremental) Skipped() int {
	return s.skipped
}

// WatermarkField returns the record field used as the checkpoint comparator.
func (s *Incremental) WatermarkField() string {
	return s.field
}

func (s *Incremental) Close() error {
	return s.inner.Close()
}
