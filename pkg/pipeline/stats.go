package pipeline

import (
	"fmt"
	"sync"
	"time"
)

// Stats aggregates one pipeline run. Counts follow the record batch
// through the phases: extracted per source, skipped by the incremental
// filter, dropped by validators, and finally loaded per destination.
type Stats struct {
	Pipeline   string    `json:"pipeline"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	ExtractedBySource map[string]int    `json:"extracted_by_source"`
	SourceErrors      map[string]string `json:"source_errors,omitempty"`
	RecordsExtracted  int               `json:"records_extracted"`
	RecordsSkipped    int               `json:"records_skipped"`
	RecordsDropped    int               `json:"records_dropped"`
	RecordsLoaded     int               `json:"records_loaded"`
	DroppedByStage    map[string]int    `json:"dropped_by_stage,omitempty"`

	// guards the maps and counters during parallel extraction
	mu sync.Mutex
}

func newStats(pipeline string) *Stats {
	return &Stats{
		Pipeline:          pipeline,
		StartedAt:         time.Now(),
		ExtractedBySource: make(map[string]int),
		SourceErrors:      make(map[string]string),
		DroppedByStage:    make(map[string]int),
	}
}

// Duration of the run so far; FinishedAt is only stamped when Run
// returns, so a summary logged mid-run measures against the clock.
func (s *Stats) Duration() time.Duration {
	end := s.FinishedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartedAt)
}

// Summary renders a one-line report for the run log.
func (s *Stats) Summary() string {
	return fmt.Sprintf(
		"pipeline=%s extracted=%d skipped=%d dropped=%d loaded=%d source_errors=%d duration=%s",
		s.Pipeline, s.RecordsExtracted, s.RecordsSkipped, s.RecordsDropped,
		s.RecordsLoaded, len(s.SourceErrors), s.Duration().Round(time.Millisecond),
	)
}
