package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/consumer"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/processor"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/source"
)

// Options tune the extract phase.
type Options struct {
	// Parallel extracts all sources concurrently. The watermark store is
	// the only shared resource and each source touches its own key, so
	// the store's internal lock is the only coordination needed.
	Parallel bool
	// RetryLimit is the number of extraction attempts per source.
	RetryLimit int
	// RetryWait is the initial backoff between attempts; it doubles on
	// every retry.
	RetryWait time.Duration
}

// Pipeline runs the three phases in strict order: EXTRACT, TRANSFORM,
// LOAD.
//
// A single source failing to extract costs the run that source's
// contribution and nothing else. A transformer failing aborts the run
// before LOAD, because data of unknown integrity must never be
// persisted. A loader failing aborts the run, but watermarks advanced
// during EXTRACT stay advanced: re-delivering an extracted batch after a
// transient load failure is an operator action (watermark reset), not an
// automatic re-extraction on every run. That asymmetry is deliberate.
type Pipeline struct {
	name         string
	sources      []source.Source
	transformers []processor.Transformer
	loaders      []consumer.Loader
	opts         Options
}

func New(name string, sources []source.Source, transformers []processor.Transformer, loaders []consumer.Loader, opts Options) *Pipeline {
	if opts.RetryLimit < 1 {
		opts.RetryLimit = 1
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 5 * time.Second
	}
	return &Pipeline{
		name:         name,
		sources:      sources,
		transformers: transformers,
		loaders:      loaders,
		opts:         opts,
	}
}

// Run executes one pipeline run and returns its statistics. The returned
// stats are valid even when err is non-nil: they describe how far the run
// got.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	stats := newStats(p.name)
	defer func() { stats.FinishedAt = time.Now() }()

	log.Printf("[INFO] pipeline %s: starting extract phase (%d sources)", p.name, len(p.sources))
	records := p.extract(ctx, stats)
	stats.RecordsExtracted = len(records)

	if len(stats.SourceErrors) == len(p.sources) && len(p.sources) > 0 {
		log.Printf("[WARN] pipeline %s: all sources failed to extract", p.name)
	}

	log.Printf("[INFO] pipeline %s: starting transform phase (%d records, %d stages)",
		p.name, len(records), len(p.transformers))
	records, err := p.transform(ctx, stats, records)
	if err != nil {
		return stats, fmt.Errorf("transform phase failed: %w", err)
	}

	log.Printf("[INFO] pipeline %s: starting load phase (%d records, %d destinations)",
		p.name, len(records), len(p.loaders))
	if err := p.load(ctx, stats, records); err != nil {
		return stats, fmt.Errorf("load phase failed: %w", err)
	}

	log.Printf("[INFO] pipeline run complete: %s", stats.Summary())
	return stats, nil
}

func (p *Pipeline) extract(ctx context.Context, stats *Stats) []types.Record {
	if !p.opts.Parallel || len(p.sources) < 2 {
		var combined []types.Record
		for _, src := range p.sources {
			combined = append(combined, p.extractOne(ctx, stats, src)...)
		}
		return combined
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		combined []types.Record
	)
	for _, src := range p.sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			records := p.extractOne(ctx, stats, src)
			mu.Lock()
			combined = append(combined, records...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return combined
}

// extractOne pulls one source with retries. Failures are recorded, not
// propagated: the rest of the run continues without this source.
func (p *Pipeline) extractOne(ctx context.Context, stats *Stats, src source.Source) []types.Record {
	var records []types.Record
	err := withRetry(ctx, p.opts.RetryLimit, p.opts.RetryWait,
		fmt.Sprintf("extract %s", src.Name()),
		func() error {
			var err error
			records, err = src.Extract(ctx)
			return err
		})

	stats.mu.Lock()
	defer stats.mu.Unlock()

	if err != nil {
		log.Printf("[ERROR] pipeline %s: source %s failed, continuing without it: %v", p.name, src.Name(), err)
		stats.SourceErrors[src.Name()] = err.Error()
		return nil
	}

	stats.ExtractedBySource[src.Name()] = len(records)
	if inc, ok := src.(*source.Incremental); ok {
		stats.RecordsSkipped += inc.Skipped()
	}
	return records
}

func (p *Pipeline) transform(ctx context.Context, stats *Stats, records []types.Record) ([]types.Record, error) {
	for _, stage := range p.transformers {
		before := len(records)
		out, err := stage.Transform(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		if dropped := before - len(out); dropped > 0 {
			stats.DroppedByStage[stage.Name()] += dropped
			stats.RecordsDropped += dropped
		}
		records = out
	}
	return records, nil
}

func (p *Pipeline) load(ctx context.Context, stats *Stats, records []types.Record) error {
	for _, loader := range p.loaders {
		if err := loader.Load(ctx, records); err != nil {
			return fmt.Errorf("loader %s: %w", loader.Name(), err)
		}
		stats.RecordsLoaded += len(records)
	}
	return nil
}

// Close releases all sources and loaders, keeping the first error.
func (p *Pipeline) Close() error {
	var first error
	for _, src := range p.sources {
		if err := src.Close(); err != nil && first == nil {
			first = err
		}
	}
	for _, loader := range p.loaders {
		if err := loader.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
