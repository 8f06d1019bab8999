package runner

import (
	"context"
	"fmt"
	"log"

	"github.com/trilhabrasil/outdoor-pipeline/internal/config"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/consumer"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/pipeline"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/processor"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/source"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/watermark"
)

type Options struct {
	ConfigFile string
	Verbose    bool
}

// Factory functions for creating pipeline components. Injected from the
// main package so tests can substitute fakes.
type Factories struct {
	CreateSource    func(types.SourceConfig, *watermark.Manager) (source.Source, error)
	CreateProcessor func(types.ProcessorConfig) (processor.Transformer, error)
	CreateConsumer  func(types.ConsumerConfig) (consumer.Loader, error)
}

// DefaultFactories wires the packages' own constructors.
func DefaultFactories() Factories {
	return Factories{
		CreateSource:    source.New,
		CreateProcessor: processor.New,
		CreateConsumer:  consumer.New,
	}
}

type Runner struct {
	opts      Options
	factories Factories
}

func New(opts Options, factories Factories) *Runner {
	return &Runner{
		opts:      opts,
		factories: factories,
	}
}

// Validate loads and validates the configuration without running
// anything.
func (r *Runner) Validate() error {
	_, err := config.Load(r.opts.ConfigFile)
	return err
}

// Run executes every pipeline in the configuration. A pipeline failing
// is logged and does not stop the remaining pipelines.
func (r *Runner) Run(ctx context.Context) error {
	cfg, err := config.Load(r.opts.ConfigFile)
	if err != nil {
		return err
	}

	var watermarks *watermark.Manager
	if cfg.WatermarkStore != "" {
		watermarks, err = watermark.NewManager(cfg.WatermarkStore)
		if err != nil {
			return fmt.Errorf("error opening watermark store: %w", err)
		}
	}

	var failed int
	for name, pipelineConfig := range cfg.Pipelines {
		log.Printf("[INFO] Starting pipeline: %s", name)
		if err := r.runPipeline(ctx, pipelineConfig, watermarks); err != nil {
			log.Printf("[ERROR] Pipeline %s failed: %v", name, err)
			failed++
		}
	}

	log.Printf("[INFO] All pipelines finished.")
	if failed > 0 {
		return fmt.Errorf("%d pipeline(s) failed", failed)
	}
	return nil
}

func (r *Runner) runPipeline(ctx context.Context, pipelineConfig config.PipelineConfig, watermarks *watermark.Manager) error {
	sources := make([]source.Source, 0, len(pipelineConfig.Sources))
	for _, srcConfig := range pipelineConfig.Sources {
		src, err := r.factories.CreateSource(srcConfig, watermarks)
		if err != nil {
			closeSources(sources)
			return fmt.Errorf("error creating source %s: %w", srcConfig.Type, err)
		}
		sources = append(sources, src)
	}

	transformers := make([]processor.Transformer, len(pipelineConfig.Processors))
	for i, procConfig := range pipelineConfig.Processors {
		proc, err := r.factories.CreateProcessor(procConfig)
		if err != nil {
			closeSources(sources)
			return fmt.Errorf("error creating processor %s: %w", procConfig.Type, err)
		}
		transformers[i] = proc
	}

	loaders := make([]consumer.Loader, 0, len(pipelineConfig.Consumers))
	for _, consConfig := range pipelineConfig.Consumers {
		cons, err := r.factories.CreateConsumer(consConfig)
		if err != nil {
			closeSources(sources)
			closeLoaders(loaders)
			return fmt.Errorf("error creating consumer %s: %w", consConfig.Type, err)
		}
		loaders = append(loaders, cons)
	}

	p := pipeline.New(pipelineConfig.Name, sources, transformers, loaders, pipeline.Options{
		Parallel:   pipelineConfig.Options.ParallelExtract,
		RetryLimit: pipelineConfig.Options.RetryLimit,
		RetryWait:  pipelineConfig.Options.RetryWait(),
	})

	stats, runErr := p.Run(ctx)
	if stats != nil {
		log.Printf("[INFO] %s", stats.Summary())
		if r.opts.Verbose {
			for src, n := range stats.ExtractedBySource {
				log.Printf("[INFO] Source %s extracted %d records", src, n)
			}
			for stage, n := range stats.DroppedByStage {
				log.Printf("[INFO] Stage %s dropped %d records", stage, n)
			}
		}
	}

	if closeErr := p.Close(); closeErr != nil {
		log.Printf("[WARN] Error closing pipeline components: %v", closeErr)
	}

	return runErr
}

func closeSources(sources []source.Source) {
	for _, src := range sources {
		if err := src.Close(); err != nil {
			log.Printf("[WARN] Error closing source %s: %v", src.Name(), err)
		}
	}
}

func closeLoaders(loaders []consumer.Loader) {
	for _, l := range loaders {
		if err := l.Close(); err != nil {
			log.Printf("[WARN] Error closing consumer %s: %v", l.Name(), err)
		}
	}
}
