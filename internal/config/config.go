// Package config loads and validates the trailctl pipeline configuration
// file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"gopkg.in/yaml.v2"
)

// Configuration validation errors.
var (
	ErrNoPipelines       = errors.New("at least one pipeline is required")
	ErrNoSources         = errors.New("at least one source is required")
	ErrNoConsumers       = errors.New("at least one consumer is required")
	ErrMissingSourceType = errors.New("source type is required")
	ErrInvalidRetryLimit = errors.New("options.retry_limit must be at least 1")
	ErrInvalidRetryWait  = errors.New("options.retry_wait_seconds must be non-negative")
)

// Config is the root of a trailctl configuration file.
type Config struct {
	// WatermarkStore is the JSON file holding per-source checkpoints.
	// Optional: pipelines without watermark-aware sources can omit it.
	WatermarkStore string                    `yaml:"watermark_store"`
	Pipelines      map[string]PipelineConfig `yaml:"pipelines"`
}

// PipelineConfig describes one pipeline: its sources, the transformer
// chain, and the destinations.
type PipelineConfig struct {
	Name       string                  `yaml:"name"`
	Sources    []types.SourceConfig    `yaml:"sources"`
	Processors []types.ProcessorConfig `yaml:"processors"`
	Consumers  []types.ConsumerConfig  `yaml:"consumers"`
	Options    RunOptions              `yaml:"options"`
}

// RunOptions tune the extract phase of a pipeline.
type RunOptions struct {
	ParallelExtract  bool `yaml:"parallel_extract"`
	RetryLimit       int  `yaml:"retry_limit"`
	RetryWaitSeconds int  `yaml:"retry_wait_seconds"`
}

// RetryWait returns the configured backoff as a duration.
func (o RunOptions) RetryWait() time.Duration {
	return time.Duration(o.RetryWaitSeconds) * time.Second
}

// Load reads and parses a configuration file, applies defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	for name, p := range c.Pipelines {
		if p.Name == "" {
			p.Name = name
		}
		if p.Options.RetryLimit == 0 {
			p.Options.RetryLimit = 3
		}
		if p.Options.RetryWaitSeconds == 0 {
			p.Options.RetryWaitSeconds = 5
		}
		c.Pipelines[name] = p
	}
}

// Validate checks structural problems a run would only hit mid-flight.
func (c *Config) Validate() error {
	if len(c.Pipelines) == 0 {
		return ErrNoPipelines
	}

	for name, p := range c.Pipelines {
		if len(p.Sources) == 0 {
			return fmt.Errorf("pipeline %s: %w", name, ErrNoSources)
		}
		if len(p.Consumers) == 0 {
			return fmt.Errorf("pipeline %s: %w", name, ErrNoConsumers)
		}
		for i, src := range p.Sources {
			if src.Type == "" {
				return fmt.Errorf("pipeline %s, source %d: %w", name, i, ErrMissingSourceType)
			}
			if field, ok := types.GetString(src.Config, "watermark_field"); ok && field != "" && c.WatermarkStore == "" {
				return fmt.Errorf("pipeline %s, source %d: watermark_field requires a top-level watermark_store", name, i)
			}
		}
		for i, proc := range p.Processors {
			if proc.Type == "" {
				return fmt.Errorf("pipeline %s, processor %d: type is required", name, i)
			}
		}
		for i, cons := range p.Consumers {
			if cons.Type == "" {
				return fmt.Errorf("pipeline %s, consumer %d: type is required", name, i)
			}
		}
		if p.Options.RetryLimit < 1 {
			return fmt.Errorf("pipeline %s: %w", name, ErrInvalidRetryLimit)
		}
		if p.Options.RetryWaitSeconds < 0 {
			return fmt.Errorf("pipeline %s: %w", name, ErrInvalidRetryWait)
		}
	}
	return nil
}
