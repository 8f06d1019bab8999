package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/consumer"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/processor"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/source"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/watermark"
)

type stubSource struct {
	name    string
	records []types.Record
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Extract(ctx context.Context) ([]types.Record, error) {
	return s.records, nil
}

func (s *stubSource) Close() error { return nil }

type stubLoader struct {
	loaded []types.Record
}

func (l *stubLoader) Name() string { return "StubLoader" }

func (l *stubLoader) Load(ctx context.Context, records []types.Record) error {
	l.loaded = append(l.loaded, records...)
	return nil
}

func (l *stubLoader) Close() error { return nil }

func writeRunnerConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const runnerConfig = `
pipelines:
  bookings:
    sources:
      - type: StubSource
        config: {name: bookings}
    consumers:
      - type: StubLoader
`

func TestRunExecutesPipeline(t *testing.T) {
	loader := &stubLoader{}
	factories := Factories{
		CreateSource: func(cfg types.SourceConfig, _ *watermark.Manager) (source.Source, error) {
			return &stubSource{
				name:    "bookings",
				records: []types.Record{{"booking_id": int64(1)}, {"booking_id": int64(2)}},
			}, nil
		},
		CreateProcessor: func(cfg types.ProcessorConfig) (processor.Transformer, error) {
			return processor.New(cfg)
		},
		CreateConsumer: func(cfg types.ConsumerConfig) (consumer.Loader, error) {
			return loader, nil
		},
	}

	r := New(Options{ConfigFile: writeRunnerConfig(t, runnerConfig)}, factories)
	require.NoError(t, r.Run(context.Background()))
	assert.Len(t, loader.loaded, 2)
}

func TestRunReportsFailedPipelines(t *testing.T) {
	factories := Factories{
		CreateSource: func(cfg types.SourceConfig, _ *watermark.Manager) (source.Source, error) {
			return nil, errors.New("connection refused")
		},
		CreateProcessor: func(cfg types.ProcessorConfig) (processor.Transformer, error) {
			return processor.New(cfg)
		},
		CreateConsumer: func(cfg types.ConsumerConfig) (consumer.Loader, error) {
			return &stubLoader{}, nil
		},
	}

	r := New(Options{ConfigFile: writeRunnerConfig(t, runnerConfig)}, factories)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 pipeline(s) failed")
}

func TestValidate(t *testing.T) {
	r := New(Options{ConfigFile: writeRunnerConfig(t, runnerConfig)}, DefaultFactories())
	assert.NoError(t, r.Validate())

	r = New(Options{ConfigFile: writeRunnerConfig(t, "pipelines: {}")}, DefaultFactories())
	assert.Error(t, r.Validate())
}
