package consumer

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

func TestSaveToCSVWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	loader, err := NewSaveToCSV(map[string]interface{}{
		"file_path": path,
		"columns":   []interface{}{"booking_id", "customer"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, loader.Load(ctx, []types.Record{
		{"booking_id": int64(1), "customer": "Ana"},
	}))
	require.NoError(t, loader.Load(ctx, []types.Record{
		{"booking_id": int64(2), "customer": "Joao"},
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"booking_id", "customer"}, rows[0])
	assert.Equal(t, []string{"1", "Ana"}, rows[1])
	assert.Equal(t, []string{"2", "Joao"}, rows[2])
}

func TestSaveToCSVMissingFieldIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	loader, err := NewSaveToCSV(map[string]interface{}{
		"file_path": path,
		"columns":   []interface{}{"booking_id", "customer"},
	})
	require.NoError(t, err)

	require.NoError(t, loader.Load(context.Background(), []types.Record{
		{"booking_id": int64(1)},
	}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", ""}, rows[1])
}

func TestLoaderFactory(t *testing.T) {
	tests := []struct {
		cfgType string
		wantErr bool
	}{
		{"SaveToCSV", false},
		{"SaveToBigQuery", true},
	}

	for _, tt := range tests {
		t.Run(tt.cfgType, func(t *testing.T) {
			_, err := New(types.ConsumerConfig{
				Type: tt.cfgType,
				Config: map[string]interface{}{
					"file_path": filepath.Join(t.TempDir(), "out.csv"),
					"columns":   []interface{}{"booking_id"},
				},
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
