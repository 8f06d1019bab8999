package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestCSVSourceExtract(t *testing.T) {
	path := writeFile(t, "bookings.csv",
		"booking_id,customer,campsite\n1,Ana Silva,Chapada dos Veadeiros\n2,Joao Souza,Ilha do Mel\n")

	src, err := NewCSVSource(map[string]interface{}{
		"name":           "bookings",
		"path":           path,
		"numeric_fields": []interface{}{"booking_id"},
	})
	require.NoError(t, err)

	records, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0]["booking_id"])
	assert.Equal(t, "Ana Silva", records[0]["customer"])
	assert.Equal(t, "Ilha do Mel", records[1]["campsite"])
}

func TestCSVSourceEmptyFile(t *testing.T) {
	path := writeFile(t, "empty.csv", "")

	src, err := NewCSVSource(map[string]interface{}{"name": "bookings", "path": path})
	require.NoError(t, err)

	records, err := src.Extract(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCSVSourceUnparseableNumericStaysString(t *testing.T) {
	path := writeFile(t, "bookings.csv", "booking_id,customer\nabc,Ana\n")

	src, err := NewCSVSource(map[string]interface{}{
		"name":           "bookings",
		"path":           path,
		"numeric_fields": []interface{}{"booking_id"},
	})
	require.NoError(t, err)

	records, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "abc", records[0]["booking_id"])
}

func TestCSVSourceMissingFile(t *testing.T) {
	src, err := NewCSVSource(map[string]interface{}{"name": "bookings", "path": "/does/not/exist.csv"})
	require.NoError(t, err)

	_, err = src.Extract(context.Background())
	assert.Error(t, err)
}

func TestCSVSourceConfigValidation(t *testing.T) {
	_, err := NewCSVSource(map[string]interface{}{"path": "x.csv"})
	assert.Error(t, err)

	_, err = NewCSVSource(map[string]interface{}{"name": "bookings"})
	assert.Error(t, err)
}
