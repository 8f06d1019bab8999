package consumer

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// SaveToCSV appends records to a CSV file with a fixed column order.
// The header row is written when the file is created.
type SaveToCSV struct {
	filePath string
	columns  []string
}

func NewSaveToCSV(config map[string]interface{}) (*SaveToCSV, error) {
	filePath, ok := types.GetString(config, "file_path")
	if !ok {
		return nil, fmt.Errorf("invalid configuration: missing 'file_path'")
	}

	columns, ok := types.GetStringSlice(config, "columns")
	if !ok || len(columns) == 0 {
		return nil, fmt.Errorf("invalid configuration: missing 'columns'")
	}

	return &SaveToCSV{
		filePath: filePath,
		columns:  columns,
	}, nil
}

func (c *SaveToCSV) Name() string {
	return "SaveToCSV"
}

func (c *SaveToCSV) Load(ctx context.Context, records []types.Record) error {
	if len(records) == 0 {
		return nil
	}

	_, statErr := os.Stat(c.filePath)
	writeHeader := os.IsNotExist(statErr)

	f, err := os.OpenFile(c.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.filePath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(c.columns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}

	for _, rec := range records {
		row := make([]string, len(c.columns))
		for i, col := range c.columns {
			row[i] = formatValue(rec[col])
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", c.filePath, err)
	}

	log.Printf("[INFO] SaveToCSV appended %d rows to %s", len(records), c.filePath)
	return nil
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func (c *SaveToCSV) Close() error {
	return nil
}
