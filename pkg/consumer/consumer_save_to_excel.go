package consumer

import (
	"context"
	"fmt"
	"log"

	"github.com/trilhabrasil/outdoor-pipeline/pkg/common/types"
)

// SaveToExcel appends each record as a row to a workbook, one column per
// configured field. The ops team reviews these by hand, so column order
// is explicit in the config rather than derived from the records.
type SaveToExcel struct {
	filePath string
	columns  []string
	writer   *excelWriter
}

func NewSaveToExcel(config map[string]interface{}) (*SaveToExcel, error) {
	filePath, ok := types.GetString(config, "file_path")
	if !ok {
		return nil, fmt.Errorf("invalid configuration: missing 'file_path'")
	}

	columns, ok := types.GetStringSlice(config, "columns")
	if !ok || len(columns) == 0 {
		return nil, fmt.Errorf("invalid configuration: missing 'columns'")
	}

	sheetName, ok := types.GetString(config, "sheet")
	if !ok {
		sheetName = "Records"
	}

	writer, err := newExcelWriter(filePath, sheetName, columns)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel writer: %w", err)
	}

	return &SaveToExcel{
		filePath: filePath,
		columns:  columns,
		writer:   writer,
	}, nil
}

func (c *SaveToExcel) Name() string {
	return "SaveToExcel"
}

func (c *SaveToExcel) Load(ctx context.Context, records []types.Record) error {
	for _, rec := range records {
		row := make([]interface{}, len(c.columns))
		for i, col := range c.columns {
			row[i] = rec[col]
		}
		if err := c.writer.AppendRow(row); err != nil {
			return fmt.Errorf("failed to append row: %w", err)
		}
	}

	if err := c.writer.Save(); err != nil {
		return err
	}

	log.Printf("[INFO] SaveToExcel wrote %d rows to %s", len(records), c.filePath)
	return nil
}

func (c *SaveToExcel) Close() error {
	return c.writer.Close()
}
