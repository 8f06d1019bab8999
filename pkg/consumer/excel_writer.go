package consumer

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"
)

type excelWriter struct {
	filePath  string
	sheetName string
	headers   []string
	file      *excelize.File
	nextRow   int
}

func newExcelWriter(filePath, sheetName string, headers []string) (*excelWriter, error) {
	writer := &excelWriter{
		filePath:  filePath,
		sheetName: sheetName,
		headers:   headers,
		nextRow:   2,
	}

	f, err := excelize.OpenFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error opening Excel file: %w", err)
		}
		f = excelize.NewFile()
		f.SetSheetName("Sheet1", sheetName)
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheetName, cell, h)
		}
	} else {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("error reading sheet %s: %w", sheetName, err)
		}
		writer.nextRow = len(rows) + 1
	}
	writer.file = f

	return writer, nil
}

func (w *excelWriter) AppendRow(values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, w.nextRow)
		if err != nil {
			return fmt.Errorf("error computing cell name: %w", err)
		}
		if err := w.file.SetCellValue(w.sheetName, cell, v); err != nil {
			return fmt.Errorf("error writing cell %s: %w", cell, err)
		}
	}
	w.nextRow++
	return nil
}

func (w *excelWriter) Save() error {
	if err := w.file.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("error saving Excel file: %w", err)
	}
	return nil
}

func (w *excelWriter) Close() error {
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}
