package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/username/backoffice/backend/src/security/validation"
)

// Column is one column of a spreadsheet export.
type Column[T any] struct {
	Header string
	Value  func(T) any
}

const maxSheetName = 31

// WriteXLSX renders rows into a single-sheet workbook. String cells are
// protected against formula injection.
func WriteXLSX[T any](w io.Writer, title string, columns []Column[T], rows []T) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := title
	if len(sheet) > maxSheetName {
		sheet = sheet[:maxSheetName]
	}
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	headers := make([]any, len(columns))
	for i, c := range columns {
		headers[i] = c.Header
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if len(columns) > 0 {
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("failed to create header style: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
			return fmt.Errorf("failed to style header: %w", err)
		}
	}

	for r, row := range rows {
		values := make([]any, len(columns))
		for i, c := range columns {
			v := c.Value(row)
			if s, ok := v.(string); ok {
				v = validation.SanitizeCell(s)
			}
			values[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", r+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
