package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExcelOptions controls worksheet presentation.
type ExcelOptions struct {
	SheetName    string
	ColumnWidths []float64
	// StatusColumn is the zero-based column whose cells are filled per value;
	// negative disables status coloring.
	StatusColumn int
	StatusFills  map[string]string
}

// ExcelExporter renders Dataset records into a styled xlsx workbook.
type ExcelExporter struct {
	opts ExcelOptions
}

// NewExcelExporter builds an exporter with the provided options.
func NewExcelExporter(opts ExcelOptions) *ExcelExporter {
	if opts.SheetName == "" {
		opts.SheetName = "Sheet1"
	}
	if opts.StatusFills == nil {
		opts.StatusColumn = -1
	}
	return &ExcelExporter{opts: opts}
}

// Render produces xlsx bytes with a bold, filled header row and optional
// per-status cell coloring.
func (e *ExcelExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	sheet := e.opts.SheetName
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if sheet != "Sheet1" {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return nil, fmt.Errorf("drop default sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, header := range data.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	statusStyles := make(map[string]int, len(e.opts.StatusFills))
	for value, color := range e.opts.StatusFills {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return nil, fmt.Errorf("status style: %w", err)
		}
		statusStyles[value] = style
	}

	for rowIdx, row := range data.Rows {
		for colIdx := range data.Headers {
			var value string
			if colIdx < len(row) {
				value = row[colIdx]
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("write cell: %w", err)
			}
			if colIdx == e.opts.StatusColumn {
				if style, ok := statusStyles[value]; ok {
					if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
						return nil, fmt.Errorf("style cell: %w", err)
					}
				}
			}
		}
	}

	for i := range data.Headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := 15.0
		if i < len(e.opts.ColumnWidths) && e.opts.ColumnWidths[i] > 0 {
			width = e.opts.ColumnWidths[i]
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
