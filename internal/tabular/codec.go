// Package tabular converts between spreadsheet files and in-memory tables.
// It is the only place that touches the workbook format; everything above it
// works on ordered rows with named columns.
package tabular

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrEmptySheet is returned when the first worksheet has no header row.
var ErrEmptySheet = errors.New("worksheet has no header row")

// Table is an ordered sequence of rows under a fixed header. Rows are
// padded to the header length so every row has one cell per column.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Parse reads the first worksheet of an xlsx/xls workbook. The first row is
// taken as the header; remaining rows become data rows.
func Parse(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading worksheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}

	headers := rows[0]
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		// excelize trims trailing empty cells; pad back to the header width.
		for len(row) < len(headers) {
			row = append(row, "")
		}
		data = append(data, row[:len(headers)])
	}

	return &Table{Headers: headers, Rows: data}, nil
}

// Write renders a header row plus data rows into an xlsx workbook.
func Write(headers []string, rows [][]string) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("writing header row: %w", err)
	}

	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("computing cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return nil, fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serializing workbook: %w", err)
	}

	return buf, nil
}
