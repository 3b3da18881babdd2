package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVOption customises a CSVExporter.
type CSVOption func(*CSVExporter)

// WithComma switches the field separator, e.g. ';' for spreadsheet locales that use decimal commas.
func WithComma(r rune) CSVOption {
	return func(e *CSVExporter) { e.comma = r }
}

// WithFreeCell sets the text written for unassigned slots. The default leaves them empty.
func WithFreeCell(text string) CSVOption {
	return func(e *CSVExporter) { e.free = text }
}

// CSVExporter writes a grid dataset as one record per hour.
type CSVExporter struct {
	comma rune
	free  string
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{comma: ','}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render encodes the dataset. The hour column is written as is; day cells fall back to the free
// slot text when empty.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = e.comma
	if err := w.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write grid header: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, header := range data.Headers {
			cell := row[header]
			if i > 0 && cell == "" {
				cell = e.free
			}
			record[i] = cell
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write grid row %d: %w", n, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush grid: %w", err)
	}
	return buf.Bytes(), nil
}
