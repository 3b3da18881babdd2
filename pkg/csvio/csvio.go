// Package csvio reads timetable inputs from CSV files and writes solved slots back out.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// SubjectRecord is one row of subjects.csv.
type SubjectRecord struct {
	Subject string `csv:"subject"`
	Hours   int    `csv:"hours"`
}

// PreferenceRecord is one row of preferences.csv.
type PreferenceRecord struct {
	Day     string  `csv:"day"`
	Hour    string  `csv:"hour"`
	Subject string  `csv:"subject"`
	Weight  float64 `csv:"weight"`
}

// ConstraintRecord is one row of constraints.csv.
type ConstraintRecord struct {
	Day     string `csv:"day"`
	Hour    string `csv:"hour"`
	Subject string `csv:"subject"`
	Flag    int    `csv:"flag"`
}

// SlotRecord is one row of a solved schedule export.
type SlotRecord struct {
	Day     string `csv:"day"`
	Hour    string `csv:"hour"`
	Subject string `csv:"subject"`
}

// Codec binds the CSV delimiter used for reading and writing.
type Codec struct {
	Comma rune
}

// New returns a codec for the given delimiter. A zero rune means comma.
func New(comma rune) Codec {
	if comma == 0 {
		comma = ','
	}
	return Codec{Comma: comma}
}

func (c Codec) reader(in io.Reader) gocsv.CSVReader {
	r := csv.NewReader(in)
	r.Comma = c.Comma
	r.TrimLeadingSpace = true
	return r
}

func (c Codec) writer(out io.Writer) *gocsv.SafeCSVWriter {
	w := csv.NewWriter(out)
	w.Comma = c.Comma
	return gocsv.NewSafeCSVWriter(w)
}

// ReadSubjects parses subject rows, trimming identifiers and rejecting blanks.
func (c Codec) ReadSubjects(in io.Reader) ([]SubjectRecord, error) {
	var rows []SubjectRecord
	if err := gocsv.UnmarshalCSV(c.reader(in), &rows); err != nil {
		return nil, fmt.Errorf("parse subjects: %w", err)
	}
	for i := range rows {
		rows[i].Subject = strings.TrimSpace(rows[i].Subject)
		if rows[i].Subject == "" {
			return nil, fmt.Errorf("parse subjects: row %d has an empty subject", i+1)
		}
	}
	return rows, nil
}

// ReadPreferences parses preference rows.
func (c Codec) ReadPreferences(in io.Reader) ([]PreferenceRecord, error) {
	var rows []PreferenceRecord
	if err := gocsv.UnmarshalCSV(c.reader(in), &rows); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	for i := range rows {
		rows[i].Day = strings.TrimSpace(rows[i].Day)
		rows[i].Hour = strings.TrimSpace(rows[i].Hour)
		rows[i].Subject = strings.TrimSpace(rows[i].Subject)
	}
	return rows, nil
}

// ReadConstraints parses hard constraint rows.
func (c Codec) ReadConstraints(in io.Reader) ([]ConstraintRecord, error) {
	var rows []ConstraintRecord
	if err := gocsv.UnmarshalCSV(c.reader(in), &rows); err != nil {
		return nil, fmt.Errorf("parse constraints: %w", err)
	}
	for i := range rows {
		rows[i].Day = strings.TrimSpace(rows[i].Day)
		rows[i].Hour = strings.TrimSpace(rows[i].Hour)
		rows[i].Subject = strings.TrimSpace(rows[i].Subject)
	}
	return rows, nil
}

// WriteSlots writes slot rows with a header line.
func (c Codec) WriteSlots(out io.Writer, slots []SlotRecord) error {
	if err := gocsv.MarshalCSV(&slots, c.writer(out)); err != nil {
		return fmt.Errorf("write slots: %w", err)
	}
	return nil
}

// OpenAndRead opens path and hands the file to read. An empty path yields the zero value.
func OpenAndRead[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}
