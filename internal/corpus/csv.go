package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadCSV reads a corpus file with a header containing "title" and "text"
// columns. When limit > 0 only the first limit rows are read.
func LoadCSV(path string, limit int) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	records, err := ReadCSV(f, limit)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", path, err)
	}
	return NewMemory(records), nil
}

// ReadCSV decodes corpus rows from r.
func ReadCSV(r io.Reader, limit int) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	titleCol, textCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "title":
			titleCol = i
		case "text":
			textCol = i
		}
	}
	if titleCol < 0 || textCol < 0 {
		return nil, fmt.Errorf("header must contain title and text columns, got %v", header)
	}

	var records []Record
	for limit <= 0 || len(records) < limit {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(records)+1, err)
		}
		rec := Record{Position: len(records)}
		if titleCol < len(row) {
			rec.Title = row[titleCol]
		}
		if textCol < len(row) {
			rec.Text = row[textCol]
		}
		records = append(records, rec)
	}
	return records, nil
}

// CSVWriter streams records to a corpus file, writing the header first.
type CSVWriter struct {
	w       *csv.Writer
	started bool
	count   int
}

// NewCSVWriter wraps w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends one record.
func (c *CSVWriter) Write(r Record) error {
	if !c.started {
		if err := c.w.Write([]string{"title", "text"}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		c.started = true
	}
	if err := c.w.Write([]string{r.Title, r.Text}); err != nil {
		return fmt.Errorf("write row %d: %w", c.count, err)
	}
	c.count++
	return nil
}

// Count returns the number of records written.
func (c *CSVWriter) Count() int { return c.count }

// Flush writes buffered rows, emitting the header even for an empty corpus.
func (c *CSVWriter) Flush() error {
	if !c.started {
		if err := c.w.Write([]string{"title", "text"}); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		c.started = true
	}
	c.w.Flush()
	return c.w.Error()
}
