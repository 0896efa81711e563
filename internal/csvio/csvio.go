// Package csvio reads and writes the device and identity inventory CSV files.
//
// Files follow RFC 4180: fields holding commas, quotes or newlines are
// quoted. List-valued columns use ";" between items.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrMissingHeaders is returned when a required column is absent. The whole
// import is rejected.
var ErrMissingHeaders = errors.New("missing required headers")

const listSeparator = ";"

// RowError reports a rejected data row. Row is the 1-based line number of
// the record in the file, counting the header as line 1.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ImportResult holds the accepted records and the per-row errors
type ImportResult[T any] struct {
	Records []T        `json:"records"`
	Errors  []RowError `json:"errors,omitempty"`
	Total   int        `json:"total_rows"`
}

// Accepted is the number of rows kept
func (r ImportResult[T]) Accepted() int {
	return len(r.Records)
}

// column binds a CSV header to a record field
type column[T any] struct {
	header   string
	required bool
	get      func(*T) string
	set      func(*T, string) error
}

func requiredColumn[T any](c column[T]) column[T] {
	c.required = true
	return c
}

type schema[T any] []column[T]

func (s schema[T]) headers() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.header
	}
	return out
}

func (s schema[T]) write(w io.Writer, records []T) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.headers()); err != nil {
		return err
	}

	row := make([]string, len(s))
	for i := range records {
		for j, c := range s {
			row[j] = c.get(&records[i])
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func (s schema[T]) read(r io.Reader) (ImportResult[T], error) {
	result := ImportResult[T]{Records: []T{}}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return result, fmt.Errorf("%w: file is empty", ErrMissingHeaders)
	}
	if err != nil {
		return result, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	var missing []string
	for _, c := range s {
		if _, ok := index[c.header]; c.required && !ok {
			missing = append(missing, c.header)
		}
	}
	if len(missing) > 0 {
		return result, fmt.Errorf("%w: %s", ErrMissingHeaders, strings.Join(missing, ", "))
	}

	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				result.Total++
				result.Errors = append(result.Errors, RowError{Row: perr.StartLine, Message: perr.Err.Error()})
				continue
			}
			return result, fmt.Errorf("read row: %w", err)
		}

		if blank(record) {
			continue
		}
		result.Total++
		line, _ := cr.FieldPos(0)

		if len(record) != len(header) {
			result.Errors = append(result.Errors, RowError{
				Row:     line,
				Message: fmt.Sprintf("expected %d fields, got %d", len(header), len(record)),
			})
			continue
		}

		rec, err := s.decode(index, record)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: line, Message: err.Error()})
			continue
		}
		result.Records = append(result.Records, rec)
	}

	return result, nil
}

func (s schema[T]) decode(index map[string]int, record []string) (T, error) {
	var rec T
	for _, c := range s {
		i, ok := index[c.header]
		if !ok {
			continue
		}
		value := strings.TrimSpace(record[i])
		if c.required && value == "" {
			return rec, fmt.Errorf("%s is required", c.header)
		}
		if value == "" {
			continue
		}
		if err := c.set(&rec, value); err != nil {
			return rec, fmt.Errorf("%s: %w", c.header, err)
		}
	}
	return rec, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "enabled", "on":
		return true, nil
	case "no", "n", "false", "0", "disabled", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

func formatBool(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatList(items []string) string {
	return strings.Join(items, listSeparator+" ")
}

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return n, nil
}
