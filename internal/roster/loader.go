package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
)

const utf8BOM = "\ufeff"

type options struct {
	delimiter rune
}

type Option func(*options)

// WithDelimiter sets the field separator, ',' by default.
func WithDelimiter(d rune) Option {
	return func(o *options) {
		if d != 0 {
			o.delimiter = d
		}
	}
}

// Scanner reads roster rows lazily.
type Scanner struct {
	reader *csv.Reader
	schema *Schema
	count  int
}

// NewScanner reads the header and returns a scanner positioned at the first
// data row.
func NewScanner(r io.Reader, opts ...Option) (*Scanner, error) {
	o := options{delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}

	reader := csv.NewReader(r)
	reader.Comma = o.delimiter
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, &MalformedRosterError{Reason: "missing header"}
	}
	if err != nil {
		return nil, parseError(err)
	}

	header[0] = strings.TrimPrefix(header[0], utf8BOM)
	for i, column := range header {
		header[i] = strings.TrimSpace(column)
		if header[i] == "" {
			return nil, &MalformedRosterError{Line: 1, Reason: fmt.Sprintf("empty name for column %d", i+1)}
		}
	}
	if dups := lo.FindDuplicates(header); len(dups) > 0 {
		return nil, &MalformedRosterError{Line: 1, Reason: fmt.Sprintf("duplicate columns %q", dups)}
	}

	reader.FieldsPerRecord = len(header)

	return &Scanner{
		reader: reader,
		schema: newSchema(header),
	}, nil
}

// Schema returns the header of the roster being scanned.
func (s *Scanner) Schema() *Schema {
	return s.schema
}

// Next returns the next row or io.EOF when the source is exhausted.
func (s *Scanner) Next() (Row, error) {
	record, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return Row{}, io.EOF
	}
	if err != nil {
		return Row{}, parseError(err)
	}

	s.count++
	return Row{schema: s.schema, values: record, number: s.count}, nil
}

// Load reads and validates the whole roster.
func Load(r io.Reader, opts ...Option) (*Roster, error) {
	scanner, err := NewScanner(r, opts...)
	if err != nil {
		return nil, err
	}

	roster := &Roster{schema: scanner.Schema()}
	for {
		row, nextErr := scanner.Next()
		if errors.Is(nextErr, io.EOF) {
			break
		}
		if nextErr != nil {
			return nil, nextErr
		}
		roster.rows = append(roster.rows, row)
	}

	return roster, nil
}

// LoadFile opens path and loads the roster from it.
func LoadFile(path string, opts ...Option) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	roster, err := Load(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return roster, nil
}

func parseError(err error) error {
	var pe *csv.ParseError
	if !errors.As(err, &pe) {
		return fmt.Errorf("failed to read roster: %w", err)
	}

	if errors.Is(pe.Err, csv.ErrFieldCount) {
		return &MalformedRosterError{Line: pe.Line, Reason: "column count differs from header"}
	}

	return &MalformedRosterError{Line: pe.Line, Reason: pe.Err.Error()}
}
