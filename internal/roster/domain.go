package roster

import (
	"iter"
	"maps"
	"slices"
)

// Schema is the ordered set of columns taken from a roster header.
type Schema struct {
	columns []string
	index   map[string]int
}

func newSchema(columns []string) *Schema {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c] = i
	}

	return &Schema{columns: columns, index: index}
}

// Columns returns the column names in header order.
func (s *Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Has reports whether the column is part of the schema.
func (s *Schema) Has(column string) bool {
	_, ok := s.index[column]
	return ok
}

// Row is a single roster record. It is immutable once loaded.
type Row struct {
	schema *Schema
	values []string
	number int
}

// Number is the 1-based position of the row among data rows.
func (r Row) Number() int {
	return r.number
}

// Get returns the value of the column and whether the roster has that column.
func (r Row) Get(column string) (string, bool) {
	if r.schema == nil {
		return "", false
	}
	i, ok := r.schema.index[column]
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Map copies the row into a plain map.
func (r Row) Map() map[string]string {
	m := make(map[string]string, len(r.values))
	if r.schema == nil {
		return m
	}
	for i, c := range r.schema.columns {
		m[c] = r.values[i]
	}
	return m
}

// NewRow builds a row outside of a roster file. Columns are taken in sorted
// order so the result is deterministic.
func NewRow(number int, values map[string]string) Row {
	columns := slices.Sorted(maps.Keys(values))
	ordered := make([]string, len(columns))
	for i, c := range columns {
		ordered[i] = values[c]
	}

	return Row{schema: newSchema(columns), values: ordered, number: number}
}

// Roster is a fully loaded and validated roster.
type Roster struct {
	schema *Schema
	rows   []Row
}

// Schema returns the roster header.
func (r *Roster) Schema() *Schema {
	return r.schema
}

// Columns returns the header column names.
func (r *Roster) Columns() []string {
	return r.schema.Columns()
}

// Len returns the number of data rows.
func (r *Roster) Len() int {
	return len(r.rows)
}

// Rows iterates over the rows in file order.
func (r *Roster) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for _, row := range r.rows {
			if !yield(row) {
				return
			}
		}
	}
}
