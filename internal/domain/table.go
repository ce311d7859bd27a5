package domain

import "sort"

// Table is the tabular container produced by normalizing a list of Records:
// one row per record, one column per flattened field. The column set is the
// union of fields across all normalized records; fields missing from a record
// yield nil cells. Cell ordering inside a row always follows Columns.
type Table struct {
	Columns []string
	Rows    [][]any
}

// NewTable creates an empty table with the given column set.
func NewTable(columns []string) *Table {
	return &Table{Columns: columns}
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// ColumnIndex returns the position of the named column, or -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns all cells of the named column in row order.
// The second return value is false when the column does not exist.
func (t *Table) Column(name string) ([]any, bool) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, false
	}
	cells := make([]any, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells, true
}

// Project returns a new table restricted to the named columns, in the order
// given. Requesting a column the table does not have is an error: the caller
// asked for a schema the data cannot provide.
func (t *Table) Project(columns []string) (*Table, error) {
	indices := make([]int, len(columns))
	for i, name := range columns {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			return nil, NewConfigurationError("column " + name + " not present in table")
		}
		indices[i] = idx
	}
	out := &Table{Columns: append([]string(nil), columns...)}
	out.Rows = make([][]any, len(t.Rows))
	for r, row := range t.Rows {
		cells := make([]any, len(indices))
		for i, idx := range indices {
			cells[i] = row[idx]
		}
		out.Rows[r] = cells
	}
	return out, nil
}

// NormalizeRecords flattens a list of records into a Table. Nested objects
// are flattened into dot-joined column names ("geo.city"); arrays are kept as
// cell values. Columns appear in order of first appearance, with keys inside
// each record walked alphabetically so the ordering is deterministic.
//
// A nil records slice produces a table with zero rows and zero columns.
// Callers that expect specific columns must handle that case themselves.
func NormalizeRecords(records []Record) *Table {
	t := &Table{}
	colIndex := make(map[string]int)

	flat := make([]map[string]any, len(records))
	for i, rec := range records {
		f := make(map[string]any)
		flattenInto(f, "", map[string]any(rec))
		flat[i] = f

		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, ok := colIndex[k]; !ok {
				colIndex[k] = len(t.Columns)
				t.Columns = append(t.Columns, k)
			}
		}
	}

	t.Rows = make([][]any, len(records))
	for i, f := range flat {
		row := make([]any, len(t.Columns))
		for k, v := range f {
			row[colIndex[k]] = v
		}
		t.Rows[i] = row
	}
	return t
}

// flattenInto walks a nested object and writes dot-joined leaf keys into dst.
// Nested maps recurse; every other value (including arrays) is a leaf.
func flattenInto(dst map[string]any, prefix string, obj map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]any); ok {
			flattenInto(dst, key, sub)
			continue
		}
		dst[key] = v
	}
}
