package quizcheck

import (
	"iter"
	"strings"

	messages "github.com/cucumber/messages/go/v21"
)

// Row represents a single row of a DataTable.
type Row struct {
	cells   []string
	headers []string
}

// Get returns the cell under the column header col (case-insensitive), or
// an empty string.
func (r Row) Get(col string) string {
	for i, h := range r.headers {
		if strings.EqualFold(h, col) {
			return r.Cell(i)
		}
	}
	return ""
}

// Cell returns the cell at index, or an empty string when out of range.
func (r Row) Cell(index int) string {
	if index < 0 || index >= len(r.cells) {
		return ""
	}
	return r.cells[index]
}

func (r Row) Values() []string {
	cp := make([]string, len(r.cells))
	copy(cp, r.cells)
	return cp
}

func (r Row) Len() int {
	return len(r.cells)
}

// Field is one name/value pair of a two column table.
type Field struct {
	Name  string
	Value string
}

// Table represents a Gherkin DataTable attached to a step. The first row
// doubles as the header for Row.Get lookups.
type Table struct {
	headers []string
	rows    []Row
}

// NewTable creates a Table from raw cells.
func NewTable(data [][]string) Table {
	if len(data) == 0 {
		return Table{}
	}

	headers := make([]string, len(data[0]))
	copy(headers, data[0])

	rows := make([]Row, len(data))
	for i, cells := range data {
		cp := make([]string, len(cells))
		copy(cp, cells)
		rows[i] = Row{cells: cp, headers: headers}
	}
	return Table{headers: headers, rows: rows}
}

// NewTableFromPickle creates a Table from a compiled pickle DataTable.
func NewTableFromPickle(dt *messages.PickleTable) Table {
	return NewTable(PickleTableCells(dt))
}

// PickleTableCells flattens a pickle DataTable into raw cells.
func PickleTableCells(dt *messages.PickleTable) [][]string {
	if dt == nil {
		return nil
	}
	data := make([][]string, len(dt.Rows))
	for i, row := range dt.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.Value
		}
		data[i] = cells
	}
	return data
}

func (t Table) Headers() []string {
	cp := make([]string, len(t.headers))
	copy(cp, t.headers)
	return cp
}

// Len returns the number of rows, header row included.
func (t Table) Len() int {
	return len(t.rows)
}

// All iterates over every row, header row included.
func (t Table) All() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i, row := range t.rows {
			if !yield(i, row) {
				return
			}
		}
	}
}

// SkipHeader iterates over data rows only.
func (t Table) SkipHeader() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := 1; i < len(t.rows); i++ {
			if !yield(i-1, t.rows[i]) {
				return
			}
		}
	}
}

// Fields reads a header-less two column table as name/value pairs in row
// order. A single column row yields an empty value.
func (t Table) Fields() []Field {
	fields := make([]Field, 0, len(t.rows))
	for _, row := range t.rows {
		name := strings.TrimSpace(row.Cell(0))
		if name == "" {
			continue
		}
		fields = append(fields, Field{Name: name, Value: row.Cell(1)})
	}
	return fields
}
