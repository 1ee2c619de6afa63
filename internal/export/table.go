package export

import (
	"io"
	"strconv"
	"strings"
	"sync"
)

// Table accumulates rows against one HeaderSchema and renders them as a
// rectangular comma-delimited block.
//
// Submit and Render share a single lock, so a Table may be read while
// another goroutine submits. Rows themselves are not locked.
type Table struct {
	mu     sync.RWMutex
	schema *HeaderSchema
	rows   []*Row
	maxima []int // observed maximum per field index; only Dynamic entries move
}

// NewTable returns an empty table with an empty schema.
func NewTable() *Table {
	return &Table{schema: NewHeaderSchema()}
}

// RegisterHeaders declares fields in output order. Names ending in
// DynamicMarker are Dynamic. It must be called before NewRow; afterwards it
// returns SchemaFrozenError.
func (t *Table) RegisterHeaders(names []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.schema.Register(names); err != nil {
		return err
	}
	for len(t.maxima) < t.schema.Len() {
		t.maxima = append(t.maxima, 0)
	}
	return nil
}

// Schema returns the table's schema. It is shared with every row.
func (t *Table) Schema() *HeaderSchema {
	return t.schema
}

// NewRow returns an empty row bound to the table's schema: Static fields
// hold "" and Dynamic fields hold an empty Sequence. The first call freezes
// the schema.
func (t *Table) NewRow() *Row {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.schema.rows++
	return newRow(t, t.schema)
}

// Submit appends row and raises the observed maximum of every Dynamic
// field to at least the row's sequence length. Maxima never decrease.
// After Submit the row can no longer be changed.
func (t *Table) Submit(row *Row) error {
	if row == nil || row.owner != t {
		return ErrForeignRow
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if row.submitted {
		return ErrRowSubmitted
	}

	for i, f := range t.schema.fields {
		if f.Kind != Dynamic {
			continue
		}
		if n := row.values[i].Len(); n > t.maxima[i] {
			t.maxima[i] = n
		}
	}

	row.submitted = true
	t.rows = append(t.rows, row)
	return nil
}

// ObservedMax returns the largest sequence length submitted so far for a
// Dynamic field. Static fields report 1.
func (t *Table) ObservedMax(name string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.schema.index(name)
	if !ok {
		return 0, &UnknownFieldError{Name: name}
	}
	if t.schema.fields[idx].Kind == Static {
		return 1, nil
	}
	return t.maxima[idx], nil
}

// Len returns the number of submitted rows.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Columns returns the width every rendered line currently has: one column
// per Static field plus the observed maximum of each Dynamic field.
func (t *Table) Columns() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.columns()
}

func (t *Table) columns() int {
	n := 0
	for i, f := range t.schema.fields {
		if f.Kind == Static {
			n++
		} else {
			n += t.maxima[i]
		}
	}
	return n
}

// Header returns the expanded header cells.
func (t *Table) Header() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.header()
}

func (t *Table) header() []string {
	out := make([]string, 0, t.columns())
	for i, f := range t.schema.fields {
		if f.Kind == Static {
			out = append(out, f.Name)
			continue
		}
		for k := 1; k <= t.maxima[i]; k++ {
			out = append(out, f.Name+strconv.Itoa(k))
		}
	}
	return out
}

// Records returns the header followed by every submitted row as cell
// slices, each padded to the current width.
func (t *Table) Records() [][]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	width := t.columns()
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.header())
	for _, row := range t.rows {
		out = append(out, row.cells(make([]string, 0, width), t.maxima))
	}
	return out
}

// Render returns the header line followed by one line per submitted row,
// joined with "\n" and no trailing newline. It does not change the table
// and returns the same text until another row is submitted.
func (t *Table) Render() string {
	var b strings.Builder
	for i, rec := range t.Records() {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.Join(rec, Delimiter))
	}
	return b.String()
}

// WriteTo writes the rendered text to w.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, t.Render())
	return int64(n), err
}
