package export

import "fmt"

// Value is what a Row stores for a field: a Scalar for Static fields or a
// Sequence for Dynamic ones.
type Value interface {
	isValue()
	Len() int
}

// Scalar is a single cell value.
type Scalar string

// Sequence is the ordered list of entries for a repeated group.
type Sequence []string

func (Scalar) isValue()   {}
func (Sequence) isValue() {}

// Len returns 1; a scalar always fills exactly one cell.
func (Scalar) Len() int { return 1 }

// Len returns the number of entries.
func (s Sequence) Len() int { return len(s) }

// Row holds one record's values keyed by field. Rows are created by
// [Table.NewRow] and are not safe for concurrent use.
type Row struct {
	owner  *Table
	schema *HeaderSchema
	values []Value // indexed like schema.fields

	submitted bool
}

func newRow(owner *Table, schema *HeaderSchema) *Row {
	values := make([]Value, schema.Len())
	for i, f := range schema.fields {
		if f.Kind == Dynamic {
			values[i] = Sequence{}
		} else {
			values[i] = Scalar("")
		}
	}
	return &Row{owner: owner, schema: schema, values: values}
}

// Set stores v for the named field. Static fields take a Scalar and are
// replaced on every call. Dynamic fields take a Sequence, possibly empty,
// which is appended to whatever the field already holds.
//
// On error the row is left unchanged.
func (r *Row) Set(name string, v Value) error {
	if r.submitted {
		return ErrRowSubmitted
	}

	idx, ok := r.schema.index(name)
	if !ok {
		return &UnknownFieldError{Name: name}
	}
	field := r.schema.fields[idx]

	switch val := v.(type) {
	case Scalar:
		if field.Kind != Static {
			return &KindMismatchError{Field: field.Declared, Kind: field.Kind}
		}
		r.values[idx] = val

	case Sequence:
		if field.Kind != Dynamic {
			return &KindMismatchError{Field: field.Declared, Kind: field.Kind}
		}
		cur := r.values[idx].(Sequence)
		next := make(Sequence, 0, len(cur)+len(val))
		next = append(next, cur...)
		r.values[idx] = append(next, val...)

	default:
		return fmt.Errorf("field %q: unsupported value %T", field.Declared, v)
	}

	return nil
}

// Get returns the stored value for the named field. Sequences are copied.
func (r *Row) Get(name string) (Value, error) {
	idx, ok := r.schema.index(name)
	if !ok {
		return nil, &UnknownFieldError{Name: name}
	}
	if seq, ok := r.values[idx].(Sequence); ok {
		out := make(Sequence, len(seq))
		copy(out, seq)
		return out, nil
	}
	return r.values[idx], nil
}

// Submitted reports whether the row has been handed to its Table.
func (r *Row) Submitted() bool {
	return r.submitted
}

// cells appends the row's output cells to dst, padding each Dynamic field
// on the left up to its observed maximum.
func (r *Row) cells(dst []string, maxima []int) []string {
	for i, f := range r.schema.fields {
		switch f.Kind {
		case Static:
			dst = append(dst, string(r.values[i].(Scalar)))
		case Dynamic:
			seq := r.values[i].(Sequence)
			for pad := maxima[i] - len(seq); pad > 0; pad-- {
				dst = append(dst, "")
			}
			dst = append(dst, seq...)
		}
	}
	return dst
}
