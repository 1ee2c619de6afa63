package export

import (
	"fmt"
	"strings"
)

// DynamicMarker is the trailing character that declares a Dynamic field.
const DynamicMarker = "_"

// Delimiter separates columns in the rendered output.
const Delimiter = ","

// FieldKind classifies a declared header.
type FieldKind int

const (
	Static FieldKind = iota
	Dynamic
)

func (k FieldKind) String() string {
	switch k {
	case Static:
		return "static"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Field is one declared header.
type Field struct {
	Name     string    // Stripped name used for output columns: "course"
	Declared string    // Name as registered: "course_"
	Kind     FieldKind // Decided once at registration
}

// HeaderSchema is the ordered list of declared fields shared by a Table
// and every Row it creates.
type HeaderSchema struct {
	fields []Field
	byName map[string]int // stripped and declared names -> index in fields

	rows int // rows created against this schema; non-zero freezes it
}

// NewHeaderSchema returns an empty schema.
func NewHeaderSchema() *HeaderSchema {
	return &HeaderSchema{byName: make(map[string]int)}
}

// ParseField classifies a declared header name.
func ParseField(declared string) Field {
	if name, ok := strings.CutSuffix(declared, DynamicMarker); ok {
		return Field{Name: name, Declared: declared, Kind: Dynamic}
	}
	return Field{Name: declared, Declared: declared, Kind: Static}
}

// Register appends names to the schema in order. The whole batch is
// checked before anything is stored, so a failed call leaves the schema
// unchanged. Once a row has been created from the schema, Register fails
// with SchemaFrozenError.
func (s *HeaderSchema) Register(names []string) error {
	if s.rows > 0 {
		return &SchemaFrozenError{Rows: s.rows}
	}

	parsed := make([]Field, 0, len(names))
	seen := make(map[string]bool, len(names))

	for _, declared := range names {
		f := ParseField(declared)
		if f.Name == "" {
			return fmt.Errorf("%w: %q", ErrEmptyHeader, declared)
		}
		// Both names resolve in Lookup, so neither may shadow an existing
		// field: "x_" and "x__" clash on "x_".
		for _, name := range []string{f.Name, f.Declared} {
			if _, exists := s.byName[name]; exists || seen[name] {
				return &DuplicateHeaderError{Name: declared}
			}
		}
		seen[f.Name] = true
		seen[f.Declared] = true
		parsed = append(parsed, f)
	}

	for _, f := range parsed {
		idx := len(s.fields)
		s.fields = append(s.fields, f)
		s.byName[f.Name] = idx
		s.byName[f.Declared] = idx
	}
	return nil
}

// Frozen reports whether rows have been created from the schema.
func (s *HeaderSchema) Frozen() bool {
	return s.rows > 0
}

// Fields returns the declared fields in output order.
func (s *HeaderSchema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Len returns the number of declared fields.
func (s *HeaderSchema) Len() int {
	return len(s.fields)
}

// Lookup finds a field by its declared name ("course_") or its stripped
// name ("course").
func (s *HeaderSchema) Lookup(name string) (Field, bool) {
	idx, ok := s.byName[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[idx], true
}

func (s *HeaderSchema) index(name string) (int, bool) {
	idx, ok := s.byName[name]
	return idx, ok
}
