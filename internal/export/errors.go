package export

// errors.go defines the failures reported by schema, row and table
// operations. All of them except PersistenceError are programming errors
// and are raised at the call that breaks the contract; previously submitted
// rows are never affected.

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyHeader is returned when a declared header strips to "".
	ErrEmptyHeader = errors.New("empty header name")

	// ErrRowSubmitted is returned when a row is modified or submitted again
	// after it has been handed to a Table.
	ErrRowSubmitted = errors.New("row already submitted")

	// ErrForeignRow is returned when a Table is given a row created by
	// another Table.
	ErrForeignRow = errors.New("row belongs to a different table")
)

// DuplicateHeaderError reports a header registered twice. Names collide
// after the dynamic marker is stripped, so "course" and "course_" clash.
type DuplicateHeaderError struct {
	Name string
}

func (e *DuplicateHeaderError) Error() string {
	return fmt.Sprintf("duplicate header %q", e.Name)
}

// UnknownFieldError reports a field name missing from the schema.
type UnknownFieldError struct {
	Name string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Name)
}

// KindMismatchError reports a scalar given to a Dynamic field or a
// sequence given to a Static field.
type KindMismatchError struct {
	Field string
	Kind  FieldKind
}

func (e *KindMismatchError) Error() string {
	if e.Kind == Dynamic {
		return fmt.Sprintf("dynamic field %q given a scalar, pass a sequence", e.Field)
	}
	return fmt.Sprintf("static field %q given a sequence, pass a scalar", e.Field)
}

// SchemaFrozenError reports a header registration after rows were created.
type SchemaFrozenError struct {
	Rows int // rows created so far
}

func (e *SchemaFrozenError) Error() string {
	return fmt.Sprintf("schema is frozen: %d row(s) already created", e.Rows)
}

// PersistenceError wraps a failure to write the rendered output.
// Unlike the other errors it reflects the environment and may be retried
// after fixing the target path or permissions.
type PersistenceError struct {
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
