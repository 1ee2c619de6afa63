package export

import (
	"strings"

	"github.com/natefinch/atomic"
)

// Save renders the table and, when path is non-empty, overwrites the file
// at path with the result. The rendered text is returned in every case,
// including when the write fails.
//
// The file is written to a temporary sibling and renamed into place, so
// the target either holds the complete new text or is left as it was.
// Failures are reported as *PersistenceError.
func (t *Table) Save(path string) (string, error) {
	text := t.Render()
	if path == "" {
		return text, nil
	}

	if err := atomic.WriteFile(path, strings.NewReader(text)); err != nil {
		return text, &PersistenceError{Path: path, Err: err}
	}
	return text, nil
}
