// Package layout holds the named export layouts: the header list an export
// uses plus the normalizers applied to incoming values.
package layout

import (
	"errors"
	"fmt"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/export"
)

// ErrUnknownLayout is returned when a layout key is not registered.
var ErrUnknownLayout = errors.New("unknown layout")

// Info contains display information about a layout.
type Info struct {
	Key   string `json:"key" toml:"key"`     // Unique identifier: "moodle_users"
	Group string `json:"group" toml:"group"` // Target platform: "Moodle"
	Label string `json:"label" toml:"label"` // Display name: "Upload users"
}

// NormalizeFunc rewrites a single incoming value before it is stored.
type NormalizeFunc func(string) string

// Layout contains everything needed to build one kind of export file.
type Layout struct {
	Info Info

	// Headers in output order. Names ending in export.DynamicMarker are
	// repeated groups.
	Headers []string

	// Normalizers keyed by declared header name. Applied to every value of
	// that field, scalar or sequence entry alike.
	Normalizers map[string]NormalizeFunc
}

// NewTable returns an empty export table with the layout's headers
// registered.
func (l Layout) NewTable() (*export.Table, error) {
	t := export.NewTable()
	if err := t.RegisterHeaders(l.Headers); err != nil {
		return nil, fmt.Errorf("layout %s: %w", l.Info.Key, err)
	}
	return t, nil
}

// Normalize applies the field's normalizer, if any. The field may be given
// by its declared or stripped name.
func (l Layout) Normalize(field, value string) string {
	if fn, ok := l.Normalizers[field]; ok {
		return fn(value)
	}
	if fn, ok := l.Normalizers[field+export.DynamicMarker]; ok {
		return fn(value)
	}
	return value
}

// Columns returns the declared header names.
func (l Layout) Columns() []string {
	out := make([]string, len(l.Headers))
	copy(out, l.Headers)
	return out
}
