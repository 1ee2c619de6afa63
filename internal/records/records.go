// Package records turns input data into rows of an export table. Records
// come from YAML or JSON files, from HTTP request bodies, or from a
// PostgreSQL query.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/brainysmurf/PowerSchoolIntegrator/internal/export"
)

// ErrInvalidRecords wraps every failure to decode an input document.
var ErrInvalidRecords = errors.New("invalid records")

// Record maps a field name, declared ("course_") or stripped ("course"),
// to its value.
type Record map[string]export.Value

// Format names an input encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat accepts "yaml", "yml" or "json".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (want yaml or json)", ErrInvalidRecords, s)
	}
}

// LoadFile reads records from path, choosing the format from the file
// extension.
func LoadFile(path string) ([]Record, error) {
	format, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	return Decode(f, format)
}

// Decode reads a document holding a list of mappings. Scalars become
// export.Scalar, lists become export.Sequence, and null values are left
// out of the record.
func Decode(r io.Reader, format Format) ([]Record, error) {
	data, err := io.ReadAll(SkipBOM(r))
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	var raw []map[string]interface{}
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	case FormatJSON:
		err = decodeJSON(bytes.NewReader(data), &raw)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrInvalidRecords, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrInvalidRecords, format, err)
	}

	out := make([]Record, 0, len(raw))
	for i, m := range raw {
		rec, err := FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// decodeJSON decodes a single JSON value into v. Numbers are kept as
// json.Number so identifiers such as 12345678 keep their digits.
func decodeJSON(r io.Reader, v interface{}) error {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after top-level value")
	}
	return nil
}

// FromMap converts a generic decoded mapping into a Record.
func FromMap(m map[string]interface{}) (Record, error) {
	rec := make(Record, len(m))
	for name, v := range m {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q: %w", ErrInvalidRecords, name, err)
		}
		if val != nil {
			rec[name] = val
		}
	}
	return rec, nil
}

func toValue(v interface{}) (export.Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		seq := make(export.Sequence, 0, len(val))
		for _, item := range val {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, s)
		}
		return seq, nil
	default:
		s, err := scalarString(val)
		if err != nil {
			return nil, err
		}
		return export.Scalar(s), nil
	}
}

func scalarString(v interface{}) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case nil:
		return "", nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(val), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
}

// Apply sets every field of rec on row, visiting fields in sorted order so
// errors are reported deterministically. normalize, if non-nil, rewrites
// each value (every entry of a sequence) before it is stored.
func Apply(row *export.Row, rec Record, normalize func(field, value string) string) error {
	names := make([]string, 0, len(rec))
	for name := range rec {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := rec[name]
		if normalize != nil {
			v = normalizeValue(name, v, normalize)
		}
		if err := row.Set(name, v); err != nil {
			return err
		}
	}
	return nil
}

func normalizeValue(field string, v export.Value, normalize func(field, value string) string) export.Value {
	switch val := v.(type) {
	case export.Scalar:
		return export.Scalar(normalize(field, string(val)))
	case export.Sequence:
		out := make(export.Sequence, len(val))
		for i, s := range val {
			out[i] = normalize(field, s)
		}
		return out
	default:
		return v
	}
}
