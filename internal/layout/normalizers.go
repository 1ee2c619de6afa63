package layout

import (
	"fmt"
	"strings"
)

// Trim removes surrounding whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// Lower trims and lowercases. Moodle stores usernames in lowercase and
// rejects uploads that do not match.
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Upper trims and uppercases.
func Upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// namedNormalizers are the normalizers a layout file can refer to by name.
var namedNormalizers = map[string]NormalizeFunc{
	"trim":  Trim,
	"lower": Lower,
	"upper": Upper,
}

// NormalizerByName returns a built-in normalizer.
func NormalizerByName(name string) (NormalizeFunc, error) {
	fn, ok := namedNormalizers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown normalizer %q (want trim, lower or upper)", name)
	}
	return fn, nil
}
