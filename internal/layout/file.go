package layout

// file.go loads extra layouts from a TOML file so sites can describe their
// own exports without rebuilding:
//
//	[[layout]]
//	key = "moodle_parents"
//	group = "Moodle"
//	label = "Parent accounts"
//	headers = ["username", "password", "email", "course_"]
//
//	[layout.normalize]
//	username = "lower"

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

type fileLayout struct {
	Key       string            `toml:"key"`
	Group     string            `toml:"group"`
	Label     string            `toml:"label"`
	Headers   []string          `toml:"headers"`
	Normalize map[string]string `toml:"normalize"`
}

type layoutFile struct {
	Layouts []fileLayout `toml:"layout"`
}

// LoadFile decodes the layouts in a TOML file. Unknown keys are rejected
// so typos do not silently drop settings.
func LoadFile(path string) ([]Layout, error) {
	var f layoutFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("decode layouts %s: %w", path, err)
	}
	return fromFile(f, md)
}

// Decode is LoadFile for in-memory TOML.
func Decode(data string) ([]Layout, error) {
	var f layoutFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("decode layouts: %w", err)
	}
	return fromFile(f, md)
}

func fromFile(f layoutFile, md toml.MetaData) ([]Layout, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown layout settings: %s", strings.Join(keys, ", "))
	}

	layouts := make([]Layout, 0, len(f.Layouts))
	for i, fl := range f.Layouts {
		if fl.Key == "" {
			return nil, fmt.Errorf("layout #%d: key is required", i+1)
		}
		if len(fl.Headers) == 0 {
			return nil, fmt.Errorf("layout %s: headers are required", fl.Key)
		}

		l := Layout{
			Info:    Info{Key: fl.Key, Group: fl.Group, Label: fl.Label},
			Headers: fl.Headers,
		}
		if l.Info.Group == "" {
			l.Info.Group = "Custom"
		}
		if l.Info.Label == "" {
			l.Info.Label = fl.Key
		}

		if len(fl.Normalize) > 0 {
			l.Normalizers = make(map[string]NormalizeFunc, len(fl.Normalize))
			fields := make([]string, 0, len(fl.Normalize))
			for field := range fl.Normalize {
				fields = append(fields, field)
			}
			sort.Strings(fields)
			for _, field := range fields {
				fn, err := NormalizerByName(fl.Normalize[field])
				if err != nil {
					return nil, fmt.Errorf("layout %s field %s: %w", fl.Key, field, err)
				}
				l.Normalizers[field] = fn
			}
		}

		layouts = append(layouts, l)
	}
	return layouts, nil
}

// RegisterFile loads a TOML layout file and registers every layout in it.
// Nothing is registered if any layout fails to load or collides with an
// existing key.
func RegisterFile(path string) ([]Layout, error) {
	layouts, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(layouts))
	for _, l := range layouts {
		if _, exists := Get(l.Info.Key); exists || seen[l.Info.Key] {
			return nil, fmt.Errorf("layout already registered: %s", l.Info.Key)
		}
		seen[l.Info.Key] = true
		if _, err := l.NewTable(); err != nil {
			return nil, err
		}
	}
	for _, l := range layouts {
		if err := register(l); err != nil {
			return nil, err
		}
	}
	return layouts, nil
}
