package layout

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Layout)
	registryMu sync.RWMutex
)

// Register adds a layout to the registry.
// Panics if a layout with the same key is already registered.
func Register(l Layout) {
	if err := register(l); err != nil {
		panic(err.Error())
	}
}

func register(l Layout) error {
	registryMu.Lock()
	defer registryMu.Unlock()

	if l.Info.Key == "" {
		return fmt.Errorf("layout has no key")
	}
	if _, exists := registry[l.Info.Key]; exists {
		return fmt.Errorf("layout already registered: %s", l.Info.Key)
	}

	// Catch bad header lists at registration instead of at first export
	if _, err := l.NewTable(); err != nil {
		return err
	}

	registry[l.Info.Key] = l
	return nil
}

// Get returns a layout by key.
// Returns false if not found.
func Get(key string) (Layout, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	l, ok := registry[key]
	return l, ok
}

// Lookup is Get with an error suitable for returning to callers.
func Lookup(key string) (Layout, error) {
	l, ok := Get(key)
	if !ok {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnknownLayout, key)
	}
	return l, nil
}

// All returns all registered layouts.
// Sorted by group then by key for consistent ordering.
func All() []Layout {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Layout, 0, len(registry))
	for _, l := range registry {
		result = append(result, l)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Info.Group != result[j].Info.Group {
			return result[i].Info.Group < result[j].Info.Group
		}
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// ByGroup returns all layouts for a specific group.
// Sorted by key for consistent ordering.
func ByGroup(group string) []Layout {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var result []Layout
	for _, l := range registry {
		if l.Info.Group == group {
			result = append(result, l)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Groups returns all unique group names.
// Sorted alphabetically.
func Groups() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	seen := make(map[string]bool)
	for _, l := range registry {
		seen[l.Info.Group] = true
	}

	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}

	sort.Strings(groups)
	return groups
}

// Count returns the number of registered layouts.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered layouts.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Layout)
}
