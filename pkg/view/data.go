package view

import "strings"

// Data is a case-insensitive view-data dictionary. Lookups fall through to the
// parent chain, writes land on the owning node only, and the last write for a
// key wins regardless of spelling. A nil *Data behaves like an empty
// dictionary for reads.
type Data struct {
	parent  *Data
	entries map[string]dataEntry
}

type dataEntry struct {
	key   string
	value any
}

// NewData builds a root dictionary seeded from values. Keys are trimmed and
// blank keys are dropped.
func NewData(values map[string]any) *Data {
	d := &Data{}
	for key, value := range values {
		d.Set(key, value)
	}
	return d
}

// Child derives a dictionary that reads through to d and applies overrides on
// its own node, leaving d untouched.
func (d *Data) Child(overrides map[string]any) *Data {
	child := &Data{parent: d}
	for key, value := range overrides {
		child.Set(key, value)
	}
	return child
}

// Set stores value under key. The original spelling of key is preserved for
// Flatten; matching is case-insensitive.
func (d *Data) Set(key string, value any) {
	key = strings.TrimSpace(key)
	if d == nil || key == "" {
		return
	}
	if d.entries == nil {
		d.entries = make(map[string]dataEntry)
	}
	d.entries[strings.ToLower(key)] = dataEntry{key: key, value: value}
}

// Get returns the value stored under key on this node or the nearest ancestor.
func (d *Data) Get(key string) (any, bool) {
	folded := strings.ToLower(strings.TrimSpace(key))
	for node := d; node != nil; node = node.parent {
		if entry, ok := node.entries[folded]; ok {
			return entry.value, true
		}
	}
	return nil, false
}

// Has reports whether key resolves anywhere along the chain.
func (d *Data) Has(key string) bool {
	_, ok := d.Get(key)
	return ok
}

// Len counts the distinct keys visible from d.
func (d *Data) Len() int {
	seen := make(map[string]struct{})
	for node := d; node != nil; node = node.parent {
		for folded := range node.entries {
			seen[folded] = struct{}{}
		}
	}
	return len(seen)
}

// Flatten materialises the effective dictionary visible from d. The spelling
// of the closest write wins for each key.
func (d *Data) Flatten() map[string]any {
	out := make(map[string]any)
	seen := make(map[string]struct{})
	for node := d; node != nil; node = node.parent {
		for folded, entry := range node.entries {
			if _, done := seen[folded]; done {
				continue
			}
			seen[folded] = struct{}{}
			out[entry.key] = entry.value
		}
	}
	return out
}
