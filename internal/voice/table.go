// Package voice holds the preset catalog loaded from the synthesis engine at
// startup. The table is immutable after construction and is read concurrently
// by every connection without locking.
package voice

import (
	"fmt"
	"strings"
)

// Preset identifies one synthesis voice.
type Preset struct {
	Key         string
	DisplayName string
}

// Table maps voice keys to presets. Catalog declaration order is preserved:
// it decides the default voice and breaks ties between substring matches.
type Table struct {
	presets []Preset
	byKey   map[string]Preset
}

// NewTable builds a table from the engine catalog. Keys must be unique and
// the catalog must not be empty.
func NewTable(presets []Preset) (*Table, error) {
	if len(presets) == 0 {
		return nil, fmt.Errorf("voice catalog is empty")
	}
	byKey := make(map[string]Preset, len(presets))
	for _, p := range presets {
		if p.Key == "" {
			return nil, fmt.Errorf("voice catalog contains an empty key")
		}
		if _, dup := byKey[p.Key]; dup {
			return nil, fmt.Errorf("duplicate voice key %q", p.Key)
		}
		byKey[p.Key] = p
	}
	return &Table{presets: append([]Preset(nil), presets...), byKey: byKey}, nil
}

// Resolve maps a user-supplied identifier to a voice key. An empty identifier
// selects the default (first) voice. Exact key matches win; otherwise the
// first preset whose key contains the identifier case-insensitively is
// chosen, in catalog order.
func (t *Table) Resolve(id string) (string, bool) {
	if id == "" {
		return t.presets[0].Key, true
	}
	if _, ok := t.byKey[id]; ok {
		return id, true
	}
	lower := strings.ToLower(id)
	for _, p := range t.presets {
		if strings.Contains(strings.ToLower(p.Key), lower) {
			return p.Key, true
		}
	}
	return "", false
}

// Keys returns all voice keys in catalog order.
func (t *Table) Keys() []string {
	keys := make([]string, len(t.presets))
	for i, p := range t.presets {
		keys[i] = p.Key
	}
	return keys
}

// Lookup returns the preset for a resolved key.
func (t *Table) Lookup(key string) (Preset, bool) {
	p, ok := t.byKey[key]
	return p, ok
}

// Len reports the catalog size.
func (t *Table) Len() int { return len(t.presets) }
