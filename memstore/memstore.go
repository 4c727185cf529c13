// Package memstore is the concrete stand-in for the in-memory dictionary
// the persistence core treats as an opaque external collaborator: lookup,
// insert, and delete over key -> structured value, nothing more. Cache
// eviction policy is explicitly out of scope here and belongs to whatever
// layer owns the real dictionary.
package memstore

import "github.com/freezerdb/nds/codec"

// Store is the mapping the core reads and writes through. Production
// deployments plug in whatever dictionary backs live client traffic; this
// package only needs to supply a workable implementation for tests and the
// reference CLI.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(key []byte) (codec.Value, bool)
	// Set inserts or overwrites the value for key.
	Set(key []byte, val codec.Value)
	// Delete removes key, reporting whether it was present.
	Delete(key []byte) bool
	// Len reports the number of entries currently resident.
	Len() int
}

// Map is a minimal, non-evicting Store backed by a Go map. It exists to
// exercise the core against something concrete; it makes no eviction
// decisions, matching the spec's requirement that this layer not decide
// what to keep in memory.
type Map struct {
	entries map[string]codec.Value
}

// NewMap creates an empty Map.
func NewMap() *Map {
	return &Map{entries: make(map[string]codec.Value)}
}

func (m *Map) Get(key []byte) (codec.Value, bool) {
	v, ok := m.entries[string(key)]
	return v, ok
}

func (m *Map) Set(key []byte, val codec.Value) {
	m.entries[string(key)] = val
}

func (m *Map) Delete(key []byte) bool {
	_, ok := m.entries[string(key)]
	delete(m.entries, string(key))
	return ok
}

func (m *Map) Len() int {
	return len(m.entries)
}
