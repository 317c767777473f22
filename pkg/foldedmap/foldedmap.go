// Package foldedmap implements a mapping from case-folded keys to values.
//
// The daemon has several namespaces that are case-insensitive by spec
// (usernames, section names, release names, mount virtual roots). Rather
// than sprinkling strings.ToUpper calls through business logic, callers
// fold once at the boundary by using Map instead of a plain map[string]V.
package foldedmap

import "strings"

// Map is a mapping from case-folded string keys to values of type V.
// The zero value is not usable; construct with New.
type Map[V any] struct {
	entries map[string]entry[V]
}

type entry[V any] struct {
	originalKey string
	value       V
}

// New returns an empty Map.
func New[V any]() *Map[V] {
	return &Map[V]{entries: make(map[string]entry[V])}
}

func fold(key string) string {
	return strings.ToUpper(key)
}

// Set stores value under key, case-insensitively. The original casing of
// key (on first insertion) is preserved and returned by Keys.
func (m *Map[V]) Set(key string, value V) {
	f := fold(key)
	if e, ok := m.entries[f]; ok {
		key = e.originalKey
	}
	m.entries[f] = entry[V]{originalKey: key, value: value}
}

// Get retrieves the value stored under key, case-insensitively.
func (m *Map[V]) Get(key string) (V, bool) {
	e, ok := m.entries[fold(key)]
	return e.value, ok
}

// Delete removes key, case-insensitively. No-op if absent.
func (m *Map[V]) Delete(key string) {
	delete(m.entries, fold(key))
}

// Has reports whether key is present, case-insensitively.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.entries[fold(key)]
	return ok
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	return len(m.entries)
}

// Keys returns the originally-inserted casing of every key, in no
// particular order.
func (m *Map[V]) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		keys = append(keys, e.originalKey)
	}
	return keys
}

// Range calls fn for every entry, in no particular order. Range stops
// early if fn returns false.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, e := range m.entries {
		if !fn(e.originalKey, e.value) {
			return
		}
	}
}
