package gwconfig

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrMissingKey is wrapped by KeyError when a required key is absent.
	ErrMissingKey = errors.New("key not set")
	// ErrRepeatedKey is wrapped by KeyError when a key expected to hold a
	// single value was assigned more than once.
	ErrRepeatedKey = errors.New("key assigned more than once")
)

// KeyError reports a problem with one configuration key.
type KeyError struct {
	Key string
	Err error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("config key %s: %v", e.Key, e.Err)
}

func (e *KeyError) Unwrap() error { return e.Err }

// Value is the right-hand side of one or more assignments to the same key.
type Value struct {
	items []string
}

// IsList reports whether the key was assigned more than once.
func (v Value) IsList() bool { return len(v.items) > 1 }

// Scalar returns the value of a key assigned exactly once. ok is false for
// list values.
func (v Value) Scalar() (string, bool) {
	if len(v.items) != 1 {
		return "", false
	}
	return v.items[0], true
}

// List returns every assigned value in encounter order. A scalar yields a
// one-element list.
func (v Value) List() []string {
	out := make([]string, len(v.items))
	copy(out, v.items)
	return out
}

// Map is a parsed configuration snapshot. It is read-only once parsed.
type Map struct {
	values map[string]Value
}

// FromValues builds a Map from literal key/value pairs. Each key gets a
// scalar value; it exists mainly for tests and tooling.
func FromValues(kv map[string]string) Map {
	m := Map{values: make(map[string]Value, len(kv))}
	for k, v := range kv {
		m.assign(k, v)
	}
	return m
}

func (m *Map) assign(key, value string) {
	existing, ok := m.values[key]
	if !ok {
		m.values[key] = Value{items: []string{value}}
		return
	}
	existing.items = append(existing.items, value)
	m.values[key] = existing
}

// Lookup returns the value for key and whether the key was assigned at all.
func (m Map) Lookup(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// String returns the single value of a required key. A missing key or a key
// assigned more than once yields a *KeyError.
func (m Map) String(key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", &KeyError{Key: key, Err: ErrMissingKey}
	}
	s, ok := v.Scalar()
	if !ok {
		return "", &KeyError{Key: key, Err: ErrRepeatedKey}
	}
	return s, nil
}

// Len returns the number of distinct keys.
func (m Map) Len() int { return len(m.values) }

// Keys returns every assigned key in lexical order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
