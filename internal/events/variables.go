package events

import (
	"slices"
	"sync"

	"github.com/moznion/go-optional"
)

// Variables is the per-event key/value store strategies use to keep
// state between invocations. It is safe for concurrent use.
type Variables struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewVariables returns a store seeded with a copy of initial.
func NewVariables(initial map[string]any) *Variables {
	v := &Variables{
		mu:   sync.RWMutex{},
		data: make(map[string]any, len(initial)),
	}

	for key, value := range initial {
		v.data[key] = value
	}

	return v
}

// Set stores value under key, replacing any existing value.
func (v *Variables) Set(key string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.data[key] = value
}

// Get returns the raw value stored under key.
func (v *Variables) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	value, ok := v.data[key]

	return value, ok
}

func (v *Variables) Has(key string) bool {
	_, ok := v.Get(key)

	return ok
}

func (v *Variables) Delete(key string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	delete(v.data, key)
}

// Keys returns the stored keys in sorted order.
func (v *Variables) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()

	keys := make([]string, 0, len(v.data))
	for key := range v.data {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

func (v *Variables) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()

	return len(v.data)
}

// Reset removes every value.
func (v *Variables) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.data = make(map[string]any)
}

// Snapshot returns a shallow copy of the stored values.
func (v *Variables) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make(map[string]any, len(v.data))
	for key, value := range v.data {
		out[key] = value
	}

	return out
}

// GetFloat64 returns the value under key when it is a float64.
func (v *Variables) GetFloat64(key string) (float64, bool) {
	return Value[float64](v, key)
}

// GetInt returns the value under key when it is an int.
func (v *Variables) GetInt(key string) (int, bool) {
	return Value[int](v, key)
}

// GetString returns the value under key when it is a string.
func (v *Variables) GetString(key string) (string, bool) {
	return Value[string](v, key)
}

// GetBool returns the value under key when it is a bool.
func (v *Variables) GetBool(key string) (bool, bool) {
	return Value[bool](v, key)
}

// Value returns the value under key asserted to T. It reports false when
// the key is missing or holds a different type.
func Value[T any](v *Variables, key string) (T, bool) {
	raw, ok := v.Get(key)
	if !ok {
		var zero T

		return zero, false
	}

	value, ok := raw.(T)

	return value, ok
}

// Lookup is Value wrapped in an optional.
func Lookup[T any](v *Variables, key string) optional.Option[T] {
	value, ok := Value[T](v, key)
	if !ok {
		return optional.None[T]()
	}

	return optional.Some(value)
}
