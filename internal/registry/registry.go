// Package registry provides a type-safe way for session components to share
// and discover optional capabilities at runtime. Capability presence is
// re-checked on every lookup, never cached by consumers, since add-ons can
// be enabled or disabled mid-session.
package registry

import (
	"sync"
)

// Key is a type-safe, generic key for registering and retrieving services.
// The string value should be a unique identifier, e.g., "combat.external".
type Key[T any] string

// Registry maps keys to live service instances. It uses a sync.Map for
// concurrent-safe access.
type Registry struct {
	services sync.Map
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{}
}

// Set registers a service instance against a type-safe key.
func Set[T any](r *Registry, key Key[T], value T) {
	r.services.Store(string(key), value)
}

// Unset removes a service, e.g. when an add-on is disabled mid-session.
func Unset[T any](r *Registry, key Key[T]) {
	r.services.Delete(string(key))
}

// Get retrieves a service from the registry by its key.
func Get[T any](r *Registry, key Key[T]) (T, bool) {
	val, ok := r.services.Load(string(key))
	if !ok {
		var zero T
		return zero, false
	}

	result, ok := val.(T)
	if !ok {
		// This should ideally never happen if keys are used correctly,
		// but it's a good safeguard.
		var zero T
		return zero, false
	}

	return result, true
}

// MustGet retrieves a service or panics if not found. This is useful for
// wiring up essential dependencies at startup.
func MustGet[T any](r *Registry, key Key[T]) T {
	val, ok := Get(r, key)
	if !ok {
		panic("registry: required service not found: " + string(key))
	}
	return val
}
