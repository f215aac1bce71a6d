// Package globalctx keeps named values shared across distant call sites.
//
// A key is created once with an optional default; every later lookup of the
// same key returns the same slot:
//
//	n := globalctx.Global("retries", 5)
//	n.Get()                        // 5, nil
//	globalctx.Global[int]("retries").Set(9)
//	n.Get()                        // 9, nil
//
// Local prefixes keys with a namespace, usually the package that owns them.
package globalctx

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoValue is returned by Get when a key has neither a value nor a default.
var ErrNoValue = errors.New("no value set")

type slot struct {
	mu     sync.RWMutex
	value  any
	set    bool
	def    any
	hasDef bool
}

// Registry maps keys to slots. The zero value is not usable; use NewRegistry.
type Registry struct {
	mu    sync.Mutex
	slots map[string]*slot
}

// Default is the process-wide registry used by Global and Local.
var Default = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{slots: make(map[string]*slot)}
}

// lookup returns the slot for key, creating it with def on first use.
func (r *Registry) lookup(key string, def []any) *slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.slots[key]; ok {
		return s
	}
	s := &slot{}
	if len(def) > 0 {
		s.def, s.hasDef = def[0], true
	}
	r.slots[key] = s
	return s
}

// Keys returns every key created so far.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.slots))
	for k := range r.slots {
		out = append(out, k)
	}
	return out
}

// Reset forgets every key.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.slots = make(map[string]*slot)
	r.mu.Unlock()
}

// Value is a typed handle on a slot.
type Value[T any] struct {
	key  string
	slot *slot
}

// In returns the value for key in r. def only applies when the key is new:
// the first creation of a key decides its default. It panics when the key
// already holds a value or default of a different type.
func In[T any](r *Registry, key string, def ...T) *Value[T] {
	defs := make([]any, len(def))
	for i, d := range def {
		defs[i] = d
	}
	s := r.lookup(key, defs)
	s.mu.RLock()
	mismatch := (s.set && !isT[T](s.value)) || (s.hasDef && !isT[T](s.def))
	s.mu.RUnlock()
	if mismatch {
		var zero T
		panic(fmt.Sprintf("globalctx: key %q reused with type %T", key, zero))
	}
	return &Value[T]{key: key, slot: s}
}

// Global returns the value for key in the Default registry.
func Global[T any](key string, def ...T) *Value[T] {
	return In(Default, key, def...)
}

// Local returns the value for namespace:key in the Default registry.
func Local[T any](namespace, key string, def ...T) *Value[T] {
	return In(Default, namespace+":"+key, def...)
}

func isT[T any](v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(T)
	return ok
}

func (v *Value[T]) Key() string { return v.key }

// Get returns the value, else the default, else ErrNoValue.
func (v *Value[T]) Get() (T, error) {
	v.slot.mu.RLock()
	defer v.slot.mu.RUnlock()
	switch {
	case v.slot.set:
		return as[T](v.slot.value), nil
	case v.slot.hasDef:
		return as[T](v.slot.def), nil
	}
	var zero T
	return zero, fmt.Errorf("%w for key %q", ErrNoValue, v.key)
}

// GetOr returns the value or default, falling back to def.
func (v *Value[T]) GetOr(def T) T {
	if out, err := v.Get(); err == nil {
		return out
	}
	return def
}

func (v *Value[T]) Set(value T) {
	v.slot.mu.Lock()
	v.slot.value, v.slot.set = value, true
	v.slot.mu.Unlock()
}

// IsSet reports whether Set was called, ignoring the default.
func (v *Value[T]) IsSet() bool {
	v.slot.mu.RLock()
	defer v.slot.mu.RUnlock()
	return v.slot.set
}

func as[T any](v any) T {
	out, _ := v.(T)
	return out
}
