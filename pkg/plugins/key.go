package plugins

// Key is a typed handle into an extras map, so reads and writes of one key
// agree on the value type.
type Key[T any] struct {
	name string
}

// NewKey returns a key stored under name.
func NewKey[T any](name string) Key[T] {
	return Key[T]{name: name}
}

func (k Key[T]) Name() string { return k.name }

// GetExtra reads k from h. The second result is false when the key is
// missing or holds a value of another type.
func GetExtra[T any](h ExtrasAware, k Key[T]) (T, bool) {
	v, ok := h.GetExtras()[k.name].(T)
	return v, ok
}

// SetExtra stores v under k.
func SetExtra[T any](h ExtrasAware, k Key[T], v T) {
	h.GetExtras()[k.name] = v
}

// DeleteExtra removes k.
func DeleteExtra[T any](h ExtrasAware, k Key[T]) {
	delete(h.GetExtras(), k.name)
}
