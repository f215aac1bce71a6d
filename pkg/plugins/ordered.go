package plugins

// orderedMap is a string-keyed map that iterates in first-insertion order.
// Overwriting a key keeps its original position.
type orderedMap[V any] struct {
	keys []string
	m    map[string]V
}

func newOrderedMap[V any]() *orderedMap[V] {
	return &orderedMap[V]{m: make(map[string]V)}
}

func (o *orderedMap[V]) Get(key string) (V, bool) {
	v, ok := o.m[key]
	return v, ok
}

// Set stores v under key and reports whether an existing value was replaced.
func (o *orderedMap[V]) Set(key string, v V) bool {
	_, exists := o.m[key]
	if !exists {
		o.keys = append(o.keys, key)
	}
	o.m[key] = v
	return exists
}

func (o *orderedMap[V]) Len() int {
	return len(o.keys)
}

func (o *orderedMap[V]) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *orderedMap[V]) Values() []V {
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.m[k])
	}
	return out
}
