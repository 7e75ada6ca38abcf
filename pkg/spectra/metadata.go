package spectra

// Metadata is a string map that remembers insertion order. The zero value is
// ready to use.
type Metadata struct {
	keys   []string
	values map[string]string
}

// Set stores value under key. Re-setting a key keeps its original position.
func (m *Metadata) Set(key, value string) {
	if m.values == nil {
		m.values = make(map[string]string)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Metadata) Get(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *Metadata) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each calls fn for every entry in insertion order.
func (m *Metadata) Each(fn func(key, value string)) {
	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}
