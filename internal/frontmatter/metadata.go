package frontmatter

import (
	"github.com/starford/noteprops/internal/value"
)

// Metadata is a frontmatter mapping that remembers the order fields were
// declared in. Values follow the JSON-like model of package value; nested
// mappings are *value.Object and keep their order too.
// The zero value is not usable; call NewMetadata.
type Metadata struct {
	fields *value.Object
}

// NewMetadata returns an empty mapping.
func NewMetadata() *Metadata {
	return &Metadata{fields: value.NewObject()}
}

func fromObject(o *value.Object) *Metadata {
	return &Metadata{fields: o}
}

// Get returns the value stored under key.
func (m *Metadata) Get(key string) (any, bool) {
	if m == nil || m.fields == nil {
		return nil, false
	}
	return m.fields.Get(key)
}

// Has reports whether key is present, even with a null value.
func (m *Metadata) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores v under key. New keys are appended; existing keys keep their
// position.
func (m *Metadata) Set(key string, v any) {
	m.fields.Set(key, v)
}

// Delete removes key.
func (m *Metadata) Delete(key string) {
	m.fields.Delete(key)
}

func (m *Metadata) Len() int {
	if m == nil || m.fields == nil {
		return 0
	}
	return m.fields.Len()
}

// Keys returns field names in declaration order.
func (m *Metadata) Keys() []string {
	keys := make([]string, 0, m.Len())
	m.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Range calls fn for each field in order until fn returns false.
func (m *Metadata) Range(fn func(key string, v any) bool) {
	if m == nil || m.fields == nil {
		return
	}
	for p := m.fields.Oldest(); p != nil; p = p.Next() {
		if !fn(p.Key, p.Value) {
			return
		}
	}
}

// Clone returns a copy of the mapping. Values are shared, not deep-copied.
func (m *Metadata) Clone() *Metadata {
	out := NewMetadata()
	m.Range(func(k string, v any) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// MarshalJSON writes the fields as a JSON object in declaration order.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	if m == nil || m.fields == nil {
		return []byte("{}"), nil
	}
	return m.fields.MarshalJSON()
}

// UnmarshalJSON reads a JSON object, keeping its top-level key order.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	m.fields = value.NewObject()
	return m.fields.UnmarshalJSON(data)
}
