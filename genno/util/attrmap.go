package util

import (
	"reflect"
)

// UnitKey is the reserved attribute name under which a parsed unit is
// stored by convention.
const UnitKey = "_unit"

// AttrMap is an insertion-ordered mapping of attribute names to arbitrary
// values. Quantities carry one AttrMap each; operations shallow-copy it at
// every construction boundary so returned instances never alias attrs.
type AttrMap struct {
	keys   []string
	values map[string]any
}

func NewAttrMap() *AttrMap {
	return &AttrMap{values: map[string]any{}}
}

// Set adds or replaces an attribute. Insertion order is kept; replacing a
// value does not move its key.
func (m *AttrMap) Set(name string, val any) {
	if _, has := m.values[name]; !has {
		m.keys = append(m.keys, name)
	}
	m.values[name] = val
}

func (m *AttrMap) Get(name string) (val any, has bool) {
	if m == nil {
		return nil, false
	}
	val, has = m.values[name]
	return
}

// Del removes an attribute if present.
func (m *AttrMap) Del(name string) {
	if _, has := m.values[name]; !has {
		return
	}
	delete(m.values, name)
	for i, k := range m.keys {
		if k == name {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the attribute names in insertion order.
func (m *AttrMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *AttrMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Copy returns a shallow copy: keys are duplicated, values are shared.
func (m *AttrMap) Copy() *AttrMap {
	out := NewAttrMap()
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// Update sets every attribute of other on m, overwriting existing names.
func (m *AttrMap) Update(other *AttrMap) {
	if other == nil {
		return
	}
	for _, k := range other.keys {
		m.Set(k, other.values[k])
	}
}

// Equal reports whether both maps hold the same attributes, ignoring
// insertion order.
func (m *AttrMap) Equal(other *AttrMap) bool {
	if m.Len() != other.Len() {
		return false
	}
	if m == nil {
		return true
	}
	for _, k := range m.keys {
		ov, has := other.Get(k)
		if !has || !reflect.DeepEqual(m.values[k], ov) {
			return false
		}
	}
	return true
}
