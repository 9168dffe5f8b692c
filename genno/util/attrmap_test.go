package util

import "testing"

func TestAttrMapOrder(t *testing.T) {
	m := NewAttrMap()
	m.Set("b", 1)
	m.Set("a", 2)
	m.Set("b", 3)
	keys := m.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Error("wrong key order", keys)
		return
	}
	v, has := m.Get("b")
	if !has || v.(int) != 3 {
		t.Error("Set did not replace value")
	}
}

func TestAttrMapCopy(t *testing.T) {
	m := NewAttrMap()
	m.Set(UnitKey, "kg")
	c := m.Copy()
	c.Set(UnitKey, "t")
	c.Set("extra", true)

	v, _ := m.Get(UnitKey)
	if v.(string) != "kg" {
		t.Error("copy aliases the original")
		return
	}
	if m.Len() != 1 || c.Len() != 2 {
		t.Error("wrong lengths", m.Len(), c.Len())
	}
}

func TestAttrMapDel(t *testing.T) {
	m := NewAttrMap()
	m.Set("a", 1)
	m.Set("b", 2)
	m.Del("a")
	if m.Len() != 1 {
		t.Error("Del failed")
		return
	}
	if _, has := m.Get("a"); has {
		t.Error("deleted key still present")
		return
	}
	m.Del("missing")
}

func TestAttrMapEqual(t *testing.T) {
	a := NewAttrMap()
	a.Set("x", 1)
	a.Set("y", "z")
	b := NewAttrMap()
	b.Set("y", "z")
	b.Set("x", 1)
	if !a.Equal(b) {
		t.Error("order should not affect equality")
		return
	}
	b.Set("x", 2)
	if a.Equal(b) {
		t.Error("different values compare equal")
	}
}
