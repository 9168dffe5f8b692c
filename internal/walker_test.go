package internal

import "testing"

func TestWalkerRowMajor(t *testing.T) {
	w := NewProductWalker([][]string{{"a", "b"}, {"1", "2", "3"}})
	if w.Size() != 6 {
		t.Error("wrong size", w.Size())
		return
	}
	want := [][2]string{
		{"a", "1"}, {"a", "2"}, {"a", "3"},
		{"b", "1"}, {"b", "2"}, {"b", "3"},
	}
	for i := range want {
		key, ok := w.Next()
		if !ok {
			t.Error("walker ended early at", i)
			return
		}
		if key[0] != want[i][0] || key[1] != want[i][1] {
			t.Error("wrong key at", i, key)
			return
		}
	}
	if _, ok := w.Next(); ok {
		t.Error("walker did not end")
	}
}

func TestWalkerScalar(t *testing.T) {
	w := NewProductWalker(nil)
	if w.Size() != 1 {
		t.Error("scalar walker should have size 1")
		return
	}
	key, ok := w.Next()
	if !ok || len(key) != 0 {
		t.Error("scalar walker should yield one empty key")
		return
	}
	if _, ok := w.Next(); ok {
		t.Error("scalar walker should yield exactly one key")
	}
}

func TestWalkerEmptySet(t *testing.T) {
	w := NewProductWalker([][]string{{"a"}, {}})
	if _, ok := w.Next(); ok {
		t.Error("walker over an empty set should yield nothing")
	}
}
