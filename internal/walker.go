package internal

// ProductWalker iterates the cross product of per-dimension label sets in
// row-major order: the last set varies fastest. A walker over zero sets
// yields exactly one empty key, which is how 0-dimensional (scalar) data
// is flattened.
type ProductWalker struct {
	sets [][]string
	idx  []int
	done bool
}

func NewProductWalker(sets [][]string) *ProductWalker {
	w := &ProductWalker{
		sets: sets,
		idx:  make([]int, len(sets)),
	}
	for _, s := range sets {
		if len(s) == 0 {
			w.done = true
			break
		}
	}
	return w
}

// Size returns the total number of keys the walker yields.
func (w *ProductWalker) Size() int {
	n := 1
	for _, s := range w.sets {
		n *= len(s)
	}
	return n
}

// Next returns the next composite key, or nil and false when exhausted.
// The returned slice is freshly allocated and owned by the caller.
func (w *ProductWalker) Next() ([]string, bool) {
	if w.done {
		return nil, false
	}
	key := make([]string, len(w.sets))
	for i, s := range w.sets {
		key[i] = s[w.idx[i]]
	}
	// Advance, last position fastest.
	for i := len(w.sets) - 1; i >= 0; i-- {
		w.idx[i]++
		if w.idx[i] < len(w.sets[i]) {
			return key, true
		}
		w.idx[i] = 0
	}
	w.done = true
	return key, true
}
