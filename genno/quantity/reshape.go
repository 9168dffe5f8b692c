package quantity

import (
	"github.com/batchatco/go-thrower"

	"github.com/LauWien/genno/internal"
)

// ExpandDims replicates every row once per combination of the new
// dimensions' labels, prepending the new dimensions in declared order.
// Arity grows by len(dims); values and attrs are carried unchanged.
func (q *Quantity) ExpandDims(dims []Coord) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	sets := make([][]string, len(dims))
	for i, c := range dims {
		if q.dimIndex(c.Dim) >= 0 {
			throwf(ErrShape, "expand_dims: dimension %q already exists", c.Dim)
		}
		if len(c.Labels) == 0 {
			throwf(ErrShape, "expand_dims: no labels for dimension %q", c.Dim)
		}
		sets[i] = c.Labels
	}

	w := internal.NewProductWalker(sets)
	keys := make([][]string, 0, w.Size()*len(q.keys))
	values := make([]float64, 0, w.Size()*len(q.values))
	for {
		combo, ok := w.Next()
		if !ok {
			break
		}
		for i, k := range q.keys {
			key := make([]string, 0, len(combo)+len(k))
			key = append(key, combo...)
			key = append(key, k...)
			keys = append(keys, key)
			values = append(values, q.values[i])
		}
	}

	newDims := make([]string, 0, len(dims)+len(q.dims))
	for _, c := range dims {
		newDims = append(newDims, c.Dim)
	}
	newDims = append(newDims, q.dims...)
	return newQuantity(q.name, newDims, keys, values, q.attrs.Copy()), nil
}

// Squeeze removes dimensions whose level holds exactly one distinct
// label. With dim empty every such dimension is removed; naming a
// dimension with more than one label is an error, as is naming an absent
// dimension.
func (q *Quantity) Squeeze(dim string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	if dim != "" && q.dimIndex(dim) < 0 {
		throwf(ErrDimNotFound, "squeeze: %q not in dimensions %v", dim, q.dims)
	}

	rm := make([]bool, len(q.dims))
	for di, d := range q.dims {
		if dim != "" && d != dim {
			continue
		}
		if n := len(q.levelAt(di)); n > 1 {
			if dim == "" {
				continue
			}
			throwf(ErrShape,
				"cannot select a dimension to squeeze out which has length greater than one: %q has %d labels",
				dim, n)
		}
		rm[di] = true
	}
	return q.removeDims(rm), nil
}

// Transpose reorders key positions per an explicit permutation of the
// current dimensions.
func (q *Quantity) Transpose(dims ...string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	if len(dims) != len(q.dims) {
		throwf(ErrShape, "transpose: %d dimensions given, quantity has %d", len(dims), len(q.dims))
	}
	perm := make([]int, len(dims))
	seen := make([]bool, len(dims))
	for i, d := range dims {
		di := q.dimIndex(d)
		if di < 0 {
			throwf(ErrDimNotFound, "transpose: %q not in dimensions %v", d, q.dims)
		}
		if seen[di] {
			throwf(ErrShape, "transpose: dimension %q repeated", d)
		}
		seen[di] = true
		perm[i] = di
	}

	keys := make([][]string, len(q.keys))
	for n, k := range q.keys {
		key := make([]string, len(k))
		for i, di := range perm {
			key[i] = k[di]
		}
		keys[n] = key
	}
	return newQuantity(q.name, append([]string(nil), dims...), keys,
		append([]float64(nil), q.values...), q.attrs.Copy()), nil
}

// Drop removes the named dimensions from every key without aggregating;
// it is intended for dimensions already reduced to one label, where
// removal cannot collide keys.
func (q *Quantity) Drop(dims ...string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	rm := make([]bool, len(q.dims))
	for _, d := range dims {
		di := q.dimIndex(d)
		if di < 0 {
			throwf(ErrDimNotFound, "drop: %q not in dimensions %v", d, q.dims)
		}
		rm[di] = true
	}
	return q.removeDims(rm), nil
}

func (q *Quantity) removeDims(rm []bool) *Quantity {
	dims := make([]string, 0, len(q.dims))
	for di, d := range q.dims {
		if !rm[di] {
			dims = append(dims, d)
		}
	}
	keys := make([][]string, len(q.keys))
	for i, k := range q.keys {
		keys[i] = pruneKey(k, rm)
	}
	return newQuantity(q.name, dims, keys,
		append([]float64(nil), q.values...), q.attrs.Copy())
}

// AssignCoords replaces the labels of one dimension positionally: the
// i-th label in first-appearance order becomes labels[i]. The number of
// labels must match the level's length.
func (q *Quantity) AssignCoords(dim string, labels []string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	di := q.dimIndex(dim)
	if di < 0 {
		throwf(ErrDimNotFound, "assign_coords: %q not in dimensions %v", dim, q.dims)
	}
	level := q.levelAt(di)
	if len(level) != len(labels) {
		throwf(ErrShape,
			"conflicting sizes for dimension %q: length %d on <this-array> and length %d on %q",
			dim, len(level), len(labels), dim)
	}
	repl := make(map[string]string, len(level))
	for i, old := range level {
		repl[old] = labels[i]
	}

	keys := make([][]string, len(q.keys))
	for i, k := range q.keys {
		key := append([]string(nil), k...)
		key[di] = repl[key[di]]
		keys[i] = key
	}
	return newQuantity(q.name, q.Dims(), keys,
		append([]float64(nil), q.values...), q.attrs.Copy()), nil
}
