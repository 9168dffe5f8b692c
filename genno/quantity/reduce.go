package quantity

import (
	"math"

	"github.com/batchatco/go-thrower"
)

// Sum collapses the named dimensions by summation, skipping NaN values.
// With no dimensions, or with every current dimension, the result is a
// 0-dimensional quantity and attrs are dropped. Summing over a strict
// subset pivots the named dimensions away and keeps attrs; this asymmetry
// is documented behavior that callers rely on. The name does not survive
// either path.
func (q *Quantity) Sum(dims ...string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	for _, d := range dims {
		if q.dimIndex(d) < 0 {
			throwf(ErrDimNotFound, "%q not found in array dimensions %v", d, q.dims)
		}
	}

	if len(dims) == 0 || len(dims) == len(q.dims) {
		total := 0.0
		for _, v := range q.values {
			if !math.IsNaN(v) {
				total += v
			}
		}
		return NewScalar(total), nil
	}

	over := make([]bool, len(q.dims))
	for _, d := range dims {
		over[q.dimIndex(d)] = true
	}
	keptDims := make([]string, 0, len(q.dims)-len(dims))
	for di, d := range q.dims {
		if !over[di] {
			keptDims = append(keptDims, d)
		}
	}

	// Group rows by the kept part of the key; groups and their row order
	// come out sorted, matching the pivot convention of the fill and
	// shift operations.
	totals := map[string]float64{}
	var groupKeys [][]string
	for i, k := range q.keys {
		kept := pruneKey(k, over)
		j := joinLabels(kept)
		if _, has := totals[j]; !has {
			totals[j] = 0
			groupKeys = append(groupKeys, kept)
		}
		if v := q.values[i]; !math.IsNaN(v) {
			totals[j] += v
		}
	}
	sortKeys(groupKeys)

	values := make([]float64, len(groupKeys))
	for i, k := range groupKeys {
		values[i] = totals[joinLabels(k)]
	}
	return newQuantity("", keptDims, groupKeys, values, q.attrs.Copy()), nil
}
