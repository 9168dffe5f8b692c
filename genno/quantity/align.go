package quantity

import (
	"github.com/batchatco/go-thrower"
)

// AlignLevels returns a copy of q with dimensions reordered to line up
// with other for elementwise arithmetic. Dimensions common to both come
// first, in other's order, followed by q's remaining dimensions. When the
// two share no dimensions at all, other's dimensions are cross-joined
// into q first: with no alignment key every label combination has to be
// materialized explicitly. No arithmetic happens here.
func (q *Quantity) AlignLevels(other *Quantity) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	var common []string
	var missing []Coord
	for _, d := range other.dims {
		if q.dimIndex(d) >= 0 {
			common = append(common, d)
		} else {
			missing = append(missing, Coord{Dim: d, Labels: other.levelAt(other.dimIndex(d))})
		}
	}

	result := q
	var order []string
	if len(common) == 0 {
		if len(missing) > 0 {
			result, err = q.ExpandDims(missing)
			if err != nil {
				return nil, err
			}
		}
		// The cross join adds exactly the named dimensions, so arity is
		// already len(other.dims) plus q's own and there is no synthetic
		// key position to strip.
		order = append(order, other.dims...)
	} else {
		order = append(order, common...)
	}
	for _, d := range q.dims {
		if other.dimIndex(d) < 0 {
			order = append(order, d)
		}
	}

	if len(order) < 2 {
		if result == q {
			return q.copyStructure(), nil
		}
		return result, nil
	}
	return result.Transpose(order...)
}

// Mul multiplies two quantities elementwise. Rows pair when their labels
// agree on every shared dimension; dimensions exclusive to one operand
// cross-join. Pairs missing from either side are absent from the result.
// The result carries no attrs; callers combine units themselves.
func (q *Quantity) Mul(other *Quantity) (*Quantity, error) {
	return q.join(other, func(a, b float64) float64 { return a * b })
}

// Div divides q by other elementwise, with Mul's alignment rules.
func (q *Quantity) Div(other *Quantity) (*Quantity, error) {
	return q.join(other, func(a, b float64) float64 { return a / b })
}

// join is the inner-join broadcast core shared by Mul and Div.
func (q *Quantity) join(other *Quantity, op func(a, b float64) float64) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	// Positions of the shared dimensions on each side, in q's dim order.
	var qCommon, oCommon []int
	for qi, d := range q.dims {
		if oi := other.dimIndex(d); oi >= 0 {
			qCommon = append(qCommon, qi)
			oCommon = append(oCommon, oi)
		}
	}
	oOnly := make([]int, 0, len(other.dims))
	dims := q.Dims()
	for oi, d := range other.dims {
		if q.dimIndex(d) < 0 {
			oOnly = append(oOnly, oi)
			dims = append(dims, d)
		}
	}

	byCommon := map[string][]int{}
	for i, k := range other.keys {
		j := joinAt(k, oCommon)
		byCommon[j] = append(byCommon[j], i)
	}

	var keys [][]string
	var values []float64
	for i, k := range q.keys {
		for _, oi := range byCommon[joinAt(k, qCommon)] {
			key := make([]string, 0, len(dims))
			key = append(key, k...)
			for _, pos := range oOnly {
				key = append(key, other.keys[oi][pos])
			}
			keys = append(keys, key)
			values = append(values, op(q.values[i], other.values[oi]))
		}
	}

	name := ""
	if q.name == other.name {
		name = q.name
	}
	return newQuantity(name, dims, keys, values, nil), nil
}

func joinAt(key []string, positions []int) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = key[p]
	}
	return joinLabels(parts)
}

// Add sums two quantities elementwise over the union of their keys,
// substituting fill for the side missing a key. Both operands must have
// the same dimension set; other's key positions are permuted to q's
// order. The result carries no attrs.
func (q *Quantity) Add(other *Quantity, fill float64) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	if len(q.dims) != len(other.dims) {
		throwf(ErrShape, "add: dimensions %v and %v differ", q.dims, other.dims)
	}
	perm := make([]int, len(q.dims))
	for i, d := range q.dims {
		oi := other.dimIndex(d)
		if oi < 0 {
			throwf(ErrShape, "add: dimensions %v and %v differ", q.dims, other.dims)
		}
		perm[i] = oi
	}

	var keys [][]string
	var values []float64
	matched := make([]bool, len(other.keys))
	for i, k := range q.keys {
		v := q.values[i]
		if oi, has := other.index[permJoin(k, perm)]; has {
			matched[oi] = true
			v += other.values[oi]
		} else {
			v += fill
		}
		keys = append(keys, append([]string(nil), k...))
		values = append(values, v)
	}
	for oi, k := range other.keys {
		if matched[oi] {
			continue
		}
		key := make([]string, len(q.dims))
		for i, p := range perm {
			key[i] = k[p]
		}
		keys = append(keys, key)
		values = append(values, fill+other.values[oi])
	}

	name := ""
	if q.name == other.name {
		name = q.name
	}
	return newQuantity(name, q.Dims(), keys, values, nil), nil
}

// permJoin renders a key's labels in the other operand's position order
// for lookup in its index.
func permJoin(key []string, perm []int) string {
	parts := make([]string, len(perm))
	for qi, oi := range perm {
		parts[oi] = key[qi]
	}
	return joinLabels(parts)
}
