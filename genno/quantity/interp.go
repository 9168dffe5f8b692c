package quantity

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/batchatco/go-thrower"
)

// Interp produces values at the requested numeric coordinates along one
// dimension by linear interpolation, independently per combination of
// the remaining dimensions. Coordinates equal to existing ones return
// the stored value unchanged; coordinates outside the span of a group's
// existing values are errors. The result holds exactly the requested
// coordinates. Only the "linear" method is implemented.
func (q *Quantity) Interp(dim string, coords []float64, method string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	if method != "" && method != "linear" {
		return nil, fmt.Errorf("interp method %q: %w", method, errors.ErrUnsupported)
	}
	di := q.mustDim("interp", dim)

	for _, c := range coords {
		if math.IsNaN(c) {
			throwf(ErrShape, "interp: NaN coordinate along %q", dim)
		}
	}
	// Requested coordinates, deduplicated and ascending.
	want := dedupSorted(coords)

	// Parse all labels along dim up front; non-numeric levels are out of
	// contract for interpolation.
	coordOf := map[string]float64{}
	labelOf := map[float64]string{}
	for _, l := range q.levelAt(di) {
		v, perr := strconv.ParseFloat(l, 64)
		if perr != nil {
			throwf(ErrShape, "interp: label %q along %q is not numeric", l, dim)
		}
		coordOf[l] = v
		labelOf[v] = l
	}

	// Group rows by the other dimensions.
	rm := make([]bool, len(q.dims))
	rm[di] = true
	type group struct {
		key []string
		xs  []float64
		ys  map[float64]float64
	}
	pos := map[string]int{}
	var groups []*group
	for i, k := range q.keys {
		kept := pruneKey(k, rm)
		j := joinLabels(kept)
		gi, has := pos[j]
		if !has {
			gi = len(groups)
			pos[j] = gi
			groups = append(groups, &group{key: kept, ys: map[float64]float64{}})
		}
		g := groups[gi]
		x := coordOf[k[di]]
		if _, dup := g.ys[x]; dup {
			throwf(ErrShape, "index contains duplicate entries, cannot reshape")
		}
		g.ys[x] = q.values[i]
		g.xs = append(g.xs, x)
	}
	sort.Slice(groups, func(a, b int) bool { return keyLess(groups[a].key, groups[b].key) })

	var keys [][]string
	var values []float64
	for _, g := range groups {
		sort.Float64s(g.xs)
		for _, x := range want {
			y, has := g.ys[x]
			if !has {
				y = interpolate(g.xs, g.ys, x, dim)
			}
			label, known := labelOf[x]
			if !known {
				label = strconv.FormatFloat(x, 'g', -1, 64)
			}
			key := make([]string, 0, len(q.dims))
			key = append(key, g.key[:di]...)
			key = append(key, label)
			key = append(key, g.key[di:]...)
			keys = append(keys, key)
			values = append(values, y)
		}
	}
	return newQuantity(q.name, q.Dims(), keys, values, q.attrs.Copy()), nil
}

// interpolate evaluates the piecewise-linear function through a group's
// known points at x, throwing outside the span or with fewer than two
// points.
func interpolate(xs []float64, ys map[float64]float64, x float64, dim string) float64 {
	if len(xs) < 2 {
		throwf(ErrShape, "interp: at least 2 values along %q required, have %d", dim, len(xs))
	}
	if x < xs[0] || x > xs[len(xs)-1] {
		throwf(ErrRange, "interp: coordinate %v along %q outside [%v, %v]",
			x, dim, xs[0], xs[len(xs)-1])
	}
	hi := sort.SearchFloat64s(xs, x)
	lo := hi - 1
	x0, x1 := xs[lo], xs[hi]
	y0, y1 := ys[x0], ys[x1]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

func dedupSorted(coords []float64) []float64 {
	out := append([]float64(nil), coords...)
	sort.Float64s(out)
	n := 0
	for i, v := range out {
		if i > 0 && v == out[n-1] {
			continue
		}
		out[n] = v
		n++
	}
	return out[:n]
}
