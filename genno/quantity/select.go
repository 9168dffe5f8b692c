package quantity

import (
	"github.com/batchatco/go-thrower"
)

// Indexer selects labels along one dimension of Sel.
type Indexer struct {
	labels []string
	scalar bool
	ranged bool
	lo, hi string
}

// One selects a single label. The dimension keeps length 1 in the result
// unless Sel is called with drop true.
func One(label string) Indexer {
	return Indexer{labels: []string{label}, scalar: true}
}

// Labels selects an explicit set of labels. The dimension is never
// dropped, even when one label is given.
func Labels(labels ...string) Indexer {
	return Indexer{labels: append([]string(nil), labels...)}
}

// Range selects the labels of a dimension falling between lo and hi
// inclusive, in the level's natural order. An empty bound is open.
func Range(lo, hi string) Indexer {
	return Indexer{ranged: true, lo: lo, hi: hi}
}

// Sel returns a new quantity restricted to keys matching every indexer.
// Dimensions selected with One keep a length-1 level unless drop is true;
// this deliberately inverts the usual dense-array convention of dropping
// scalar-indexed axes. Selectors naming absent dimensions or labels are
// errors.
func (q *Quantity) Sel(indexers map[string]Indexer, drop bool) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	allowed := make([]map[string]bool, len(q.dims))
	toDrop := make([]bool, len(q.dims))
	for dim, ix := range indexers {
		di := q.dimIndex(dim)
		if di < 0 {
			throwf(ErrDimNotFound, "sel: %q not in dimensions %v", dim, q.dims)
		}
		allowed[di] = ix.resolve(q.levelAt(di))
		toDrop[di] = ix.scalar && drop
	}

	var keys [][]string
	var values []float64
	for i, k := range q.keys {
		ok := true
		for di, set := range allowed {
			if set != nil && !set[k[di]] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		keys = append(keys, pruneKey(k, toDrop))
		values = append(values, q.values[i])
	}

	dims := make([]string, 0, len(q.dims))
	for di, d := range q.dims {
		if !toDrop[di] {
			dims = append(dims, d)
		}
	}
	return newQuantity(q.name, dims, keys, values, q.attrs.Copy()), nil
}

// resolve turns an indexer into the set of permitted labels for one
// dimension, throwing when a requested label is not in the level.
func (ix Indexer) resolve(level []string) map[string]bool {
	set := map[string]bool{}
	if ix.ranged {
		for _, l := range level {
			if ix.lo != "" && naturalLess(l, ix.lo) {
				continue
			}
			if ix.hi != "" && naturalLess(ix.hi, l) {
				continue
			}
			set[l] = true
		}
		return set
	}

	has := map[string]bool{}
	for _, l := range level {
		has[l] = true
	}
	for _, l := range ix.labels {
		if !has[l] {
			throwf(ErrLabelNotFound, "sel: label %q", l)
		}
		set[l] = true
	}
	return set
}

func pruneKey(key []string, drop []bool) []string {
	out := make([]string, 0, len(key))
	for i, l := range key {
		if !drop[i] {
			out = append(out, l)
		}
	}
	return out
}

// SelStack selects parallel positions along several dimensions at once
// and assembles the matches into one new dimension. For each position p,
// rows matching along[d][p] on every indexed dimension d are taken, the
// indexed dimensions are removed from their keys, and the label
// newLabels[p] is prepended for the new dimension newDim.
//
// All indexer slices must have the same length as newLabels.
func (q *Quantity) SelStack(newDim string, newLabels []string, along map[string][]string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)

	if len(along) == 0 {
		throwf(ErrShape, "sel: no indexed dimensions for new dimension %q", newDim)
	}
	remove := make([]bool, len(q.dims))
	for dim, labels := range along {
		di := q.dimIndex(dim)
		if di < 0 {
			throwf(ErrDimNotFound, "sel: %q not in dimensions %v", dim, q.dims)
		}
		if len(labels) != len(newLabels) {
			throwf(ErrShape,
				"sel: dimensions of indexers mismatch: %d labels for %q, %d for %q",
				len(labels), dim, len(newLabels), newDim)
		}
		remove[di] = true
	}

	// Fail on labels absent from their level, position by position.
	levelHas := make([]map[string]bool, len(q.dims))
	for dim := range along {
		di := q.dimIndex(dim)
		levelHas[di] = map[string]bool{}
		for _, l := range q.levelAt(di) {
			levelHas[di][l] = true
		}
	}

	var keys [][]string
	var values []float64
	for p := range newLabels {
		for dim, labels := range along {
			di := q.dimIndex(dim)
			if !levelHas[di][labels[p]] {
				throwf(ErrLabelNotFound, "sel: label %q along %q", labels[p], dim)
			}
		}
		for i, k := range q.keys {
			ok := true
			for dim, labels := range along {
				if k[q.dimIndex(dim)] != labels[p] {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			key := make([]string, 0, len(q.dims))
			key = append(key, newLabels[p])
			for di, l := range k {
				if !remove[di] {
					key = append(key, l)
				}
			}
			keys = append(keys, key)
			values = append(values, q.values[i])
		}
	}

	dims := make([]string, 0, len(q.dims))
	dims = append(dims, newDim)
	for di, d := range q.dims {
		if !remove[di] {
			dims = append(dims, d)
		}
	}
	return newQuantity(q.name, dims, keys, values, q.attrs.Copy()), nil
}
