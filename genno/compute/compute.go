// Package compute implements the standard computation library applied
// to quantities by the task-graph engine: pure functions from input
// quantities (plus parameters) to an output quantity.
//
// Every operation exists twice: as a typed Go function, and under a
// snake_case name in a registry through which configuration-driven
// tasks are resolved. The registry form takes positional arguments as
// []any plus a kwargs map, mirroring how tasks are written in YAML.
package compute

import (
	"errors"
	"fmt"
	"sort"

	"github.com/LauWien/genno/genno/quantity"
	"github.com/LauWien/genno/genno/units"
	"github.com/LauWien/genno/genno/util"
)

var (
	// ErrUnknownOp is returned when resolving a name with no registered
	// operation.
	ErrUnknownOp = errors.New("unknown operation")
	// ErrOperand is returned when an operation receives arguments of the
	// wrong type or count.
	ErrOperand = errors.New("bad operand")
)

// collectUnits returns the parsed unit of each argument. An argument
// without one is assigned the dimensionless unit first; this is the one
// place a missing unit is noticed, at debug level. String-valued unit
// attrs left by table construction are parsed in place.
func collectUnits(qs ...*quantity.Quantity) ([]units.Unit, error) {
	out := make([]units.Unit, len(qs))
	for i, q := range qs {
		if !q.HasUnit() {
			logger.Debugf("assuming %s is unitless", describe(q))
			q.SetUnit(units.Dimensionless())
		} else if s, ok := rawUnit(q); ok {
			u, err := units.Default().Parse(units.Clean(s))
			if err != nil {
				return nil, err
			}
			q.SetUnit(u)
		}
		out[i] = q.Unit()
	}
	return out, nil
}

func rawUnit(q *quantity.Quantity) (string, bool) {
	v, has := q.Attrs().Get(util.UnitKey)
	if !has {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// describe names a quantity for log messages.
func describe(q *quantity.Quantity) string {
	if n := q.Name(); n != "" {
		return fmt.Sprintf("%q", n)
	}
	return fmt.Sprintf("quantity with dimensions %v", q.Dims())
}

// scaled returns q with every value multiplied by factor. Name and attrs
// are preserved.
func scaled(q *quantity.Quantity, factor float64) (*quantity.Quantity, error) {
	rows := q.Rows()
	for i := range rows {
		rows[i].Value *= factor
	}
	return quantity.New(q.Dims(), rows,
		quantity.WithName(q.Name()), quantity.WithAttrs(q.Attrs()))
}

// sortedNames returns m's keys in sorted order, for deterministic
// iteration.
func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Add sums quantities elementwise over the union of their keys. Every
// operand must have the same dimension set as the first; units must be
// compatible with the first operand's, and magnitudes are converted to
// it before summing.
func Add(quantities ...*quantity.Quantity) (*quantity.Quantity, error) {
	if len(quantities) == 0 {
		return nil, fmt.Errorf("add: no quantities: %w", ErrOperand)
	}
	us, err := collectUnits(quantities...)
	if err != nil {
		return nil, err
	}

	result := quantities[0].Copy()
	for i, q := range quantities[1:] {
		factor, err := us[i+1].ConversionFactor(us[0])
		if err != nil {
			return nil, fmt.Errorf("add: %w", err)
		}
		if factor != 1 {
			if q, err = scaled(q, factor); err != nil {
				return nil, err
			}
		}
		if result, err = result.Add(q, 0); err != nil {
			return nil, err
		}
	}
	result.SetUnit(us[0])
	return result, nil
}

// Sum sums q over the named dimensions; no dimensions means a complete
// collapse to a scalar. When weights are given the result is the
// weighted mean instead: sum(q*weights) / sum(weights). The unit of q is
// carried onto the result.
func Sum(q *quantity.Quantity, weights *quantity.Quantity, dims ...string) (*quantity.Quantity, error) {
	us, err := collectUnits(q)
	if err != nil {
		return nil, err
	}

	var result *quantity.Quantity
	if weights == nil {
		result, err = q.Sum(dims...)
	} else {
		var num, den *quantity.Quantity
		if num, err = q.Mul(weights); err != nil {
			return nil, err
		}
		if num, err = num.Sum(dims...); err != nil {
			return nil, err
		}
		if den, err = weights.Sum(dims...); err != nil {
			return nil, err
		}
		result, err = num.Div(den)
	}
	if err != nil {
		return nil, err
	}
	result.SetUnit(us[0])
	return result, nil
}

// Product multiplies quantities pairwise: each further operand is first
// aligned to the running result, then joined elementwise, cross-joining
// dimensions exclusive to one side. Units multiply along.
func Product(quantities ...*quantity.Quantity) (*quantity.Quantity, error) {
	if len(quantities) == 0 {
		return nil, fmt.Errorf("product: no quantities: %w", ErrOperand)
	}
	us, err := collectUnits(quantities...)
	if err != nil {
		return nil, err
	}

	result := quantities[0].Copy()
	u := us[0]
	for i, q := range quantities[1:] {
		aligned, err := q.AlignLevels(result)
		if err != nil {
			return nil, err
		}
		if result, err = result.Mul(aligned); err != nil {
			return nil, err
		}
		u = u.Mul(us[i+1])
	}
	result.SetUnit(u)
	return result, nil
}

// Div returns the elementwise ratio of two quantities, the denominator
// aligned to the numerator first. The result's unit is the ratio of the
// operands' units.
func Div(numerator, denominator *quantity.Quantity) (*quantity.Quantity, error) {
	us, err := collectUnits(numerator, denominator)
	if err != nil {
		return nil, err
	}
	den, err := denominator.AlignLevels(numerator)
	if err != nil {
		return nil, err
	}
	result, err := numerator.Div(den)
	if err != nil {
		return nil, err
	}
	result.SetUnit(us[0].Div(us[1]))
	return result, nil
}

// Ratio is Div under its other common name.
func Ratio(numerator, denominator *quantity.Quantity) (*quantity.Quantity, error) {
	return Div(numerator, denominator)
}

// Select returns the subset of q matching indexers: for each named
// dimension, rows whose label is among those given. With inverse true
// the matching labels are removed instead. Selected dimensions are kept,
// even at length 1.
func Select(q *quantity.Quantity, indexers map[string][]string, inverse bool) (*quantity.Quantity, error) {
	ix := make(map[string]quantity.Indexer, len(indexers))
	for dim, labels := range indexers {
		if !inverse {
			ix[dim] = quantity.Labels(labels...)
			continue
		}
		level, err := q.Levels(dim)
		if err != nil {
			return nil, err
		}
		remove := make(map[string]bool, len(labels))
		for _, l := range labels {
			remove[l] = true
		}
		kept := make([]string, 0, len(level))
		for _, l := range level {
			if !remove[l] {
				kept = append(kept, l)
			}
		}
		ix[dim] = quantity.Labels(kept...)
	}
	return q.Sel(ix, false)
}

// Aggregate sums labels within dimensions of q into named groups. groups
// maps dimension name -> group name -> member labels; each group becomes
// one new label along its dimension, holding the sum over its members.
// With keep true the original rows stay alongside the group rows; a
// group whose name collides with an existing label is then skipped, with
// a warning.
func Aggregate(q *quantity.Quantity, groups map[string]map[string][]string, keep bool) (*quantity.Quantity, error) {
	attrs := q.Attrs().Copy()

	result := q
	for _, dim := range sortedNames(groups) {
		level, err := result.Levels(dim)
		if err != nil {
			return nil, err
		}
		has := make(map[string]bool, len(level))
		for _, l := range level {
			has[l] = true
		}

		var parts []*quantity.Quantity
		if keep {
			parts = append(parts, result)
		}
		for _, group := range sortedNames(groups[dim]) {
			if keep && has[group] {
				logger.Warnf("Group %q is already a label along %q; skipped", group, dim)
				continue
			}
			part, err := result.Sel(
				map[string]quantity.Indexer{dim: quantity.Labels(groups[dim][group]...)}, false)
			if err != nil {
				return nil, err
			}
			if part, err = part.Sum(dim); err != nil {
				return nil, err
			}
			if part, err = part.ExpandDims([]quantity.Coord{{Dim: dim, Labels: []string{group}}}); err != nil {
				return nil, err
			}
			if part, err = part.Transpose(result.Dims()...); err != nil {
				return nil, err
			}
			parts = append(parts, part)
		}
		if result, err = Concat(parts...); err != nil {
			return nil, err
		}
	}

	if result == q {
		result = q.Copy()
	}
	result.Attrs().Update(attrs)
	return result, nil
}

// Concat appends the rows of quantities sharing one dimension set; later
// operands' key positions are permuted into the first operand's order.
// The first operand's name and attrs carry to the result.
func Concat(quantities ...*quantity.Quantity) (*quantity.Quantity, error) {
	if len(quantities) == 0 {
		return nil, fmt.Errorf("concat: no quantities: %w", ErrOperand)
	}
	first := quantities[0]
	dims := first.Dims()
	rows := first.Rows()
	for _, q := range quantities[1:] {
		qdims := q.Dims()
		perm, ok := permutation(dims, qdims)
		if !ok {
			return nil, fmt.Errorf("concat: dimensions %v and %v differ: %w",
				dims, qdims, quantity.ErrShape)
		}
		for _, r := range q.Rows() {
			labels := make([]string, len(dims))
			for i, j := range perm {
				labels[i] = r.Labels[j]
			}
			rows = append(rows, quantity.Row{Labels: labels, Value: r.Value})
		}
	}
	return quantity.New(dims, rows,
		quantity.WithName(first.Name()), quantity.WithAttrs(first.Attrs()))
}

// permutation maps positions in want to positions in have, or reports
// that the two are not the same set.
func permutation(want, have []string) ([]int, bool) {
	if len(want) != len(have) {
		return nil, false
	}
	perm := make([]int, len(want))
	for i, d := range want {
		perm[i] = -1
		for j, h := range have {
			if h == d {
				perm[i] = j
				break
			}
		}
		if perm[i] < 0 {
			return nil, false
		}
	}
	return perm, true
}

// GroupSum sums q across the sum dimension separately within each label
// of the group dimension, then reassembles the groups. The result drops
// sum and keeps every other dimension.
func GroupSum(q *quantity.Quantity, group, sum string) (*quantity.Quantity, error) {
	level, err := q.Levels(group)
	if err != nil {
		return nil, err
	}
	parts := make([]*quantity.Quantity, 0, len(level))
	for _, label := range level {
		part, err := q.Sel(map[string]quantity.Indexer{group: quantity.One(label)}, false)
		if err != nil {
			return nil, err
		}
		if part, err = part.Sum(sum); err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return Concat(parts...)
}

// ApplyUnits returns q with the parsed unit attached. A compatible
// existing unit converts the magnitudes; an incompatible one is replaced
// with a warning, leaving values unchanged; absent or dimensionless
// units are set silently.
func ApplyUnits(q *quantity.Quantity, unit string) (*quantity.Quantity, error) {
	u, err := units.Default().Parse(units.Clean(unit))
	if err != nil {
		return nil, err
	}

	result := q.Copy()
	if existing := q.Unit(); !existing.IsDimensionless() {
		if existing.Compatible(u) {
			logger.Debugf("Convert %q to %q", existing, u)
			factor, err := existing.ConversionFactor(u)
			if err != nil {
				return nil, err
			}
			if result, err = scaled(q, factor); err != nil {
				return nil, err
			}
		} else {
			logger.Warnf("Replace %q with incompatible %q", existing, u)
		}
	}
	result.SetUnit(u)
	return result, nil
}

// BroadcastMap translates one dimension of q through mapping, a
// 2-dimensional quantity of ones relating labels of its first dimension
// to labels of its second. q is multiplied by mapping and summed over
// the first mapped dimension, leaving the second in its place. rename
// optionally renames result dimensions. With strict true, every label of
// the second dimension must be mapped from exactly one label of the
// first.
func BroadcastMap(q, mapping *quantity.Quantity, rename map[string]string, strict bool) (*quantity.Quantity, error) {
	mdims := mapping.Dims()
	if len(mdims) != 2 {
		return nil, fmt.Errorf("broadcast_map: mapping has dimensions %v, not 2: %w",
			mdims, quantity.ErrShape)
	}
	if strict {
		total, err := mapping.Sum()
		if err != nil {
			return nil, err
		}
		n, err := total.Item()
		if err != nil {
			return nil, err
		}
		level, err := mapping.Levels(mdims[1])
		if err != nil {
			return nil, err
		}
		if int(n) != len(level) {
			return nil, fmt.Errorf("broadcast_map: %d mapping entries for %d labels along %q: %w",
				int(n), len(level), mdims[1], quantity.ErrShape)
		}
	}

	result, err := Product(q, mapping)
	if err != nil {
		return nil, err
	}
	if result, err = result.Sum(mdims[0]); err != nil {
		return nil, err
	}
	if len(rename) > 0 {
		result = result.RenameDims(rename)
	}
	return result, nil
}

// DisaggregateShares multiplies q by a dimensionless shares quantity,
// keeping q's unit.
func DisaggregateShares(q, shares *quantity.Quantity) (*quantity.Quantity, error) {
	us, err := collectUnits(q)
	if err != nil {
		return nil, err
	}
	result, err := q.Mul(shares)
	if err != nil {
		return nil, err
	}
	result.SetUnit(us[0])
	return result, nil
}

// Interpolate fills and extends q along one dimension at the given
// numeric coordinates; see Quantity.Interp.
func Interpolate(q *quantity.Quantity, dim string, coords []float64, method string) (*quantity.Quantity, error) {
	return q.Interp(dim, coords, method)
}

// Input is one term of a Combine: a quantity, selectors applied before
// weighting, and a weight. Multi-label Select entries are summed over
// after selection, removing those dimensions; single-label Pick entries
// keep their dimension at length 1. A zero Weight counts as 1, so the
// zero value selects nothing and weighs the quantity unchanged.
type Input struct {
	Quantity *quantity.Quantity
	Select   map[string][]string
	Pick     map[string]string
	Weight   float64
}

// Combine sums weighted, selected terms. Every term must carry the same
// unit, which the result keeps.
func Combine(inputs ...Input) (*quantity.Quantity, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("combine: no inputs: %w", ErrOperand)
	}
	qs := make([]*quantity.Quantity, len(inputs))
	for i := range inputs {
		qs[i] = inputs[i].Quantity
	}
	us, err := collectUnits(qs...)
	if err != nil {
		return nil, err
	}
	for _, u := range us[1:] {
		if !u.Equal(us[0]) {
			return nil, fmt.Errorf("cannot combine units %q and %q: %w",
				us[0], u, units.ErrIncompatible)
		}
	}

	terms := make([]*quantity.Quantity, len(inputs))
	for i, in := range inputs {
		ix := make(map[string]quantity.Indexer, len(in.Select)+len(in.Pick))
		for dim, labels := range in.Select {
			ix[dim] = quantity.Labels(labels...)
		}
		for dim, label := range in.Pick {
			ix[dim] = quantity.One(label)
		}

		term := in.Quantity
		if len(ix) > 0 {
			if term, err = term.Sel(ix, false); err != nil {
				return nil, err
			}
		}
		if len(in.Select) > 0 {
			if term, err = term.Sum(sortedNames(in.Select)...); err != nil {
				return nil, err
			}
		}
		w := in.Weight
		if w == 0 {
			w = 1
		}
		if w != 1 {
			if term, err = scaled(term, w); err != nil {
				return nil, err
			}
		}
		terms[i] = term
	}

	result, err := Add(terms...)
	if err != nil {
		return nil, err
	}
	result.SetUnit(us[0])
	return result, nil
}
