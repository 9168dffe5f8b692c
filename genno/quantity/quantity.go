// Package quantity implements the labeled series type: a flat, ordered
// collection of (composite key, value) pairs that exposes the semantics
// of a dense labeled N-dimensional array.
//
// A Quantity stores one float64 per composite key. The key is a fixed
// tuple of string labels, one per named dimension, so an N-dimensional
// array is held sparsely as rows rather than as a dense block. Absent
// keys and NaN values both mean "missing". All operations return new
// instances; the attrs mapping is shallow-copied at every boundary so
// returned instances never alias their inputs.
package quantity

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/batchatco/go-thrower"

	"github.com/LauWien/genno/genno/units"
	"github.com/LauWien/genno/genno/util"
	"github.com/LauWien/genno/internal"
)

var (
	// ErrDimNotFound is returned when an operation references a dimension
	// name absent from the quantity's dims.
	ErrDimNotFound = errors.New("dimension not found")
	// ErrLabelNotFound is returned when a selector references a label
	// absent from its dimension's level.
	ErrLabelNotFound = errors.New("label not found")
	// ErrShape is returned for mismatched arities, lengths or sizes
	// between indexers, coordinates or operands.
	ErrShape = errors.New("shape mismatch")
	// ErrNotScalar is returned by Item when the quantity does not hold
	// exactly one value.
	ErrNotScalar = errors.New("not a scalar")
	// ErrRange is returned when interpolation is requested outside the
	// span of existing coordinates.
	ErrRange = errors.New("outside interpolation range")
)

// keySep joins composite keys for map lookups. Labels are free-form
// strings, but control characters do not occur in practice.
const keySep = "\x1f"

// Row is one observation: a composite key and its value.
type Row struct {
	Labels []string
	Value  float64
}

// Quantity is the labeled series. The zero value is not usable; create
// instances with New, NewScalar, FromDense or FromTable.
//
// A Quantity is immutable by convention: operations return new instances
// and never change the key structure of their input. SetUnit and direct
// Attrs access mutate only metadata and are intended for freshly
// constructed instances that no other caller holds yet.
type Quantity struct {
	name   string
	dims   []string
	keys   [][]string
	values []float64
	attrs  *util.AttrMap
	index  map[string]int
}

// Option adjusts a quantity under construction.
type Option func(*Quantity)

// WithName sets the quantity's name.
func WithName(name string) Option {
	return func(q *Quantity) { q.name = name }
}

// WithUnit attaches a parsed unit to attrs.
func WithUnit(u units.Unit) Option {
	return func(q *Quantity) { q.attrs.Set(util.UnitKey, u) }
}

// WithAttr sets one attrs entry.
func WithAttr(key string, value any) Option {
	return func(q *Quantity) { q.attrs.Set(key, value) }
}

// WithAttrs copies all entries of m into attrs.
func WithAttrs(m *util.AttrMap) Option {
	return func(q *Quantity) { q.attrs.Update(m) }
}

// newQuantity assembles a quantity from parts the caller guarantees to be
// consistent: every key has arity len(dims), and no slice is shared with
// code that mutates it afterwards.
func newQuantity(name string, dims []string, keys [][]string, values []float64, attrs *util.AttrMap) *Quantity {
	if attrs == nil {
		attrs = util.NewAttrMap()
	}
	q := &Quantity{
		name:   name,
		dims:   dims,
		keys:   keys,
		values: values,
		attrs:  attrs,
		index:  make(map[string]int, len(keys)),
	}
	for i, k := range keys {
		j := joinLabels(k)
		// First occurrence wins; duplicates stay addressable by order.
		if _, has := q.index[j]; !has {
			q.index[j] = i
		}
	}
	return q
}

func joinLabels(labels []string) string {
	return strings.Join(labels, keySep)
}

// NewScalar returns a 0-dimensional quantity holding a single value.
func NewScalar(value float64, opts ...Option) *Quantity {
	q := newQuantity("", nil, [][]string{{}}, []float64{value}, nil)
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// New builds a quantity from explicit rows. Every row must have one label
// per dimension.
func New(dims []string, rows []Row, opts ...Option) (*Quantity, error) {
	keys := make([][]string, 0, len(rows))
	values := make([]float64, 0, len(rows))
	for i, r := range rows {
		if len(r.Labels) != len(dims) {
			return nil, fmt.Errorf(
				"row %d has %d labels for %d dimensions: %w", i, len(r.Labels), len(dims), ErrShape)
		}
		keys = append(keys, append([]string(nil), r.Labels...))
		values = append(values, r.Value)
	}
	q := newQuantity("", append([]string(nil), dims...), keys, values, nil)
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// FromDense builds a quantity from a dense block: values in row-major
// order over the cross product of the per-dimension levels. NaN entries
// are treated as missing and not stored. With no dimensions the block
// must reduce to a single scalar value.
func FromDense(dims []string, levels [][]string, values []float64, opts ...Option) (*Quantity, error) {
	if len(dims) != len(levels) {
		return nil, fmt.Errorf(
			"%d dimensions but %d level sets: %w", len(dims), len(levels), ErrShape)
	}
	size := 1
	for _, l := range levels {
		size *= len(l)
	}
	if size != len(values) {
		return nil, fmt.Errorf(
			"dense block needs %d values, got %d: %w", size, len(values), ErrShape)
	}

	var keys [][]string
	var vals []float64
	w := internal.NewProductWalker(levels)
	for i := 0; ; i++ {
		key, ok := w.Next()
		if !ok {
			break
		}
		if math.IsNaN(values[i]) {
			continue
		}
		keys = append(keys, key)
		vals = append(vals, values[i])
	}
	q := newQuantity("", append([]string(nil), dims...), keys, vals, nil)
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// FromTable builds a quantity from tabular records. Dimension columns are
// those not named "value", "unit", "lvl" or "mrg"; the "value" column is
// required and parsed as float64. Other non-dimension columns are
// ignored; callers wanting the unit column parse it separately.
func FromTable(columns []string, records [][]string, opts ...Option) (*Quantity, error) {
	dims := util.DimsForColumns(columns)
	dimCols := util.DimColumns(columns)
	valueCol := -1
	for i, c := range columns {
		if c == "value" {
			valueCol = i
		}
	}
	if valueCol < 0 {
		return nil, fmt.Errorf("no value column in %v: %w", columns, ErrShape)
	}

	keys := make([][]string, 0, len(records))
	values := make([]float64, 0, len(records))
	for n, rec := range records {
		if len(rec) != len(columns) {
			return nil, fmt.Errorf(
				"record %d has %d fields for %d columns: %w", n, len(rec), len(columns), ErrShape)
		}
		v, err := strconv.ParseFloat(rec[valueCol], 64)
		if err != nil {
			return nil, fmt.Errorf("record %d: bad value %q: %w", n, rec[valueCol], ErrShape)
		}
		key := make([]string, len(dimCols))
		for j, c := range dimCols {
			key[j] = rec[c]
		}
		keys = append(keys, key)
		values = append(values, v)
	}
	q := newQuantity("", dims, keys, values, nil)
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Name returns the quantity's name, or "".
func (q *Quantity) Name() string { return q.name }

// Dims returns a copy of the ordered dimension names.
func (q *Quantity) Dims() []string {
	return append([]string(nil), q.dims...)
}

// Size returns the number of stored values.
func (q *Quantity) Size() int { return len(q.values) }

// Values returns a copy of the stored values in row order.
func (q *Quantity) Values() []float64 {
	return append([]float64(nil), q.values...)
}

// Rows returns the stored observations in row order, the flattening
// inverse of New.
func (q *Quantity) Rows() []Row {
	out := make([]Row, len(q.values))
	for i := range q.values {
		out[i] = Row{
			Labels: append([]string(nil), q.keys[i]...),
			Value:  q.values[i],
		}
	}
	return out
}

// Attrs returns the live metadata mapping of this instance.
func (q *Quantity) Attrs() *util.AttrMap { return q.attrs }

// Unit returns the attached unit, or dimensionless when none is set.
func (q *Quantity) Unit() units.Unit {
	if v, has := q.attrs.Get(util.UnitKey); has {
		if u, ok := v.(units.Unit); ok {
			return u
		}
	}
	return units.Dimensionless()
}

// HasUnit reports whether a unit is attached to attrs.
func (q *Quantity) HasUnit() bool {
	_, has := q.attrs.Get(util.UnitKey)
	return has
}

// SetUnit attaches a unit, replacing any previous one. Intended for
// freshly constructed instances.
func (q *Quantity) SetUnit(u units.Unit) { q.attrs.Set(util.UnitKey, u) }

// Value looks up the value stored for a composite key, given one label
// per dimension in dims order.
func (q *Quantity) Value(labels ...string) (float64, bool) {
	if len(labels) != len(q.dims) {
		return 0, false
	}
	i, has := q.index[joinLabels(labels)]
	if !has {
		return 0, false
	}
	return q.values[i], true
}

// Item returns the single stored value; any other size is an error.
func (q *Quantity) Item() (float64, error) {
	if len(q.values) != 1 {
		return 0, fmt.Errorf("quantity holds %d values: %w", len(q.values), ErrNotScalar)
	}
	return q.values[0], nil
}

// Coord describes one dimension: its name and the labels observed for
// it, in order of first appearance.
type Coord struct {
	Dim    string
	Labels []string
}

// Coords describes every dimension of the quantity, in dims order.
func (q *Quantity) Coords() []Coord {
	out := make([]Coord, len(q.dims))
	for i, d := range q.dims {
		out[i] = Coord{Dim: d, Labels: q.levelAt(i)}
	}
	return out
}

// Levels returns the distinct labels of one dimension, in order of first
// appearance.
func (q *Quantity) Levels(dim string) ([]string, error) {
	i := q.dimIndex(dim)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q not in %v", ErrDimNotFound, dim, q.dims)
	}
	return q.levelAt(i), nil
}

func (q *Quantity) dimIndex(dim string) int {
	for i, d := range q.dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// levelAt recomputes the level of the dimension at key position i.
func (q *Quantity) levelAt(i int) []string {
	var labels []string
	seen := map[string]bool{}
	for _, k := range q.keys {
		if !seen[k[i]] {
			seen[k[i]] = true
			labels = append(labels, k[i])
		}
	}
	return labels
}

// Rename returns the quantity under a new name. RenameDims renames
// dimensions instead.
func (q *Quantity) Rename(name string) *Quantity {
	out := q.copyStructure()
	out.name = name
	return out
}

// RenameDims returns the quantity with dimensions renamed. Names absent
// from the mapping are unchanged; mapping entries for absent dimensions
// are ignored.
func (q *Quantity) RenameDims(names map[string]string) *Quantity {
	out := q.copyStructure()
	for i, d := range out.dims {
		if n, has := names[d]; has {
			out.dims[i] = n
		}
	}
	return out
}

// Copy returns an independent clone: dims, rows and attrs are all owned
// by the new instance.
func (q *Quantity) Copy() *Quantity {
	return q.copyStructure()
}

// copyStructure clones dims, rows and attrs; the index is rebuilt.
func (q *Quantity) copyStructure() *Quantity {
	keys := make([][]string, len(q.keys))
	for i, k := range q.keys {
		keys[i] = append([]string(nil), k...)
	}
	return newQuantity(
		q.name,
		append([]string(nil), q.dims...),
		keys,
		append([]float64(nil), q.values...),
		q.attrs.Copy(),
	)
}

// EqualValues reports whether two quantities hold the same dims, keys and
// values, comparing NaN equal to NaN and ignoring row order, name and
// attrs.
func EqualValues(a, b *Quantity) bool {
	if len(a.dims) != len(b.dims) || len(a.values) != len(b.values) {
		return false
	}
	for i := range a.dims {
		if a.dims[i] != b.dims[i] {
			return false
		}
	}
	for i, k := range a.keys {
		j, has := b.index[joinLabels(k)]
		if !has {
			return false
		}
		av, bv := a.values[i], b.values[j]
		if av != bv && !(math.IsNaN(av) && math.IsNaN(bv)) {
			return false
		}
	}
	return true
}

// throwf throws a formatted error wrapping a sentinel; recovered at the
// public method boundary.
func throwf(sentinel error, format string, args ...any) {
	args = append(args, sentinel)
	thrower.Throw(fmt.Errorf(format+": %w", args...))
}
