// Package genno assembles labeled quantities and the task graphs that
// compute with them. This package is the entry point: New builds a
// quantity from any of the supported input shapes, NewComputer returns
// an empty task graph, and the config package fills one from YAML.
package genno

import (
	"errors"
	"fmt"
	"sort"

	"github.com/LauWien/genno/genno/computer"
	"github.com/LauWien/genno/genno/key"
	"github.com/LauWien/genno/genno/quantity"
	"github.com/LauWien/genno/genno/units"
)

// Aliases for the core types, so most callers import only this package.
type (
	Quantity = quantity.Quantity
	Row      = quantity.Row
	Option   = quantity.Option
	Computer = computer.Computer
	Key      = key.Key
)

// ErrInput is returned by New for data of an unsupported shape.
var ErrInput = errors.New("not a scalar, series, dense block or table")

// Series is the flat input shape: explicit observations, one row per
// composite key, each with one label per dimension.
type Series struct {
	Dims []string
	Rows []Row
}

// Dense is the dense input shape: one value per combination of the
// per-dimension levels, in row-major order. NaN values mean missing.
type Dense struct {
	Dims   []string
	Levels [][]string
	Values []float64
}

// Table is the tabular input shape: a header plus records, with
// dimension columns, a required "value" column, and ignorable extras.
type Table struct {
	Columns []string
	Records [][]string
}

// New builds a quantity from data, which may be a numeric scalar, a
// Series, a Dense block, a Table, or an existing *Quantity (copied).
// Options apply after construction.
func New(data any, opts ...Option) (*Quantity, error) {
	switch d := data.(type) {
	case *Quantity:
		q := d.Copy()
		for _, opt := range opts {
			opt(q)
		}
		return q, nil
	case float64:
		return quantity.NewScalar(d, opts...), nil
	case float32:
		return quantity.NewScalar(float64(d), opts...), nil
	case int:
		return quantity.NewScalar(float64(d), opts...), nil
	case Series:
		return quantity.New(d.Dims, d.Rows, opts...)
	case Dense:
		return quantity.FromDense(d.Dims, d.Levels, d.Values, opts...)
	case Table:
		return quantity.FromTable(d.Columns, d.Records, opts...)
	}
	return nil, fmt.Errorf("%w: %T", ErrInput, data)
}

// FromSeries is New for the flat shape, without the intermediate struct.
func FromSeries(dims []string, rows []Row, opts ...Option) (*Quantity, error) {
	return quantity.New(dims, rows, opts...)
}

// NewComputer returns an empty task graph.
func NewComputer() *Computer {
	return computer.New()
}

// WithName names the quantity under construction.
func WithName(name string) Option {
	return quantity.WithName(name)
}

// WithUnits parses expr against the shared registry and attaches the
// result. An unparseable expression leaves the quantity dimensionless,
// with a warning.
func WithUnits(expr string) Option {
	return func(q *Quantity) {
		u, err := units.Default().Parse(expr)
		if err != nil {
			logger.Warnf("Ignoring units %q: %v", expr, err)
			return
		}
		q.SetUnit(u)
	}
}

// WithAttrs sets the given attrs entries, in sorted key order.
func WithAttrs(attrs map[string]any) Option {
	return func(q *Quantity) {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			q.Attrs().Set(k, attrs[k])
		}
	}
}
