package quantity

import (
	"math"

	"github.com/batchatco/go-thrower"
)

// pivotTable is a quantity temporarily re-expressed as a dense matrix:
// one row per combination of the remaining dimensions, one column per
// label of the pivoted dimension, NaN in cells with no stored value.
// Rows and columns are in natural sorted order.
type pivotTable struct {
	rowKeys [][]string
	cols    []string
	cells   [][]float64
	colPos  map[string]int
}

// pivot re-expresses q with dimension number di as the column axis.
// Throws when duplicate composite keys make the reshape ambiguous.
func (q *Quantity) pivot(di int) *pivotTable {
	p := &pivotTable{
		cols:   q.levelAt(di),
		colPos: map[string]int{},
	}
	sortLabels(p.cols)
	for j, c := range p.cols {
		p.colPos[c] = j
	}

	rm := make([]bool, len(q.dims))
	rm[di] = true
	rowPos := map[string]int{}
	for _, k := range q.keys {
		kept := pruneKey(k, rm)
		j := joinLabels(kept)
		if _, has := rowPos[j]; !has {
			rowPos[j] = 0
			p.rowKeys = append(p.rowKeys, kept)
		}
	}
	sortKeys(p.rowKeys)
	for i, k := range p.rowKeys {
		rowPos[joinLabels(k)] = i
	}

	p.cells = make([][]float64, len(p.rowKeys))
	for i := range p.cells {
		row := make([]float64, len(p.cols))
		for j := range row {
			row[j] = math.NaN()
		}
		p.cells[i] = row
	}
	for n, k := range q.keys {
		i := rowPos[joinLabels(pruneKey(k, rm))]
		j := p.colPos[k[di]]
		if !math.IsNaN(p.cells[i][j]) {
			throwf(ErrShape, "index contains duplicate entries, cannot reshape")
		}
		p.cells[i][j] = q.values[n]
	}
	return p
}

// unpivot flattens the table back to rows, restoring the pivoted
// dimension to key position di and skipping NaN cells. Dimension order
// and attrs follow the source quantity; the name does not survive the
// round trip.
func (q *Quantity) unpivot(p *pivotTable, di int) *Quantity {
	var keys [][]string
	var values []float64
	for i, rk := range p.rowKeys {
		for j, c := range p.cols {
			v := p.cells[i][j]
			if math.IsNaN(v) {
				continue
			}
			key := make([]string, 0, len(q.dims))
			key = append(key, rk[:di]...)
			key = append(key, c)
			key = append(key, rk[di:]...)
			keys = append(keys, key)
			values = append(values, v)
		}
	}
	return newQuantity("", q.Dims(), keys, values, q.attrs.Copy())
}

func (q *Quantity) mustDim(op, dim string) int {
	di := q.dimIndex(dim)
	if di < 0 {
		throwf(ErrDimNotFound, "%s: %q not in dimensions %v", op, dim, q.dims)
	}
	return di
}

// Shift moves values along one dimension by periods positions in the
// level's natural order. Vacated positions take fill; pass NaN to leave
// them missing, which removes those keys from the result. Values shifted
// past the end are dropped.
func (q *Quantity) Shift(dim string, periods int, fill float64) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)
	di := q.mustDim("shift", dim)
	p := q.pivot(di)
	for _, row := range p.cells {
		shifted := make([]float64, len(row))
		for j := range shifted {
			src := j - periods
			if src >= 0 && src < len(row) {
				shifted[j] = row[src]
			} else {
				shifted[j] = fill
			}
		}
		copy(row, shifted)
	}
	return q.unpivot(p, di), nil
}

// Ffill fills missing values along one dimension from the previous
// present value in natural order. A positive limit bounds the run of
// consecutive missing positions filled; zero means no limit.
func (q *Quantity) Ffill(dim string, limit int) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)
	di := q.mustDim("ffill", dim)
	p := q.pivot(di)
	for _, row := range p.cells {
		last := math.NaN()
		run := 0
		for j, v := range row {
			if !math.IsNaN(v) {
				last = v
				run = 0
				continue
			}
			run++
			if !math.IsNaN(last) && (limit == 0 || run <= limit) {
				row[j] = last
			}
		}
	}
	return q.unpivot(p, di), nil
}

// Bfill is Ffill in reverse: missing values take the next present value.
func (q *Quantity) Bfill(dim string, limit int) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)
	di := q.mustDim("bfill", dim)
	p := q.pivot(di)
	for _, row := range p.cells {
		next := math.NaN()
		run := 0
		for j := len(row) - 1; j >= 0; j-- {
			v := row[j]
			if !math.IsNaN(v) {
				next = v
				run = 0
				continue
			}
			run++
			if !math.IsNaN(next) && (limit == 0 || run <= limit) {
				row[j] = next
			}
		}
	}
	return q.unpivot(p, di), nil
}

// CumProd returns the cumulative product along one dimension in natural
// order. Missing positions stay missing and do not interrupt the running
// product.
func (q *Quantity) CumProd(dim string) (out *Quantity, err error) {
	defer thrower.RecoverError(&err)
	di := q.mustDim("cumprod", dim)
	p := q.pivot(di)
	for _, row := range p.cells {
		acc := 1.0
		for j, v := range row {
			if math.IsNaN(v) {
				continue
			}
			acc *= v
			row[j] = acc
		}
	}
	return q.unpivot(p, di), nil
}
