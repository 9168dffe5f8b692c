// Package testutil provides quantity fixtures and assertions shared by
// tests across the module.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/LauWien/genno/genno/quantity"
)

// Dim is one dimension of a requested shape.
type Dim struct {
	Name string
	Len  int
}

// RandomQty returns a quantity with the given shape and random values in
// [0, 1). A dimension named "foo" with length N gets the labels "foo0"
// through "fooN-1".
func RandomQty(shape []Dim, opts ...quantity.Option) *quantity.Quantity {
	dims := make([]string, len(shape))
	levels := make([][]string, len(shape))
	size := 1
	for i, d := range shape {
		dims[i] = d.Name
		levels[i] = make([]string, d.Len)
		for j := range levels[i] {
			levels[i][j] = fmt.Sprintf("%s%d", d.Name, j)
		}
		size *= d.Len
	}
	values := make([]float64, size)
	for i := range values {
		values[i] = rand.Float64()
	}
	q, err := quantity.FromDense(dims, levels, values, opts...)
	if err != nil {
		// Unreachable: the shape above is consistent by construction.
		panic(err)
	}
	return q
}

// AssertQtyEqual fails the test unless want and got hold the same dims,
// keys and exact values. With checkAttrs, the attrs mappings must match
// as well.
func AssertQtyEqual(t *testing.T, want, got *quantity.Quantity, checkAttrs bool) {
	t.Helper()
	if !quantity.EqualValues(want, got) {
		t.Error("quantities differ: dims", got.Dims(), "want", want.Dims(),
			"size", got.Size(), "want", want.Size())
		return
	}
	if checkAttrs && !want.Attrs().Equal(got.Attrs()) {
		t.Error("attrs differ: got", got.Attrs().Keys(), "want", want.Attrs().Keys())
	}
}

// AssertQtyAllClose is AssertQtyEqual with a relative tolerance on the
// values: every pair must satisfy |want-got| <= rtol*max(|want|, |got|).
func AssertQtyAllClose(t *testing.T, want, got *quantity.Quantity, rtol float64) {
	t.Helper()
	wd, gd := want.Dims(), got.Dims()
	if len(wd) != len(gd) {
		t.Error("dims", gd, "want", wd)
		return
	}
	for i := range wd {
		if wd[i] != gd[i] {
			t.Error("dims", gd, "want", wd)
			return
		}
	}
	if want.Size() != got.Size() {
		t.Error("size", got.Size(), "want", want.Size())
		return
	}
	for _, r := range want.Rows() {
		gv, ok := got.Value(r.Labels...)
		if !ok {
			t.Error("missing key", r.Labels)
			continue
		}
		if !closeEnough(r.Value, gv, rtol) {
			t.Error("at", r.Labels, "got", gv, "want", r.Value)
		}
	}
}

func closeEnough(a, b, rtol float64) bool {
	if a == b || (math.IsNaN(a) && math.IsNaN(b)) {
		return true
	}
	return math.Abs(a-b) <= rtol*math.Max(math.Abs(a), math.Abs(b))
}
