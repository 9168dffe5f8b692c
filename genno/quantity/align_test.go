package quantity

import (
	"errors"
	"testing"
)

func TestAlignLevelsCommon(t *testing.T) {
	q := xy(t)
	// other uses the shared dims in the opposite order plus its own.
	other, err := New([]string{"y", "z"}, []Row{
		{Labels: []string{"1", "p"}, Value: 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := q.AlignLevels(other)
	if err != nil {
		t.Error(err)
		return
	}
	// Common dims first in other's order, then q's remainder.
	if !sameDims(r, "y", "x") {
		t.Error("dims", r.Dims())
		return
	}
	wantValue(t, r, 20, "2", "a")
}

func TestAlignLevelsBroadcast(t *testing.T) {
	a, err := New([]string{"a"}, []Row{
		{Labels: []string{"1"}, Value: 10},
		{Labels: []string{"2"}, Value: 20},
	})
	if err != nil {
		t.Fatal(err)
	}
	b, err := New([]string{"b"}, []Row{
		{Labels: []string{"1"}, Value: 1},
		{Labels: []string{"2"}, Value: 2},
	})
	if err != nil {
		t.Fatal(err)
	}

	r, err := a.AlignLevels(b)
	if err != nil {
		t.Error(err)
		return
	}
	if !sameDims(r, "b", "a") {
		t.Error("dims", r.Dims())
		return
	}
	if r.Size() != 4 {
		t.Error("cross join should materialize every combination; size", r.Size())
		return
	}
	wantValue(t, r, 10, "1", "1")
	wantValue(t, r, 10, "2", "1")
	wantValue(t, r, 20, "1", "2")
	wantValue(t, r, 20, "2", "2")
}

func TestAlignLevelsScalar(t *testing.T) {
	s := NewScalar(2)
	q := xy(t)
	r, err := s.AlignLevels(q)
	if err != nil {
		t.Error(err)
		return
	}
	if !sameDims(r, "x", "y") {
		t.Error("dims", r.Dims())
		return
	}
	if r.Size() != 4 {
		t.Error("size", r.Size())
		return
	}
	wantValue(t, r, 2, "b", "1")
}

func TestAlignLevelsReturnsNewInstance(t *testing.T) {
	q, err := New([]string{"x"}, []Row{{Labels: []string{"a"}, Value: 1}})
	if err != nil {
		t.Fatal(err)
	}
	r, err := q.AlignLevels(NewScalar(0))
	if err != nil {
		t.Error(err)
		return
	}
	if r == q {
		t.Error("align must return a new owned instance")
	}
	if !EqualValues(q, r) {
		t.Error("no-op alignment changed data")
	}
}

func TestMulBroadcast(t *testing.T) {
	// Disjoint dimension sets cross-join: {a} x {b} with two labels each
	// yields an arity-2 result with four keys.
	a, _ := New([]string{"a"}, []Row{
		{Labels: []string{"1"}, Value: 10},
		{Labels: []string{"2"}, Value: 20},
	})
	b, _ := New([]string{"b"}, []Row{
		{Labels: []string{"1"}, Value: 3},
		{Labels: []string{"2"}, Value: 4},
	})
	r, err := a.Mul(b)
	if err != nil {
		t.Error(err)
		return
	}
	if !sameDims(r, "a", "b") {
		t.Error("dims", r.Dims())
		return
	}
	if r.Size() != 4 {
		t.Error("size", r.Size())
		return
	}
	wantValue(t, r, 30, "1", "1")
	wantValue(t, r, 40, "1", "2")
	wantValue(t, r, 60, "2", "1")
	wantValue(t, r, 80, "2", "2")
}

func TestMulInnerJoin(t *testing.T) {
	a, _ := New([]string{"x", "y"}, []Row{
		{Labels: []string{"a", "1"}, Value: 10},
		{Labels: []string{"a", "2"}, Value: 20},
	})
	b, _ := New([]string{"y"}, []Row{
		{Labels: []string{"2"}, Value: 100},
	})
	r, err := a.Mul(b)
	if err != nil {
		t.Error(err)
		return
	}
	// Only y=2 matches; y=1 is absent from the result.
	if r.Size() != 1 {
		t.Error("size", r.Size())
		return
	}
	wantValue(t, r, 2000, "a", "2")
}

func TestDiv(t *testing.T) {
	q := xy(t)
	d, _ := New([]string{"x"}, []Row{
		{Labels: []string{"a"}, Value: 10},
		{Labels: []string{"b"}, Value: 10},
	})
	r, err := q.Div(d)
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, r, 2, "a", "2")
	wantValue(t, r, 4, "b", "2")
}

func TestAddOuterFill(t *testing.T) {
	a, _ := New([]string{"x"}, []Row{
		{Labels: []string{"p"}, Value: 1},
		{Labels: []string{"q"}, Value: 2},
	})
	b, _ := New([]string{"x"}, []Row{
		{Labels: []string{"q"}, Value: 10},
		{Labels: []string{"r"}, Value: 20},
	})
	r, err := a.Add(b, 0)
	if err != nil {
		t.Error(err)
		return
	}
	if r.Size() != 3 {
		t.Error("size", r.Size())
		return
	}
	wantValue(t, r, 1, "p")
	wantValue(t, r, 12, "q")
	wantValue(t, r, 20, "r")
}

func TestAddPermutedDims(t *testing.T) {
	a := xy(t)
	b, err := a.Transpose("y", "x")
	if err != nil {
		t.Fatal(err)
	}
	r, err := a.Add(b, 0)
	if err != nil {
		t.Error(err)
		return
	}
	if !sameDims(r, "x", "y") {
		t.Error("dims", r.Dims())
		return
	}
	wantValue(t, r, 40, "a", "2")
}

func TestAddDimsMismatch(t *testing.T) {
	a, _ := New([]string{"x"}, []Row{{Labels: []string{"p"}, Value: 1}})
	b, _ := New([]string{"y"}, []Row{{Labels: []string{"p"}, Value: 1}})
	if _, err := a.Add(b, 0); !errors.Is(err, ErrShape) {
		t.Error("expected ErrShape, got", err)
	}
}

func TestMulScalar(t *testing.T) {
	q := xy(t)
	r, err := q.Mul(NewScalar(0.5))
	if err != nil {
		t.Error(err)
		return
	}
	if !sameDims(r, "x", "y") {
		t.Error("dims", r.Dims())
		return
	}
	wantValue(t, r, 10, "a", "2")
}
