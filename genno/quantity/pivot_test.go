package quantity

import (
	"errors"
	"math"
	"testing"
)

func TestShiftDropsLeadingEdge(t *testing.T) {
	q := xy(t)
	r, err := q.Shift("y", 1, math.NaN())
	if err != nil {
		t.Error(err)
		return
	}
	// Each x group loses its first y position and its last value.
	if r.Size() != 2 {
		t.Error("size", r.Size())
		return
	}
	wantValue(t, r, 10, "a", "2")
	wantValue(t, r, 30, "b", "2")
	if _, has := r.Value("a", "1"); has {
		t.Error("vacated position should be missing")
	}
}

func TestShiftFillValue(t *testing.T) {
	q := xy(t)
	r, err := q.Shift("y", 1, 0)
	if err != nil {
		t.Error(err)
		return
	}
	if r.Size() != 4 {
		t.Error("size", r.Size())
		return
	}
	wantValue(t, r, 0, "a", "1")
	wantValue(t, r, 10, "a", "2")
}

func TestShiftNegative(t *testing.T) {
	q := xy(t)
	r, err := q.Shift("y", -1, math.NaN())
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, r, 20, "a", "1")
	if _, has := r.Value("a", "2"); has {
		t.Error("trailing position should be vacated on negative shift")
	}
}

func TestShiftMissingDim(t *testing.T) {
	if _, err := xy(t).Shift("z", 1, 0); !errors.Is(err, ErrDimNotFound) {
		t.Error("expected ErrDimNotFound, got", err)
	}
}

// fillFixture spans years 2010..2040; the c row exists so that 2030 is a
// column of the pivot even though a and b have no value there.
func fillFixture(t *testing.T) *Quantity {
	t.Helper()
	q, err := New([]string{"x", "y"}, []Row{
		{Labels: []string{"a", "2010"}, Value: 1},
		{Labels: []string{"a", "2040"}, Value: 4},
		{Labels: []string{"b", "2020"}, Value: 2},
		{Labels: []string{"c", "2030"}, Value: 3},
	})
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func TestFfill(t *testing.T) {
	q := fillFixture(t)
	r, err := q.Ffill("y", 0)
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, r, 1, "a", "2020")
	wantValue(t, r, 1, "a", "2030")
	wantValue(t, r, 4, "a", "2040")
	// Group b has nothing before 2020 to fill from.
	if _, has := r.Value("b", "2010"); has {
		t.Error("nothing to forward-fill from before the first value")
	}
	wantValue(t, r, 2, "b", "2040")
}

func TestFfillLimit(t *testing.T) {
	q := fillFixture(t)
	r, err := q.Ffill("y", 1)
	if err != nil {
		t.Error(err)
		return
	}
	// Only one missing position after 2010 may be filled.
	wantValue(t, r, 1, "a", "2020")
	if _, has := r.Value("a", "2030"); has {
		t.Error("limit should stop the fill run")
	}
}

func TestBfill(t *testing.T) {
	q := fillFixture(t)
	r, err := q.Bfill("y", 0)
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, r, 4, "a", "2030")
	wantValue(t, r, 2, "b", "2010")
	if _, has := r.Value("b", "2030"); has {
		t.Error("nothing to backward-fill from after the last value")
	}
}

func TestCumProd(t *testing.T) {
	q, err := New([]string{"x", "y"}, []Row{
		{Labels: []string{"a", "1"}, Value: 2},
		{Labels: []string{"a", "3"}, Value: 4},
		{Labels: []string{"b", "2"}, Value: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := q.CumProd("y")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, r, 2, "a", "1")
	wantValue(t, r, 8, "a", "3")
	wantValue(t, r, 5, "b", "2")
	// Missing positions stay missing.
	if _, has := r.Value("a", "2"); has {
		t.Error("missing cell should stay missing through cumprod")
	}
}

func TestPivotDuplicateKeys(t *testing.T) {
	q, err := New([]string{"x", "y"}, []Row{
		{Labels: []string{"a", "1"}, Value: 1},
		{Labels: []string{"a", "1"}, Value: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Shift("y", 1, 0); !errors.Is(err, ErrShape) {
		t.Error("expected ErrShape for duplicate keys, got", err)
	}
}

func TestPivotAttrsAndName(t *testing.T) {
	q := xy(t)
	q.Attrs().Set("note", "kept")
	r, err := q.Shift("y", 1, 0)
	if err != nil {
		t.Error(err)
		return
	}
	if v, _ := r.Attrs().Get("note"); v != "kept" {
		t.Error("attrs should be re-attached after the pivot round trip")
	}
	if r.Name() != "" {
		t.Error("the name does not survive the pivot round trip; got", r.Name())
	}
}

func TestShiftOneDimensional(t *testing.T) {
	q, err := New([]string{"y"}, []Row{
		{Labels: []string{"2010"}, Value: 1},
		{Labels: []string{"2020"}, Value: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	r, err := q.Shift("y", 1, math.NaN())
	if err != nil {
		t.Error(err)
		return
	}
	if r.Size() != 1 {
		t.Error("size", r.Size())
		return
	}
	wantValue(t, r, 1, "2020")
}
