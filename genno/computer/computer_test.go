package computer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/LauWien/genno/genno/cache"
	"github.com/LauWien/genno/genno/key"
	"github.com/LauWien/genno/genno/quantity"
	"github.com/LauWien/genno/genno/testutil"
)

func mkq(t *testing.T, dims []string, rows []quantity.Row, opts ...quantity.Option) *quantity.Quantity {
	t.Helper()
	q, err := quantity.New(dims, rows, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return q
}

func wantValue(t *testing.T, q *quantity.Quantity, want float64, labels ...string) {
	t.Helper()
	got, ok := q.Value(labels...)
	if !ok {
		t.Error("no value at", labels)
		return
	}
	if got != want {
		t.Error("at", labels, "got", got, "want", want)
	}
}

func TestAddAndGetLiteral(t *testing.T) {
	c := New()
	q := mkq(t, []string{"x"}, []quantity.Row{{Labels: []string{"a"}, Value: 1}})
	if _, err := c.Add("d:x", q); err != nil {
		t.Fatal(err)
	}

	v, err := c.Get("d:x")
	if err != nil {
		t.Error(err)
		return
	}
	if v != any(q) {
		t.Error("literal did not resolve to itself")
	}

	if _, err := c.Get("absent:x"); !errors.Is(err, ErrMissing) {
		t.Error("got", err, "want", ErrMissing)
	}
}

func TestAddStrict(t *testing.T) {
	c := New()
	if _, err := c.Add("d:x", 1, Strict()); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Add("d:x", 2, Strict()); !errors.Is(err, ErrKeyExists) {
		t.Error("got", err, "want", ErrKeyExists)
	}
	// Non-strict adds replace.
	if _, err := c.Add("d:x", 3); err != nil {
		t.Error(err)
	}
	if v, _ := c.Get("d:x"); v != 3 {
		t.Error("got", v, "want 3")
	}
}

func TestGetTask(t *testing.T) {
	c := New()
	a := mkq(t, []string{"x"}, []quantity.Row{
		{Labels: []string{"x1"}, Value: 1},
		{Labels: []string{"x2"}, Value: 2},
	})
	b := mkq(t, []string{"x"}, []quantity.Row{
		{Labels: []string{"x1"}, Value: 10},
		{Labels: []string{"x2"}, Value: 20},
	})
	c.Add("a:x", a)
	c.Add("b:x", b)
	c.Add("total:x", &Task{Op: "add", Inputs: []string{"a:x", "b:x"}})

	got, err := c.GetQuantity("total:x")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, got, 11, "x1")
	wantValue(t, got, 22, "x2")
}

func TestGetAlias(t *testing.T) {
	c := New()
	q := mkq(t, []string{"x"}, []quantity.Row{{Labels: []string{"a"}, Value: 5}})
	c.Add("d:x", q)
	c.Add("alias:x", "d:x")
	c.Add("note", "not a key")

	v, err := c.Get("alias:x")
	if err != nil {
		t.Error(err)
		return
	}
	if v != any(q) {
		t.Error("alias did not resolve through its target")
	}

	// A string naming nothing in the graph stays a string.
	v, err = c.Get("note")
	if err != nil || v != "not a key" {
		t.Error("got", v, err)
	}
}

func TestGetCycle(t *testing.T) {
	c := New()
	c.Add("a:x", &Task{Op: "add", Inputs: []string{"b:x"}})
	c.Add("b:x", &Task{Op: "add", Inputs: []string{"a:x"}})
	if _, err := c.Get("a:x"); !errors.Is(err, ErrCycle) {
		t.Error("got", err, "want", ErrCycle)
	}

	c.Add("self", "self")
	if _, err := c.Get("self"); !errors.Is(err, ErrCycle) {
		t.Error("got", err, "want", ErrCycle)
	}
}

func TestGetMemoized(t *testing.T) {
	c := New()
	calls := 0
	c.Add("base:x", &Task{Compute: func(_ []any, _ map[string]any) (any, error) {
		calls++
		return quantity.New([]string{"x"}, []quantity.Row{{Labels: []string{"x1"}, Value: 7}})
	}})
	c.Add("twice:x", &Task{Op: "add", Inputs: []string{"base:x", "base:x"}})

	got, err := c.GetQuantity("twice:x")
	if err != nil {
		t.Error(err)
		return
	}
	if calls != 1 {
		t.Error("shared input ran", calls, "times")
	}
	wantValue(t, got, 14, "x1")
}

func TestAddSums(t *testing.T) {
	c := New()
	q := mkq(t, []string{"a", "b"}, []quantity.Row{
		{Labels: []string{"a1", "b1"}, Value: 1},
		{Labels: []string{"a1", "b2"}, Value: 2},
		{Labels: []string{"a2", "b1"}, Value: 3},
	})
	added, err := c.Add("x:a-b", q, Sums())
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 4 {
		t.Error("added", added)
	}
	for _, k := range []string{"x:a-b", "x:a", "x:b", "x"} {
		if !c.Has(k) {
			t.Error("missing partial sum", k)
		}
	}

	got, err := c.GetQuantity("x:a")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, got, 3, "a1")
	wantValue(t, got, 3, "a2")
}

func TestAddQueue(t *testing.T) {
	c := New()
	base := mkq(t, []string{"x"}, []quantity.Row{{Labels: []string{"a"}, Value: 1}})

	// The first item needs a key only the second item adds.
	first := func(c *Computer) error {
		k, err := c.FullKey("base")
		if err != nil {
			return err
		}
		_, err = c.Add("derived:x", k.String(), Strict())
		return err
	}
	second := func(c *Computer) error {
		_, err := c.Add("base:x", base, Strict())
		return err
	}

	if err := c.AddQueue([]QueueItem{first, second}, 2, FailRaise); err != nil {
		t.Fatal(err)
	}
	v, err := c.Get("derived:x")
	if err != nil || v != any(base) {
		t.Error("got", v, err)
	}
}

func TestAddQueueFail(t *testing.T) {
	c := New()
	item := func(c *Computer) error {
		_, err := c.FullKey("never")
		return err
	}
	if err := c.AddQueue([]QueueItem{item}, 2, FailRaise); !errors.Is(err, ErrMissing) {
		t.Error("got", err, "want", ErrMissing)
	}
	if err := c.AddQueue([]QueueItem{item}, 2, FailWarn); err != nil {
		t.Error("warn action still returned", err)
	}
}

func TestFullKey(t *testing.T) {
	c := New()
	c.Add("d:x", 1)
	c.Add("d:x-y", 2)
	c.Add("e:x:t", 3)

	k, err := c.FullKey("d")
	if err != nil || k.String() != "d:x-y" {
		t.Error("got", k, err)
	}
	k, err = c.FullKey("e::t")
	if err != nil || k.String() != "e:x:t" {
		t.Error("got", k, err)
	}
	if _, err := c.FullKey("zzz"); !errors.Is(err, ErrMissing) {
		t.Error("got", err, "want", ErrMissing)
	}
}

func TestInferKey(t *testing.T) {
	c := New()
	c.Add("d:x-y-z", 1)

	k, err := c.InferKey("d")
	if err != nil || k.String() != "d:x-y-z" {
		t.Error("got", k, err)
	}
	k, err = c.InferKey("d", "x", "z")
	if err != nil || k.String() != "d:x-z" {
		t.Error("got", k, err)
	}
	// A key with explicit dimensions is taken as given.
	k, err = c.InferKey("d:y")
	if err != nil || k.String() != "d:y" {
		t.Error("got", k, err)
	}
}

func TestAggregate(t *testing.T) {
	c := New()
	q := mkq(t, []string{"x"}, []quantity.Row{
		{Labels: []string{"a"}, Value: 1},
		{Labels: []string{"b"}, Value: 2},
		{Labels: []string{"c"}, Value: 4},
	})
	c.Add("t:x", q)

	added, err := c.Aggregate(key.MustParse("t:x"), "agg",
		map[string]map[string][]string{"x": {"ab": {"a", "b"}}}, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(added) != 1 || added[0] != "t:x:agg" {
		t.Error("added", added)
	}

	got, err := c.GetQuantity("t:x:agg")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, got, 3, "ab")
}

func TestAddProduct(t *testing.T) {
	c := New()
	c.Add("p1:x", mkq(t, []string{"x"}, []quantity.Row{
		{Labels: []string{"x1"}, Value: 2},
		{Labels: []string{"x2"}, Value: 3},
	}))
	c.Add("p2:y", mkq(t, []string{"y"}, []quantity.Row{
		{Labels: []string{"y1"}, Value: 10},
	}))

	nk, err := c.AddProduct("prod", "p1", "p2")
	if err != nil {
		t.Fatal(err)
	}
	if nk.String() != "prod:x-y" {
		t.Error("got key", nk)
	}
	for _, k := range []string{"prod:x-y", "prod:x", "prod:y", "prod"} {
		if !c.Has(k) {
			t.Error("missing", k)
		}
	}

	got, err := c.GetQuantity("prod:x-y")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, got, 20, "x1", "y1")
	wantValue(t, got, 30, "x2", "y1")
}

func TestAddFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("x,y,value\na,p,1\na,q,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := New()
	k, err := c.AddFile(path, "", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	if k != "file:data.csv" {
		t.Error("got key", k)
	}

	got, err := c.GetQuantity(k)
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, got, 2, "a", "q")
}

func TestAddFileCached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(path, []byte("x,value\na,1\nb,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	codec, err := cache.NewCodec()
	if err != nil {
		t.Fatal(err)
	}

	c := New()
	c.SetCache(store, codec)
	defer c.Close()

	k, err := c.AddFile(path, "input:x", nil, "")
	if err != nil {
		t.Fatal(err)
	}
	first, err := c.GetQuantity(k)
	if err != nil {
		t.Fatal(err)
	}

	// The source file is gone; the second resolution must come from the
	// cache.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	second, err := c.GetQuantity(k)
	if err != nil {
		t.Error(err)
		return
	}
	if !quantity.EqualValues(first, second) {
		t.Error("cached value differs from the loaded one")
	}

	// cache_skip forces a reload, which now fails.
	c.Config()["cache_skip"] = true
	if _, err := c.GetQuantity(k); err == nil {
		t.Error("expected a reload failure with cache_skip set")
	}
}

func TestDescribe(t *testing.T) {
	c := New()
	q := mkq(t, []string{"x", "y"}, []quantity.Row{
		{Labels: []string{"x1", "y1"}, Value: 1},
	}, quantity.WithName("d"))
	c.Add("d:x-y", q)
	c.Add("total:x", &Task{
		Op:     "sum",
		Inputs: []string{"d:x-y"},
		Kwargs: map[string]any{"dimensions": []string{"y"}},
	})

	got, err := c.Describe("total:x")
	if err != nil {
		t.Fatal(err)
	}
	want := "'total:x':\n" +
		"- sum(dimensions=[y])\n" +
		"- 'd:x-y':\n" +
		"  - <quantity \"d\" [x y]>\n"
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}

	if _, err := c.Describe("absent"); !errors.Is(err, ErrMissing) {
		t.Error("got", err, "want", ErrMissing)
	}
}

func TestDescribeShared(t *testing.T) {
	c := New()
	c.Add("d:x", 1)
	c.Add("twice:x", &Task{Op: "add", Inputs: []string{"d:x", "d:x"}})

	got, err := c.Describe("twice:x")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "- 'd:x' (above)") {
		t.Errorf("no elision marker in:\n%s", got)
	}
}

func TestGetDefault(t *testing.T) {
	c := New()
	if _, err := c.GetDefault(); !errors.Is(err, ErrNoDefault) {
		t.Error("got", err, "want", ErrNoDefault)
	}
	c.Add("d:x", 9)
	c.SetDefault("d:x")
	if c.DefaultKey() != "d:x" {
		t.Error("default key not recorded")
	}
	v, err := c.GetDefault()
	if err != nil || v != 9 {
		t.Error("got", v, err)
	}
}

func TestGetQuantityType(t *testing.T) {
	c := New()
	c.Add("s", "hello")
	if _, err := c.GetQuantity("s"); !errors.Is(err, ErrType) {
		t.Error("got", err, "want", ErrType)
	}
}

func TestAddSumsRandom(t *testing.T) {
	c := New()
	q := testutil.RandomQty([]testutil.Dim{{Name: "x", Len: 4}, {Name: "y", Len: 3}})
	if _, err := c.Add("d:x-y", q, Sums()); err != nil {
		t.Fatal(err)
	}

	var total float64
	for _, v := range q.Values() {
		total += v
	}
	scalar, err := c.GetQuantity("d")
	if err != nil {
		t.Fatal(err)
	}
	got, err := scalar.Item()
	if err != nil {
		t.Fatal(err)
	}
	if diff := got - total; diff > 1e-9 || diff < -1e-9 {
		t.Error("total", got, "want", total)
	}

	byX, err := c.GetQuantity("d:x")
	if err != nil {
		t.Fatal(err)
	}
	want, err := q.Sum("y")
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertQtyAllClose(t, want, byX, 1e-12)
}
