package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/LauWien/genno/genno/compute"
	"github.com/LauWien/genno/genno/computer"
	"github.com/LauWien/genno/genno/quantity"
	"github.com/LauWien/genno/genno/units"
	"github.com/LauWien/genno/genno/util"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
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

func TestConfigureUnits(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yaml",
		"units:\n"+
			"  define: |\n"+
			"    USD_2021 = 1.1 USD\n"+
			"  replace:\n"+
			"    dollars: USD\n")

	if err := Configure(path, nil); err != nil {
		t.Fatal(err)
	}
	if !units.Default().Defined("USD_2021") {
		t.Error("definition was not applied")
	}
	if got := units.Clean("dollars"); got != "USD" {
		t.Error("replacement was not applied:", got)
	}
}

func TestConfigureRenameDims(t *testing.T) {
	path := writeFile(t, t.TempDir(), "renames.yaml",
		"rename_dims:\n"+
			"  year_act: ya\n")

	if err := Configure(path, nil); err != nil {
		t.Fatal(err)
	}
	if got := util.RenamedDim("year_act"); got != "ya" {
		t.Error("rename was not registered:", got)
	}
}

func TestConfigureNonGlobal(t *testing.T) {
	err := Configure("", map[string]any{
		"files": []any{map[string]any{"path": "x.csv"}},
	})
	if !errors.Is(err, ErrNoComputer) {
		t.Error("got", err, "want", ErrNoComputer)
	}

	// Sections handled immediately also need the computer.
	err = Configure("", map[string]any{"default": "d:x"})
	if !errors.Is(err, ErrNoComputer) {
		t.Error("got", err, "want", ErrNoComputer)
	}
}

func TestParseUnknownSection(t *testing.T) {
	c := computer.New()
	if err := Parse(c, map[string]any{"bogus": 42}); err != nil {
		t.Fatal(err)
	}
	if c.Config()["bogus"] != 42 {
		t.Error("unhandled section was not stored")
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.csv", "x,y,value\na,p,1\na,q,2\nb,p,3\nb,q,4\n")
	path := writeFile(t, dir, "config.yaml", `
default: d:x-y

files:
- path: data.csv
  key: d:x-y

alias:
  demand: d:x-y

aggregate:
- _quantities: [d]
  _tag: agg
  _dim: x
  ab: [a, b]

combine:
- key: double:x-y
  inputs:
  - quantity: d
    weight: 2

general:
- comp: product
  key: p
  inputs: [d, w]

report:
- key: all
  members: [d:x-y]
`)

	c := computer.New()
	w, err := quantity.New([]string{"y"}, []quantity.Row{
		{Labels: []string{"p"}, Value: 10},
		{Labels: []string{"q"}, Value: 100},
	})
	if err != nil {
		t.Fatal(err)
	}
	c.Add("w:y", w)

	if err := Parse(c, map[string]any{"path": path}); err != nil {
		t.Fatal(err)
	}

	if c.DefaultKey() != "d:x-y" {
		t.Error("default key not set:", c.DefaultKey())
	}
	got, err := c.GetDefault()
	if err != nil {
		t.Fatal(err)
	}
	d, ok := got.(*quantity.Quantity)
	if !ok {
		t.Fatal("default resolved to", got)
	}
	wantValue(t, d, 2, "a", "q")

	// The alias resolves through its target.
	aliased, err := c.GetQuantity("demand")
	if err != nil {
		t.Error(err)
	} else if !quantity.EqualValues(aliased, d) {
		t.Error("alias resolved to different data")
	}

	// Aggregation groups a and b into ab, keeping the original labels,
	// and registers partial sums.
	agg, err := c.GetQuantity("d:x-y:agg")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, agg, 4, "ab", "p")
	wantValue(t, agg, 1, "a", "p")
	if !c.Has("d:x:agg") {
		t.Error("partial sums of the aggregate are missing")
	}

	double, err := c.GetQuantity("double:x-y")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, double, 8, "b", "q")

	prod, err := c.GetQuantity("p:x-y")
	if err != nil {
		t.Error(err)
		return
	}
	wantValue(t, prod, 10, "a", "p")
	wantValue(t, prod, 200, "a", "q")

	all, err := c.GetQuantity("all")
	if err != nil {
		t.Error(err)
		return
	}
	if !quantity.EqualValues(all, d) {
		t.Error("report concat changed the data")
	}

	// Handled sections are no longer in the stored config; config_dir is.
	if _, ok := c.Config()["files"]; ok {
		t.Error("handled section kept in config")
	}
	if c.Config()["config_dir"] != dir {
		t.Error("config_dir:", c.Config()["config_dir"])
	}
}

func TestParseCacheSection(t *testing.T) {
	c := computer.New()
	defer c.Close()
	dir := t.TempDir()

	err := Parse(c, map[string]any{
		"cache": map[string]any{"backend": "file", "path": dir, "skip": true},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.Config()["cache_skip"] != true {
		t.Error("cache_skip not recorded")
	}
	if c.Config()["cache_path"] != dir {
		t.Error("cache_path not recorded:", c.Config()["cache_path"])
	}
}

func TestParseGeneralUnknownComp(t *testing.T) {
	c := computer.New()
	q, err := quantity.New([]string{"x"}, []quantity.Row{{Labels: []string{"a"}, Value: 1}})
	if err != nil {
		t.Fatal(err)
	}
	c.Add("in:x", q)

	err = Parse(c, map[string]any{
		"general": []any{map[string]any{
			"comp":   "frobnicate",
			"key":    "out:x",
			"inputs": []any{"in"},
		}},
	})
	if !errors.Is(err, compute.ErrUnknownOp) {
		t.Error("got", err, "want", compute.ErrUnknownOp)
	}
}

func TestParseAggregateMalformed(t *testing.T) {
	c := computer.New()
	err := Parse(c, map[string]any{
		"aggregate": []any{map[string]any{"_quantities": []any{"d"}}},
	})
	if !errors.Is(err, ErrSection) {
		t.Error("got", err, "want", ErrSection)
	}
}
