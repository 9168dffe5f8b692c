package util

import "testing"

func TestDimsForColumns(t *testing.T) {
	cols := []string{"a", "value", "b", "unit", "lvl", "mrg", "c"}
	dims := DimsForColumns(cols)
	if len(dims) != 3 || dims[0] != "a" || dims[1] != "b" || dims[2] != "c" {
		t.Error("wrong dims", dims)
		return
	}
	idx := DimColumns(cols)
	if len(idx) != 3 || idx[0] != 0 || idx[1] != 2 || idx[2] != 6 {
		t.Error("wrong columns", idx)
	}
}

func TestRenameDims(t *testing.T) {
	if got := RenamedDim("node_loc"); got != "node_loc" {
		t.Error("unexpected rename", got)
		return
	}
	RenameDims(map[string]string{"node_loc": "n"})
	defer delete(renameDims, "node_loc")

	if got := RenamedDim("node_loc"); got != "n" {
		t.Error("rename not applied", got)
		return
	}
	dims := DimsForColumns([]string{"node_loc", "value"})
	if len(dims) != 1 || dims[0] != "n" {
		t.Error("rename not applied to columns", dims)
		return
	}
	// The renamed dimension keeps the position of its source column.
	idx := DimColumns([]string{"node_loc", "value"})
	if len(idx) != 1 || idx[0] != 0 {
		t.Error("wrong columns", idx)
	}
}
