package util

// Dimension-name helpers for raw tabular data.

// renameDims maps source dimension names to preferred names; applied by
// DimsForColumns when extracting dimensions from column headers. Populated
// via configuration ("rename_dims:" section).
var renameDims = map[string]string{}

// nonDimColumns are headers that carry values or units rather than
// dimension labels.
var nonDimColumns = map[string]bool{
	"value": true,
	"lvl":   true,
	"mrg":   true,
	"unit":  true,
}

// RenameDims registers replacement names for source dimensions.
func RenameDims(replacements map[string]string) {
	for old, preferred := range replacements {
		renameDims[old] = preferred
	}
}

// RenamedDim returns the preferred name for dim, or dim itself.
func RenamedDim(dim string) string {
	if preferred, has := renameDims[dim]; has {
		return preferred
	}
	return dim
}

// DimsForColumns returns the dimension names for a set of column headers:
// value and unit columns are removed, and the rename table is applied to
// the remainder. Column order is preserved.
func DimsForColumns(columns []string) []string {
	var dims []string
	for _, c := range columns {
		if nonDimColumns[c] {
			continue
		}
		dims = append(dims, RenamedDim(c))
	}
	return dims
}

// DimColumns returns the positions of the dimension columns, parallel to
// the names from DimsForColumns. Renamed dimensions keep the position of
// their source column.
func DimColumns(columns []string) []int {
	var cols []int
	for i, c := range columns {
		if nonDimColumns[c] {
			continue
		}
		cols = append(cols, i)
	}
	return cols
}
