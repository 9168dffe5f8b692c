package quantity

import (
	"sort"
	"strconv"
)

// naturalLess orders labels numerically when both parse as numbers, so
// that year- and period-labeled levels pivot in calendar order. Numeric
// labels sort before non-numeric ones; everything else is lexicographic.
func naturalLess(a, b string) bool {
	fa, ea := strconv.ParseFloat(a, 64)
	fb, eb := strconv.ParseFloat(b, 64)
	switch {
	case ea == nil && eb == nil:
		if fa != fb {
			return fa < fb
		}
		return a < b
	case ea == nil:
		return true
	case eb == nil:
		return false
	default:
		return a < b
	}
}

func sortLabels(labels []string) {
	sort.Slice(labels, func(i, j int) bool {
		return naturalLess(labels[i], labels[j])
	})
}

// keyLess compares composite keys position by position in natural order.
func keyLess(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return naturalLess(a[i], b[i])
		}
	}
	return false
}

func sortKeys(keys [][]string) {
	sort.Slice(keys, func(i, j int) bool {
		return keyLess(keys[i], keys[j])
	})
}
