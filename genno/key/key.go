// Package key implements the structured identifiers used for graph
// nodes: a name, an ordered list of dimensions, and an optional tag,
// rendered as "name:dim1-dim2:tag".
//
// Two keys with the same name and tag refer to the same data whatever
// the dimension order, so Equal compares dimensions as a set.
package key

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/LauWien/genno/internal"
)

var (
	// ErrParse is returned for strings that do not match the key grammar.
	ErrParse = errors.New("invalid key")
)

// Key identifies a quantity in a computation graph.
type Key struct {
	name string
	dims []string
	tag  string
}

// New builds a key from parts. The parts are trusted; use Parse to
// validate external input.
func New(name string, dims []string, tag string) Key {
	return Key{name: name, dims: append([]string(nil), dims...), tag: tag}
}

// Parse interprets a string in the form "name", "name:dim1-dim2",
// "name:dim1-dim2:tag" or "name::tag".
func Parse(s string) (Key, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return Key{}, fmt.Errorf("%w %q: too many ':' separators", ErrParse, s)
	}
	k := Key{name: parts[0]}
	if !internal.IsValidNamePart(k.name) {
		return Key{}, fmt.Errorf("%w %q: bad name %q", ErrParse, s, k.name)
	}
	if len(parts) >= 2 && parts[1] != "" {
		for _, d := range strings.Split(parts[1], "-") {
			if !internal.IsValidNamePart(d) {
				return Key{}, fmt.Errorf("%w %q: bad dimension %q", ErrParse, s, d)
			}
			k.dims = append(k.dims, d)
		}
	}
	if len(parts) == 3 {
		k.tag = parts[2]
		if !internal.IsValidNamePart(k.tag) {
			return Key{}, fmt.Errorf("%w %q: bad tag %q", ErrParse, s, k.tag)
		}
	}
	return k, nil
}

// MustParse is Parse, panicking on error; for fixed keys in tests and
// configuration defaults.
func MustParse(s string) Key {
	k, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return k
}

// Name returns the key's name part.
func (k Key) Name() string { return k.name }

// Tag returns the key's tag part, or "".
func (k Key) Tag() string { return k.tag }

// Dims returns a copy of the key's dimensions, in order.
func (k Key) Dims() []string {
	return append([]string(nil), k.dims...)
}

// String renders the key in "name:dim1-dim2:tag" form, omitting empty
// trailing parts except when a tag follows empty dimensions.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.name)
	if len(k.dims) > 0 || k.tag != "" {
		b.WriteByte(':')
		b.WriteString(strings.Join(k.dims, "-"))
	}
	if k.tag != "" {
		b.WriteByte(':')
		b.WriteString(k.tag)
	}
	return b.String()
}

// Sorted returns the key with its dimensions in sorted order.
func (k Key) Sorted() Key {
	dims := k.Dims()
	sort.Strings(dims)
	return Key{name: k.name, dims: dims, tag: k.tag}
}

// Equal reports whether two keys name the same data: equal name and tag,
// and the same dimensions regardless of order.
func (k Key) Equal(o Key) bool {
	if k.name != o.name || k.tag != o.tag || len(k.dims) != len(o.dims) {
		return false
	}
	a, b := k.Sorted(), o.Sorted()
	for i := range a.dims {
		if a.dims[i] != b.dims[i] {
			return false
		}
	}
	return true
}

// AddTag returns the key with t appended to any existing tag using "+".
func (k Key) AddTag(t string) Key {
	tag := k.tag
	if tag != "" && t != "" {
		tag = tag + "+" + t
	} else if t != "" {
		tag = t
	}
	return Key{name: k.name, dims: k.Dims(), tag: tag}
}

// Drop returns the key without the named dimensions. Dimensions not
// present are ignored.
func (k Key) Drop(dims ...string) Key {
	drop := map[string]bool{}
	for _, d := range dims {
		drop[d] = true
	}
	var kept []string
	for _, d := range k.dims {
		if !drop[d] {
			kept = append(kept, d)
		}
	}
	return Key{name: k.name, dims: kept, tag: k.tag}
}

// Append returns the key with additional dimensions at the end.
func (k Key) Append(dims ...string) Key {
	return Key{name: k.name, dims: append(k.Dims(), dims...), tag: k.tag}
}

// Rename returns the key with a different name part.
func (k Key) Rename(name string) Key {
	return Key{name: name, dims: k.Dims(), tag: k.tag}
}

// Product returns a new key with the given name and the union of the
// dimensions of keys, in order of first appearance.
func Product(name string, keys ...Key) Key {
	var dims []string
	seen := map[string]bool{}
	for _, k := range keys {
		for _, d := range k.dims {
			if !seen[d] {
				seen[d] = true
				dims = append(dims, d)
			}
		}
	}
	return Key{name: name, dims: dims}
}

// Sum describes one partial sum of a key: the resulting key and the
// dimensions summed over to produce it.
type Sum struct {
	Key  Key
	Over []string
}

// IterSums lists every strict-subset partial sum of k: for n dimensions,
// 2**n - 1 entries, from the full sum (no dimensions kept) up to sums
// over a single dimension. The full set of dimensions, summing over
// nothing, is excluded.
func (k Key) IterSums() []Sum {
	n := len(k.dims)
	if n == 0 {
		return nil
	}
	var out []Sum
	for mask := 0; mask < (1<<n)-1; mask++ {
		var kept, over []string
		for i, d := range k.dims {
			// High bit corresponds to the first dimension.
			if mask&(1<<(n-1-i)) != 0 {
				kept = append(kept, d)
			} else {
				over = append(over, d)
			}
		}
		out = append(out, Sum{
			Key:  Key{name: k.name, dims: kept, tag: k.tag},
			Over: over,
		})
	}
	return out
}
