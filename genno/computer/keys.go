package computer

import (
	"fmt"

	"github.com/LauWien/genno/genno/key"
)

// FullKey returns the graph key with the given name and tag carrying the
// most dimensions, resolving a bare quantity name to its
// full-dimensionality key. Ties go to the first key in sorted order.
func (c *Computer) FullKey(nameOrKey string) (key.Key, error) {
	want, err := key.Parse(nameOrKey)
	if err != nil {
		return key.Key{}, err
	}
	var best key.Key
	found := false
	for _, s := range c.Keys() {
		k, err := key.Parse(s)
		if err != nil {
			// Graph keys outside the grammar cannot be referenced by name.
			continue
		}
		if k.Name() != want.Name() || k.Tag() != want.Tag() {
			continue
		}
		if !found || len(k.Dims()) > len(best.Dims()) {
			best, found = k, true
		}
	}
	if !found {
		return key.Key{}, fmt.Errorf("%w %q", ErrMissing, nameOrKey)
	}
	return best, nil
}

// InferKey expands nameOrKey to a usable graph key. A key that already
// carries dimensions is returned as parsed; a bare name resolves through
// FullKey. With dims given, the result is restricted to those
// dimensions: the key of the partial sum over all others.
func (c *Computer) InferKey(nameOrKey string, dims ...string) (key.Key, error) {
	k, err := key.Parse(nameOrKey)
	if err != nil {
		return key.Key{}, err
	}
	if len(k.Dims()) == 0 {
		k, err = c.FullKey(nameOrKey)
		if err != nil {
			return key.Key{}, err
		}
	}
	if len(dims) == 0 {
		return k, nil
	}
	keep := map[string]bool{}
	for _, d := range dims {
		keep[d] = true
	}
	var drop []string
	for _, d := range k.Dims() {
		if !keep[d] {
			drop = append(drop, d)
		}
	}
	return k.Drop(drop...), nil
}

// InferKeys is InferKey applied to several names.
func (c *Computer) InferKeys(namesOrKeys []string, dims ...string) ([]key.Key, error) {
	out := make([]key.Key, len(namesOrKeys))
	for i, s := range namesOrKeys {
		k, err := c.InferKey(s, dims...)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}
