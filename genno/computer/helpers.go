package computer

import (
	"path/filepath"

	"github.com/LauWien/genno/genno/cache"
	"github.com/LauWien/genno/genno/compute"
	"github.com/LauWien/genno/genno/key"
)

// Aggregate adds a task computing named groups of labels along one or
// more dimensions of the quantity at qty. The result is registered under
// qty with tag appended; with sums true, every partial sum of that key
// is added as well. Returns the added keys, the aggregate's own first.
func (c *Computer) Aggregate(qty key.Key, tag string, groups map[string]map[string][]string, keep, sums bool) ([]string, error) {
	task := &Task{
		Op:     "aggregate",
		Inputs: []string{qty.String()},
		Kwargs: map[string]any{"groups": groups, "keep": keep},
	}
	opts := []AddOpt{Strict()}
	if sums {
		opts = append(opts, Sums())
	}
	return c.Add(qty.AddTag(tag).String(), task, opts...)
}

// AggregateSum adds a plain sum over dims under qty with those
// dimensions dropped and tag appended.
func (c *Computer) AggregateSum(qty key.Key, tag string, dims ...string) ([]string, error) {
	task := &Task{
		Op:     "sum",
		Inputs: []string{qty.String()},
		Kwargs: map[string]any{"dimensions": dims},
	}
	return c.Add(qty.Drop(dims...).AddTag(tag).String(), task, Strict())
}

// AddProduct adds a product of the named quantities. The new key takes
// its name and tag from nameOrKey and the union of the input keys'
// dimensions; partial sums of the product are added as well.
func (c *Computer) AddProduct(nameOrKey string, inputs ...string) (key.Key, error) {
	parsed, err := key.Parse(nameOrKey)
	if err != nil {
		return key.Key{}, err
	}
	keys, err := c.InferKeys(inputs)
	if err != nil {
		return key.Key{}, err
	}
	inKeys := make([]string, len(keys))
	for i, k := range keys {
		inKeys[i] = k.String()
	}
	nk := key.Product(parsed.Name(), keys...)
	if parsed.Tag() != "" {
		nk = nk.AddTag(parsed.Tag())
	}
	task := &Task{Op: "product", Inputs: inKeys}
	if _, err := c.Add(nk.String(), task, Strict(), Sums()); err != nil {
		return key.Key{}, err
	}
	return nk, nil
}

// AddFile adds a task loading path with the load_file operation. An
// empty k defaults to "file:" plus the file's base name. When a cache
// store is attached the load resolves through it, keyed by the operation
// name and a hash of the arguments; the "cache_skip" config entry forces
// a reload.
func (c *Computer) AddFile(path, k string, dims map[string]string, units string) (string, error) {
	if k == "" {
		k = "file:" + filepath.Base(path)
	}
	task := &Task{
		Op:      "load_file",
		Compute: c.cachedLoad(path, dims, units),
		Kwargs:  map[string]any{"path": path, "dims": dims, "units": units},
	}
	if _, err := c.Add(k, task, Strict()); err != nil {
		return "", err
	}
	return k, nil
}

func (c *Computer) cachedLoad(path string, dims map[string]string, units string) compute.Func {
	return func(_ []any, _ map[string]any) (any, error) {
		load := func() (any, error) { return compute.LoadFile(path, dims, units) }
		if c.store == nil {
			return load()
		}
		skip, _ := c.Config()["cache_skip"].(bool)
		return cache.Cached(c.store, c.codec, skip, "load_file", load, path, dims, units)
	}
}
