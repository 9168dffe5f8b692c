package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/LauWien/genno/genno/cache"
	"github.com/LauWien/genno/genno/compute"
	"github.com/LauWien/genno/genno/computer"
	"github.com/LauWien/genno/genno/key"
	"github.com/LauWien/genno/genno/units"
	"github.com/LauWien/genno/genno/util"
)

func init() {
	RegisterHandler("units", Handler{Func: unitsHandler})
	RegisterHandler("rename_dims", Handler{Func: renameDimsHandler})
	RegisterHandler("default", Handler{Func: defaultHandler})
	RegisterHandler("cache", Handler{Func: cacheHandler})
	RegisterHandler("files", Handler{Queued: true, Func: filesHandler})
	RegisterHandler("alias", Handler{Queued: true, Mapping: true, Func: aliasHandler})
	RegisterHandler("aggregate", Handler{Queued: true, Func: aggregateHandler})
	RegisterHandler("combine", Handler{Queued: true, Func: combineHandler})
	RegisterHandler("report", Handler{Queued: true, Func: reportHandler})
	RegisterHandler("general", Handler{Queued: true, Func: generalHandler})
}

// unitsHandler adjusts the global unit registry: a "define" block of
// definitions and a "replace" mapping of spellings applied before
// parsing.
func unitsHandler(_ *computer.Computer, value any) error {
	info := asMap(value)

	if defs := strings.TrimSpace(toString(info["define"])); defs != "" {
		if err := units.Default().DefineBlock(defs); err != nil {
			logger.Warnf("%v", err)
		} else {
			logger.Infof("Apply global unit definitions %s", defs)
		}
	}
	repl := asMap(info["replace"])
	for _, old := range sortedKeys(repl) {
		preferred := toString(repl[old])
		logger.Infof("Replace unit %q with %q", old, preferred)
		units.AddReplacement(old, preferred)
	}
	return nil
}

// renameDimsHandler updates the global dimension rename table. Files
// load lazily, so the renames cover every file in the same
// configuration regardless of section order.
func renameDimsHandler(_ *computer.Computer, value any) error {
	repl := asStringMap(value)
	if len(repl) == 0 {
		return nil
	}
	util.RenameDims(repl)
	logger.Infof("Rename %d dimension(s) on load", len(repl))
	return nil
}

func defaultHandler(c *computer.Computer, value any) error {
	if c == nil {
		return ErrNoComputer
	}
	c.SetDefault(toString(value))
	return nil
}

// cacheHandler opens the cache backend named by the section, resolves a
// relative path against config_dir, and records the "skip" flag as the
// cache_skip config entry.
func cacheHandler(c *computer.Computer, value any) error {
	if c == nil {
		return ErrNoComputer
	}
	info := asMap(value)
	if skip, ok := info["skip"].(bool); ok {
		c.Config()["cache_skip"] = skip
	}
	dir := toString(info["path"])
	if dir == "" {
		return nil
	}
	if !filepath.IsAbs(dir) {
		if base := toString(c.Config()["config_dir"]); base != "" {
			dir = filepath.Join(base, dir)
		}
	}
	c.Config()["cache_path"] = dir
	store, err := cache.Open(toString(info["backend"]), dir)
	if err != nil {
		return err
	}
	codec, err := cache.NewCodec()
	if err != nil {
		store.Close()
		return err
	}
	c.SetCache(store, codec)
	return nil
}

// filesHandler adds one file-loading task. Relative paths resolve
// against the directory the configuration file came from.
func filesHandler(c *computer.Computer, entry any) error {
	info := asMap(entry)
	path := toString(info["path"])
	if path == "" {
		return fmt.Errorf("%w: files entry without a path", ErrSection)
	}
	if !filepath.IsAbs(path) {
		if dir := toString(c.Config()["config_dir"]); dir != "" {
			path = filepath.Join(dir, path)
		}
	}
	_, err := c.AddFile(path, toString(info["key"]), asStringMap(info["dims"]), toString(info["units"]))
	return err
}

func aliasHandler(c *computer.Computer, entry any) error {
	p, ok := entry.(Pair)
	if !ok {
		return fmt.Errorf("%w: alias entry is %T", ErrSection, entry)
	}
	_, err := c.Add(p.Key, toString(p.Value))
	return err
}

// aggregateHandler adds one entry of the "aggregate:" section: partial
// sums across groups of labels within one dimension of each named
// quantity. Besides the reserved "_quantities", "_tag" and "_dim" keys,
// every entry key names a group and lists the labels it sums.
func aggregateHandler(c *computer.Computer, entry any) error {
	info := asMap(entry)
	names := toStrings(info["_quantities"])
	tag := toString(info["_tag"])
	dim := toString(info["_dim"])
	if len(names) == 0 || tag == "" || dim == "" {
		return fmt.Errorf("%w: aggregate entry needs _quantities, _tag and _dim", ErrSection)
	}
	groups := map[string][]string{}
	for k, v := range info {
		if strings.HasPrefix(k, "_") {
			continue
		}
		groups[k] = toStrings(v)
	}

	keys, err := c.InferKeys(names)
	if err != nil {
		return err
	}
	for _, qty := range keys {
		added, err := c.Aggregate(qty, tag, map[string]map[string][]string{dim: groups}, true, true)
		if err != nil {
			return err
		}
		logger.Infof("Add %q + %d partial sums", added[0], len(added)-1)
	}
	return nil
}

// combineHandler adds one entry of the "combine:" section: a weighted
// sum of input quantities. Each input names a quantity, optional
// selectors (lists are summed over after selection) and an optional
// weight, default 1.
func combineHandler(c *computer.Computer, entry any) error {
	info := asMap(entry)
	kk, err := key.Parse(toString(info["key"]))
	if err != nil {
		return err
	}
	inputs, ok := info["inputs"].([]any)
	if !ok || len(inputs) == 0 {
		return fmt.Errorf("%w: combine entry %q has no inputs", ErrSection, kk.String())
	}

	inKeys := make([]string, 0, len(inputs))
	selects := make([]any, 0, len(inputs))
	weights := make([]any, 0, len(inputs))
	for _, raw := range inputs {
		im := asMap(raw)
		selector := asMap(im["select"])
		// The input needs the output's dimensions plus those selected on.
		dims := append(kk.Dims(), sortedKeys(selector)...)
		qk, err := c.InferKey(toString(im["quantity"]), dims...)
		if err != nil {
			return err
		}
		inKeys = append(inKeys, qk.String())
		selects = append(selects, selector)
		w := im["weight"]
		if w == nil {
			w = 1
		}
		weights = append(weights, w)
	}

	task := &computer.Task{
		Op:     "combine",
		Inputs: inKeys,
		Kwargs: map[string]any{"select": selects, "weights": weights},
	}
	added, err := c.Add(kk.String(), task, computer.Strict(), computer.Sums())
	if err != nil {
		return err
	}
	logger.Infof("Add %q + %d partial sums", kk.String(), len(added)-1)
	logger.Debugf("    as combination of %v", inKeys)
	return nil
}

func reportHandler(c *computer.Computer, entry any) error {
	info := asMap(entry)
	k := toString(info["key"])
	members := toStrings(info["members"])
	logger.Infof("Add report %s with %d table(s)", k, len(members))
	_, err := c.Add(k, &computer.Task{Op: "concat", Inputs: members}, computer.Strict())
	return err
}

// generalHandler adds one entry of the "general:" section: any
// registered operation applied to the named inputs. comp "product" goes
// through AddProduct, which infers the output dimensions.
func generalHandler(c *computer.Computer, entry any) error {
	info := asMap(entry)
	comp := toString(info["comp"])
	inputs := toStrings(info["inputs"])

	if comp == "product" {
		nk, err := c.AddProduct(toString(info["key"]), inputs...)
		if err != nil {
			return err
		}
		logger.Infof("Add %q using AddProduct", nk.String())
		return nil
	}

	if _, err := compute.Lookup(comp); err != nil {
		return err
	}
	kk, err := key.Parse(toString(info["key"]))
	if err != nil {
		return err
	}
	keys, err := c.InferKeys(inputs)
	if err != nil {
		return err
	}
	inKeys := make([]string, len(keys))
	for i, k := range keys {
		inKeys[i] = k.String()
	}

	logger.Infof("Add %q using %s(...)", kk.String(), comp)
	task := &computer.Task{Op: comp, Inputs: inKeys, Kwargs: asMap(info["args"])}
	opts := []computer.AddOpt{computer.Strict()}
	sums, _ := info["sums"].(bool)
	if sums {
		opts = append(opts, computer.Sums())
	}
	added, err := c.Add(kk.String(), task, opts...)
	if err != nil {
		return err
	}
	if sums {
		logger.Infof("    + %d partial sums", len(added)-1)
	}
	return nil
}
