package compute

import (
	"fmt"
	"sort"

	"github.com/LauWien/genno/genno/quantity"
)

// Func is the calling convention for registered operations: positional
// arguments already resolved by the graph engine, plus keyword-style
// parameters taken from configuration.
type Func func(args []any, kwargs map[string]any) (any, error)

var registry = map[string]Func{}

// Register makes an operation resolvable by name. Re-registering a name
// replaces the previous operation, with a warning.
func Register(name string, f Func) {
	if _, has := registry[name]; has {
		logger.Warnf("Override operation %q", name)
	}
	registry[name] = f
}

// Lookup returns the operation registered under name.
func Lookup(name string) (Func, error) {
	f, has := registry[name]
	if !has {
		return nil, fmt.Errorf("%w %q", ErrUnknownOp, name)
	}
	return f, nil
}

// Names lists the registered operation names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("add", func(args []any, _ map[string]any) (any, error) {
		qs, err := quantityArgs("add", args)
		if err != nil {
			return nil, err
		}
		return Add(qs...)
	})
	Register("aggregate", func(args []any, kw map[string]any) (any, error) {
		q, err := oneQuantity("aggregate", args)
		if err != nil {
			return nil, err
		}
		groups, ok := kw["groups"].(map[string]map[string][]string)
		if !ok {
			groups = map[string]map[string][]string{}
			for dim, dimGroups := range toAnyMap(kw["groups"]) {
				groups[dim] = map[string][]string{}
				for group, members := range toAnyMap(dimGroups) {
					groups[dim][group] = toStrings(members)
				}
			}
		}
		return Aggregate(q, groups, toBool(kw["keep"]))
	})
	Register("apply_units", func(args []any, kw map[string]any) (any, error) {
		q, err := oneQuantity("apply_units", args)
		if err != nil {
			return nil, err
		}
		return ApplyUnits(q, toString(kw["units"]))
	})
	Register("broadcast_map", func(args []any, kw map[string]any) (any, error) {
		qs, err := quantityArgs("broadcast_map", args)
		if err != nil {
			return nil, err
		}
		if len(qs) != 2 {
			return nil, fmt.Errorf("broadcast_map: %d quantities, not 2: %w", len(qs), ErrOperand)
		}
		return BroadcastMap(qs[0], qs[1], toStringMap(kw["rename"]), toBool(kw["strict"]))
	})
	Register("combine", func(args []any, kw map[string]any) (any, error) {
		qs, err := quantityArgs("combine", args)
		if err != nil {
			return nil, err
		}
		selects, _ := kw["select"].([]any)
		weights, _ := kw["weights"].([]any)
		inputs := make([]Input, len(qs))
		for i, q := range qs {
			inputs[i] = Input{Quantity: q, Weight: 1}
			if i < len(selects) {
				inputs[i].Select, inputs[i].Pick = splitSelectors(toAnyMap(selects[i]))
			}
			if i < len(weights) {
				if w, ok := toFloat(weights[i]); ok {
					inputs[i].Weight = w
				}
			}
		}
		return Combine(inputs...)
	})
	Register("concat", func(args []any, _ map[string]any) (any, error) {
		// Dimension hints and other stray arguments mixed into the
		// argument list are omitted, not errors.
		var qs []*quantity.Quantity
		for _, a := range args {
			if q, ok := a.(*quantity.Quantity); ok {
				qs = append(qs, q)
			} else {
				logger.Warnf("concat() argument %v is not a quantity; omitted", a)
			}
		}
		return Concat(qs...)
	})
	Register("disaggregate_shares", func(args []any, _ map[string]any) (any, error) {
		qs, err := quantityArgs("disaggregate_shares", args)
		if err != nil {
			return nil, err
		}
		if len(qs) != 2 {
			return nil, fmt.Errorf("disaggregate_shares: %d quantities, not 2: %w", len(qs), ErrOperand)
		}
		return DisaggregateShares(qs[0], qs[1])
	})
	divOp := func(args []any, _ map[string]any) (any, error) {
		qs, err := quantityArgs("div", args)
		if err != nil {
			return nil, err
		}
		if len(qs) != 2 {
			return nil, fmt.Errorf("div: %d quantities, not 2: %w", len(qs), ErrOperand)
		}
		return Div(qs[0], qs[1])
	}
	Register("div", divOp)
	Register("ratio", divOp)
	Register("group_sum", func(args []any, kw map[string]any) (any, error) {
		q, err := oneQuantity("group_sum", args)
		if err != nil {
			return nil, err
		}
		return GroupSum(q, toString(kw["group"]), toString(kw["sum"]))
	})
	Register("interpolate", func(args []any, kw map[string]any) (any, error) {
		q, err := oneQuantity("interpolate", args)
		if err != nil {
			return nil, err
		}
		coords, ok := toFloats(kw["coords"])
		if !ok {
			return nil, fmt.Errorf("interpolate: coords %v are not numeric: %w", kw["coords"], ErrOperand)
		}
		return Interpolate(q, toString(kw["dim"]), coords, toString(kw["method"]))
	})
	Register("load_file", func(args []any, kw map[string]any) (any, error) {
		path := toString(kw["path"])
		if path == "" && len(args) > 0 {
			path = toString(args[0])
		}
		dims := toStringMap(kw["dims"])
		if dims == nil {
			// A plain list of names keeps those columns unrenamed.
			if names := toStrings(kw["dims"]); names != nil {
				dims = map[string]string{}
				for _, n := range names {
					dims[n] = n
				}
			}
		}
		return LoadFile(path, dims, toString(kw["units"]))
	})
	Register("product", func(args []any, _ map[string]any) (any, error) {
		qs, err := quantityArgs("product", args)
		if err != nil {
			return nil, err
		}
		return Product(qs...)
	})
	Register("select", func(args []any, kw map[string]any) (any, error) {
		q, err := oneQuantity("select", args)
		if err != nil {
			return nil, err
		}
		indexers, ok := kw["indexers"].(map[string][]string)
		if !ok {
			indexers = map[string][]string{}
			for dim, v := range toAnyMap(kw["indexers"]) {
				indexers[dim] = toStrings(v)
			}
		}
		return Select(q, indexers, toBool(kw["inverse"]))
	})
	Register("sum", func(args []any, kw map[string]any) (any, error) {
		qs, err := quantityArgs("sum", args)
		if err != nil {
			return nil, err
		}
		var weights *quantity.Quantity
		switch len(qs) {
		case 1:
		case 2:
			weights = qs[1]
		default:
			return nil, fmt.Errorf("sum: %d quantities, not 1 or 2: %w", len(qs), ErrOperand)
		}
		return Sum(qs[0], weights, toStrings(kw["dimensions"])...)
	})
	Register("write_report", func(args []any, kw map[string]any) (any, error) {
		if len(args) == 0 {
			return nil, fmt.Errorf("write_report: nothing to write: %w", ErrOperand)
		}
		path := toString(kw["path"])
		if path == "" && len(args) > 1 {
			path = toString(args[1])
		}
		return nil, WriteReport(args[0], path)
	})
}

// quantityArgs coerces every positional argument to a quantity.
func quantityArgs(op string, args []any) ([]*quantity.Quantity, error) {
	out := make([]*quantity.Quantity, len(args))
	for i, a := range args {
		q, ok := a.(*quantity.Quantity)
		if !ok {
			return nil, fmt.Errorf("%s: argument %d is %T, not a quantity: %w", op, i, a, ErrOperand)
		}
		out[i] = q
	}
	return out, nil
}

func oneQuantity(op string, args []any) (*quantity.Quantity, error) {
	qs, err := quantityArgs(op, args)
	if err != nil {
		return nil, err
	}
	if len(qs) != 1 {
		return nil, fmt.Errorf("%s: %d quantities, not 1: %w", op, len(qs), ErrOperand)
	}
	return qs[0], nil
}

// splitSelectors separates a raw selector mapping into multi-label
// selectors (summed over by Combine) and single-label picks.
func splitSelectors(raw map[string]any) (sel map[string][]string, pick map[string]string) {
	for dim, v := range raw {
		if list, ok := v.([]any); ok {
			if sel == nil {
				sel = map[string][]string{}
			}
			sel[dim] = toStrings(list)
			continue
		}
		if pick == nil {
			pick = map[string]string{}
		}
		pick[dim] = toString(v)
	}
	return sel, pick
}

// The to* helpers coerce decoded YAML values, which arrive as string,
// bool, int, float64, []any and map[string]any.

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func toStrings(v any) []string {
	switch x := v.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), x...)
	case []any:
		out := make([]string, len(x))
		for i, e := range x {
			out[i] = toString(e)
		}
		return out
	default:
		return []string{toString(x)}
	}
}

func toBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

func toFloats(v any) ([]float64, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []float64:
		return append([]float64(nil), x...), true
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	default:
		f, ok := toFloat(x)
		if !ok {
			return nil, false
		}
		return []float64{f}, true
	}
}

func toAnyMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func toStringMap(v any) map[string]string {
	switch x := v.(type) {
	case nil:
		return nil
	case map[string]string:
		return x
	case map[string]any:
		out := make(map[string]string, len(x))
		for k, e := range x {
			out[k] = toString(e)
		}
		return out
	default:
		return nil
	}
}
