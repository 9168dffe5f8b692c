// Package computer implements the task graph that drives quantity
// pipelines. A graph maps string keys to literal values or to tasks;
// resolving a key evaluates its task after resolving the tasks it names
// as inputs. Keys follow the "name:dim1-dim2:tag" grammar of the key
// package, but the graph itself treats them as opaque strings.
package computer

import (
	"errors"
	"fmt"
	"sort"

	"github.com/LauWien/genno/genno/cache"
	"github.com/LauWien/genno/genno/compute"
	"github.com/LauWien/genno/genno/key"
	"github.com/LauWien/genno/genno/quantity"
)

var (
	// ErrKeyExists is returned by strict adds for keys already present.
	ErrKeyExists = errors.New("key already exists")
	// ErrMissing is returned when a key names no graph node.
	ErrMissing = errors.New("missing key")
	// ErrCycle means resolution revisited a key already being resolved.
	ErrCycle = errors.New("cyclic dependency")
	// ErrNoDefault is returned by GetDefault with no default key set.
	ErrNoDefault = errors.New("no default key set")
	// ErrType means a resolved value had an unexpected type.
	ErrType = errors.New("unexpected result type")
)

// A Task is one graph node: an operation applied to the resolved values
// of the input keys, with fixed keyword arguments. Op names a registered
// operation; Compute, when set, is called instead and Op only labels the
// task in descriptions.
type Task struct {
	Op      string
	Compute compute.Func
	Inputs  []string
	Kwargs  map[string]any
}

// Computer holds a task graph and resolves keys against it.
// It is not safe for concurrent use; resolution is depth-first and
// single-threaded, and each task runs at most once per Get call.
type Computer struct {
	graph      map[string]any
	defaultKey string
	store      cache.Store
	codec      *cache.Codec
}

// New returns an empty computer with a fresh configuration mapping.
func New() *Computer {
	return &Computer{graph: map[string]any{"config": map[string]any{}}}
}

// Config returns the reserved configuration mapping, creating it when
// absent. Callers mutate the returned map in place.
func (c *Computer) Config() map[string]any {
	m, ok := c.graph["config"].(map[string]any)
	if !ok {
		m = map[string]any{}
		c.graph["config"] = m
	}
	return m
}

// SetCache attaches a store and codec used by file-loading tasks. The
// computer takes ownership of both; Close releases them.
func (c *Computer) SetCache(store cache.Store, codec *cache.Codec) {
	c.store, c.codec = store, codec
}

// Close releases the cache resources, if any are attached.
func (c *Computer) Close() error {
	var err error
	if c.store != nil {
		err = c.store.Close()
		c.store = nil
	}
	if c.codec != nil {
		c.codec.Close()
		c.codec = nil
	}
	return err
}

// Has reports whether k names a graph node.
func (c *Computer) Has(k string) bool {
	_, ok := c.graph[k]
	return ok
}

// Keys returns all graph keys in sorted order.
func (c *Computer) Keys() []string {
	keys := make([]string, 0, len(c.graph))
	for k := range c.graph {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetDefault records the key GetDefault resolves.
func (c *Computer) SetDefault(k string) {
	c.defaultKey = k
}

// DefaultKey returns the recorded default key, or "".
func (c *Computer) DefaultKey() string {
	return c.defaultKey
}

// AddOpt adjusts one Add call.
type AddOpt func(*addOptions)

type addOptions struct {
	strict bool
	sums   bool
}

// Strict makes Add fail instead of overwriting an existing key.
func Strict() AddOpt {
	return func(o *addOptions) { o.strict = true }
}

// Sums makes Add also register every partial sum of the added key: one
// "sum" task per strict subset of its dimensions.
func Sums() AddOpt {
	return func(o *addOptions) { o.sums = true }
}

// Add registers value under k and returns the keys added. The value may
// be a *Task, a literal (quantity, number, mapping, ...), or a string
// naming another key, which makes k an alias for it.
func (c *Computer) Add(k string, value any, opts ...AddOpt) ([]string, error) {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.strict {
		if _, exists := c.graph[k]; exists {
			return nil, fmt.Errorf("%w: %q", ErrKeyExists, k)
		}
	}
	c.graph[k] = value
	added := []string{k}
	if !o.sums {
		return added, nil
	}

	kk, err := key.Parse(k)
	if err != nil {
		return nil, fmt.Errorf("cannot add sums: %w", err)
	}
	for _, s := range kk.IterSums() {
		sumKey := s.Key.String()
		if _, exists := c.graph[sumKey]; exists && o.strict {
			return nil, fmt.Errorf("%w: %q", ErrKeyExists, sumKey)
		}
		c.graph[sumKey] = &Task{
			Op:     "sum",
			Inputs: []string{k},
			Kwargs: map[string]any{"dimensions": s.Over},
		}
		added = append(added, sumKey)
	}
	return added, nil
}

// A QueueItem is one deferred graph addition, usually built from one
// configuration entry. Items may fail because they reference keys a
// later item adds; AddQueue retries them on following rounds.
type QueueItem func(c *Computer) error

// Fail actions for AddQueue.
const (
	FailRaise = "raise"
	FailWarn  = "warn"
)

// AddQueue runs every item, requeueing failures for up to maxTries
// rounds. Items still failing afterwards are handled per fail: FailRaise
// returns the joined errors, FailWarn logs each one and continues.
func (c *Computer) AddQueue(queue []QueueItem, maxTries int, fail string) error {
	if maxTries < 1 {
		maxTries = 1
	}
	pending := queue
	var errs []error
	for try := 1; try <= maxTries && len(pending) > 0; try++ {
		var failed []QueueItem
		errs = errs[:0]
		for _, item := range pending {
			if err := item(c); err != nil {
				failed = append(failed, item)
				errs = append(errs, err)
			}
		}
		if len(failed) > 0 && try < maxTries {
			logger.Debugf("Retrying %d queue item(s)", len(failed))
		}
		pending = failed
	}
	switch {
	case len(pending) == 0:
		return nil
	case fail == FailWarn:
		for _, err := range errs {
			logger.Warnf("Discarding failed queue item: %v", err)
		}
		return nil
	}
	return errors.Join(errs...)
}

// Get resolves k: literals are returned as stored, tasks are evaluated
// after their inputs, and strings naming other keys resolve through
// them. Every task runs at most once per call; a repeated input reuses
// the first result.
func (c *Computer) Get(k string) (any, error) {
	return c.resolve(k, map[string]any{}, map[string]bool{})
}

// GetDefault resolves the default key.
func (c *Computer) GetDefault() (any, error) {
	if c.defaultKey == "" {
		return nil, ErrNoDefault
	}
	return c.Get(c.defaultKey)
}

// GetQuantity is Get for keys that must resolve to a quantity.
func (c *Computer) GetQuantity(k string) (*quantity.Quantity, error) {
	v, err := c.Get(k)
	if err != nil {
		return nil, err
	}
	q, ok := v.(*quantity.Quantity)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, not a quantity", ErrType, k, v)
	}
	return q, nil
}

func (c *Computer) resolve(k string, memo map[string]any, stack map[string]bool) (any, error) {
	if v, ok := memo[k]; ok {
		return v, nil
	}
	node, ok := c.graph[k]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissing, k)
	}
	if stack[k] {
		return nil, fmt.Errorf("%w involving %q", ErrCycle, k)
	}
	stack[k] = true
	defer delete(stack, k)

	v, err := c.eval(node, memo, stack)
	if err != nil {
		return nil, fmt.Errorf("computing %q: %w", k, err)
	}
	memo[k] = v
	return v, nil
}

func (c *Computer) eval(node any, memo map[string]any, stack map[string]bool) (any, error) {
	switch t := node.(type) {
	case *Task:
		args := make([]any, 0, len(t.Inputs))
		for _, in := range t.Inputs {
			v, err := c.resolve(in, memo, stack)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
		fn := t.Compute
		if fn == nil {
			var err error
			fn, err = compute.Lookup(t.Op)
			if err != nil {
				return nil, err
			}
		}
		return fn(args, t.Kwargs)
	case string:
		// A string naming a graph key is an alias for that node.
		if _, isKey := c.graph[t]; isKey {
			return c.resolve(t, memo, stack)
		}
		return t, nil
	}
	return node, nil
}
