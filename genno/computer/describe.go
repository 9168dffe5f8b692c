package computer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/LauWien/genno/genno/quantity"
)

// Describe renders the task tree rooted at k: the key on the first line,
// then its task and inputs as list items, each input's own subtree
// indented one level further. A key already rendered earlier in the
// same tree is marked "(above)" instead of repeating its subtree.
func (c *Computer) Describe(k string) (string, error) {
	if !c.Has(k) {
		return "", fmt.Errorf("%w %q", ErrMissing, k)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "'%s':\n", k)
	c.describeNode(&b, k, 0, map[string]bool{k: true})
	return b.String(), nil
}

// describeNode renders the content of key k, already introduced by its
// own line, at the given indentation level.
func (c *Computer) describeNode(b *strings.Builder, k string, level int, seen map[string]bool) {
	pad := strings.Repeat("  ", level)
	switch t := c.graph[k].(type) {
	case *Task:
		fmt.Fprintf(b, "%s- %s\n", pad, taskLabel(t))
		for _, in := range t.Inputs {
			c.describeChild(b, in, level, seen)
		}
	case string:
		if c.Has(t) {
			c.describeChild(b, t, level, seen)
		} else {
			fmt.Fprintf(b, "%s- %q\n", pad, t)
		}
	default:
		fmt.Fprintf(b, "%s- %s\n", pad, valueLabel(c.graph[k]))
	}
}

// describeChild renders one input key as a list item at the given level,
// with its content nested one level deeper.
func (c *Computer) describeChild(b *strings.Builder, k string, level int, seen map[string]bool) {
	pad := strings.Repeat("  ", level)
	if seen[k] {
		fmt.Fprintf(b, "%s- '%s' (above)\n", pad, k)
		return
	}
	seen[k] = true
	if !c.Has(k) {
		fmt.Fprintf(b, "%s- '%s' (missing)\n", pad, k)
		return
	}
	fmt.Fprintf(b, "%s- '%s':\n", pad, k)
	c.describeNode(b, k, level+1, seen)
}

func taskLabel(t *Task) string {
	name := t.Op
	if name == "" {
		name = "<function>"
	}
	if len(t.Kwargs) == 0 {
		return name + "()"
	}
	names := make([]string, 0, len(t.Kwargs))
	for k := range t.Kwargs {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, k := range names {
		parts = append(parts, fmt.Sprintf("%s=%v", k, t.Kwargs[k]))
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(parts, ", "))
}

func valueLabel(v any) string {
	if q, ok := v.(*quantity.Quantity); ok {
		return fmt.Sprintf("<quantity %q %v>", q.Name(), q.Dims())
	}
	return fmt.Sprintf("%v", v)
}
