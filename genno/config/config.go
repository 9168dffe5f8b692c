// Package config loads YAML configuration into a Computer. Each section
// of the file is processed by a registered handler: most handlers add
// graph tasks through the computer's queue, a few adjust global state
// (unit definitions and replacements) or the computer itself (default
// key, cache backend).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/LauWien/genno/genno/computer"
)

var (
	// ErrNoComputer is returned when configuration that must modify a
	// computer is applied globally.
	ErrNoComputer = errors.New("cannot apply non-global configuration without a Computer")
	// ErrSection is returned for section contents of the wrong shape.
	ErrSection = errors.New("malformed configuration section")
)

// A Handler processes one configuration section.
type Handler struct {
	// Queued handlers run through Computer.AddQueue after the whole
	// mapping parses, one call per entry, and so may rely on keys that
	// other entries add. Immediate handlers run during parsing and
	// receive the whole section value.
	Queued bool
	// Mapping sections enqueue one Pair per key/value entry instead of
	// one item per list element.
	Mapping bool
	// Keep leaves the section in the stored configuration mapping.
	Keep bool
	// Func processes one entry (queued) or the section value (immediate).
	// Immediate handlers must tolerate a nil computer or return
	// ErrNoComputer.
	Func func(c *computer.Computer, entry any) error
}

// Pair is one entry of a mapping-shaped section.
type Pair struct {
	Key   string
	Value any
}

var handlers = map[string]Handler{}

// RegisterHandler binds a configuration section name to a handler,
// replacing any previous one.
func RegisterHandler(section string, h Handler) {
	handlers[section] = h
}

// Configure applies global configuration: path names a YAML file, and
// extra supplies or overrides sections directly. Only sections that
// adjust global state may appear; anything that needs a Computer
// returns ErrNoComputer.
func Configure(path string, extra map[string]any) error {
	data := make(map[string]any, len(extra)+1)
	for k, v := range extra {
		data[k] = v
	}
	if path != "" {
		data["path"] = path
	}
	return Parse(nil, data)
}

// Parse applies the configuration in data to c. A "path" entry loads a
// YAML file whose sections override the rest of data; the file's
// directory is remembered as "config_dir" for resolving relative paths.
// Sections without a handler are logged and ignored but remain in the
// stored configuration. Queued sections are applied with one round of
// retries, so entries may reference keys added by later entries.
func Parse(c *computer.Computer, data map[string]any) error {
	if p, ok := data["path"]; ok {
		delete(data, "path")
		path := toString(p)
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		loaded := map[string]any{}
		if err := yaml.Unmarshal(raw, &loaded); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		for k, v := range loaded {
			data[k] = v
		}
		dir := filepath.Dir(path)
		if c == nil {
			data["config_dir"] = dir
		} else {
			c.Config()["config_dir"] = dir
		}
	}

	var queue []computer.QueueItem
	var handled []string
	for _, section := range sortedKeys(data) {
		h, ok := handlers[section]
		if !ok {
			if section != "config_dir" {
				logger.Warnf("No handler for configuration section named %s; ignored", section)
			}
			continue
		}
		if !h.Keep {
			handled = append(handled, section)
		}
		if !h.Queued {
			if err := h.Func(c, data[section]); err != nil {
				return err
			}
			continue
		}
		entries, err := sectionEntries(section, data[section], h.Mapping)
		if err != nil {
			return err
		}
		for _, e := range entries {
			entry, fn := e, h.Func
			queue = append(queue, func(c *computer.Computer) error {
				return fn(c, entry)
			})
		}
	}
	for _, s := range handled {
		delete(data, s)
	}

	if c == nil {
		if len(queue) > 0 {
			return ErrNoComputer
		}
		return nil
	}
	if err := c.AddQueue(queue, 2, computer.FailRaise); err != nil {
		return err
	}

	// Unhandled entries become part of the stored configuration.
	cfg := c.Config()
	for k, v := range data {
		cfg[k] = v
	}
	return nil
}

func sectionEntries(section string, value any, mapping bool) ([]any, error) {
	if mapping {
		m, ok := value.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T, not a mapping", ErrSection, section, value)
		}
		entries := make([]any, 0, len(m))
		for _, k := range sortedKeys(m) {
			entries = append(entries, Pair{Key: k, Value: m[k]})
		}
		return entries, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %T, not a list", ErrSection, section, value)
	}
	return list, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

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

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asStringMap(v any) map[string]string {
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
	}
	return nil
}
