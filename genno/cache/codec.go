package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"

	"github.com/LauWien/genno/genno/quantity"
	"github.com/LauWien/genno/genno/units"
	"github.com/LauWien/genno/genno/util"
)

// Payload kinds stored in an envelope.
const (
	kindQuantity = "quantity"
	kindText     = "text"
	kindMapping  = "mapping"
)

// envelope is the persisted form of a cached value. Quantities flatten
// to parallel label and value slices with the unit rendered as its
// expression; mappings re-render as YAML text.
type envelope struct {
	Kind    string
	Name    string
	Dims    []string
	Labels  [][]string
	Values  []float64
	Unit    string
	HasUnit bool
	Attrs   []attrPair
	Text    string
}

// attrPair keeps attr order stable across a round trip.
type attrPair struct {
	Key   string
	Value string
}

// Codec converts the cacheable value kinds (quantities, strings and
// YAML-style mappings) to compressed envelopes and back. One zstd
// encoder/decoder pair is reused across calls; a Codec is not safe for
// concurrent use.
type Codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCodec returns a ready codec using the default compression level.
func NewCodec() (*Codec, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, err
	}
	return &Codec{enc: enc, dec: dec}, nil
}

// Close releases the compressor resources.
func (c *Codec) Close() {
	if c.enc != nil {
		c.enc.Close()
	}
	if c.dec != nil {
		c.dec.Close()
	}
}

// Encode renders v into a compressed envelope. Values outside the
// supported kinds return ErrPayload.
func (c *Codec) Encode(v any) ([]byte, error) {
	env, err := wrap(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, err
	}
	return c.enc.EncodeAll(buf.Bytes(), make([]byte, 0, buf.Len())), nil
}

// Decode reverses Encode.
func (c *Codec) Decode(payload []byte) (any, error) {
	raw, err := c.dec.DecodeAll(payload, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return unwrap(&env)
}

func wrap(v any) (*envelope, error) {
	switch x := v.(type) {
	case *quantity.Quantity:
		env := &envelope{
			Kind:   kindQuantity,
			Name:   x.Name(),
			Dims:   x.Dims(),
			Values: x.Values(),
		}
		for _, r := range x.Rows() {
			env.Labels = append(env.Labels, r.Labels)
		}
		if x.HasUnit() {
			env.Unit = x.Unit().String()
			env.HasUnit = true
		}
		for _, k := range x.Attrs().Keys() {
			if k == util.UnitKey {
				continue
			}
			// Only string attrs survive the round trip.
			if s, ok := attrString(x.Attrs(), k); ok {
				env.Attrs = append(env.Attrs, attrPair{Key: k, Value: s})
			}
		}
		return env, nil
	case string:
		return &envelope{Kind: kindText, Text: x}, nil
	case map[string]any:
		raw, err := yaml.Marshal(x)
		if err != nil {
			return nil, err
		}
		return &envelope{Kind: kindMapping, Text: string(raw)}, nil
	}
	return nil, fmt.Errorf("%w: cannot store %T", ErrPayload, v)
}

func attrString(m *util.AttrMap, key string) (string, bool) {
	v, has := m.Get(key)
	if !has {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func unwrap(env *envelope) (any, error) {
	switch env.Kind {
	case kindQuantity:
		rows := make([]quantity.Row, len(env.Labels))
		for i, labels := range env.Labels {
			rows[i] = quantity.Row{Labels: labels, Value: env.Values[i]}
		}
		opts := []quantity.Option{quantity.WithName(env.Name)}
		for _, p := range env.Attrs {
			opts = append(opts, quantity.WithAttr(p.Key, p.Value))
		}
		if env.HasUnit {
			u, err := units.Default().Parse(env.Unit)
			if err != nil {
				return nil, fmt.Errorf("%w: unit %q: %v", ErrCorrupt, env.Unit, err)
			}
			opts = append(opts, quantity.WithUnit(u))
		}
		if len(env.Values) != len(env.Labels) {
			return nil, fmt.Errorf(
				"%w: %d keys for %d values", ErrCorrupt, len(env.Labels), len(env.Values))
		}
		q, err := quantity.New(env.Dims, rows, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return q, nil
	case kindText:
		return env.Text, nil
	case kindMapping:
		var m map[string]any
		if err := yaml.Unmarshal([]byte(env.Text), &m); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: kind %q", ErrCorrupt, env.Kind)
}
