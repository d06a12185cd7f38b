package frontmatter

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Language is the serialization format of a frontmatter block.
type Language string

const (
	YAML Language = "yaml"
	TOML Language = "toml"
)

// DefaultDelimiter opens and closes a block unless configured otherwise.
const DefaultDelimiter = "---"

// Delimiters is the pair of lines fencing a frontmatter block. In config
// files it is written either as a single string used for both lines or as
// a two-element list.
type Delimiters struct {
	Open  string
	Close string
}

// UnmarshalYAML accepts `delimiters: "+++"` and `delimiters: ["<!--", "-->"]`.
func (d *Delimiters) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		d.Open, d.Close = n.Value, n.Value
		return nil
	case yaml.SequenceNode:
		var pair []string
		if err := n.Decode(&pair); err != nil {
			return fmt.Errorf("delimiters: %w", err)
		}
		return d.setPair(pair)
	}
	return fmt.Errorf("delimiters: expected string or two-element list at line %d", n.Line)
}

// UnmarshalTOML accepts the same two shapes as UnmarshalYAML.
func (d *Delimiters) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case string:
		d.Open, d.Close = t, t
		return nil
	case []any:
		pair := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("delimiters: expected strings, got %T", item)
			}
			pair = append(pair, s)
		}
		return d.setPair(pair)
	}
	return fmt.Errorf("delimiters: expected string or two-element list, got %T", v)
}

func (d *Delimiters) setPair(pair []string) error {
	if len(pair) != 2 {
		return fmt.Errorf("delimiters: expected two elements, got %d", len(pair))
	}
	d.Open, d.Close = pair[0], pair[1]
	return nil
}

// Options controls block detection and decoding.
type Options struct {
	Delimiters Delimiters
	Language   Language
}

// DefaultOptions returns YAML fenced by "---" lines.
func DefaultOptions() Options {
	return Options{
		Delimiters: Delimiters{Open: DefaultDelimiter, Close: DefaultDelimiter},
		Language:   YAML,
	}
}

func (o Options) withDefaults() Options {
	if o.Delimiters.Open == "" {
		o.Delimiters.Open = DefaultDelimiter
	}
	if o.Delimiters.Close == "" {
		o.Delimiters.Close = o.Delimiters.Open
	}
	if o.Language == "" {
		o.Language = YAML
	}
	return o
}
