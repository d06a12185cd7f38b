package frontmatter

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/starford/noteprops/internal/value"
)

// safeTags are the only YAML tags a block may spell out explicitly. They
// cover exactly what JSON can express.
var safeTags = map[string]bool{
	"!!str":   true,
	"!!int":   true,
	"!!float": true,
	"!!bool":  true,
	"!!null":  true,
	"!!map":   true,
	"!!seq":   true,
	"!!merge": true,
}

const mergeTag = "!!merge"

// Plain scalars only resolve to non-strings when they are spelled the way
// JSON spells them.
var (
	jsonInt   = regexp.MustCompile(`^-?(?:0|[1-9][0-9]*)$`)
	jsonFloat = regexp.MustCompile(`^-?(?:0|[1-9][0-9]*)(?:\.[0-9]*)?(?:[eE][-+]?[0-9]+)?$`)
)

// maxYAMLNodes bounds alias expansion.
const maxYAMLNodes = 1 << 20

var (
	errUnsafeTag   = errors.New("tag not allowed")
	errNotFinite   = errors.New("number is not finite")
	errAliasLoop   = errors.New("alias refers to itself")
	errAliasExpand = errors.New("aliases expand too far")
)

func decodeYAML(block []byte) (*Metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(block, &doc); err != nil {
		return nil, err
	}
	if err := sanitize(&doc); err != nil {
		return nil, err
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return NewMetadata(), nil
	}
	root := doc.Content[0]
	switch {
	case root.Kind == yaml.ScalarNode && root.Tag == "!!null":
		return NewMetadata(), nil
	case root.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("line %d: expected a mapping at the top level", root.Line)
	}

	d := &yamlDecoder{active: make(map[*yaml.Node]bool)}
	v, err := d.node(root)
	if err != nil {
		return nil, err
	}
	return fromObject(v.(*value.Object)), nil
}

type yamlDecoder struct {
	active map[*yaml.Node]bool
	nodes  int
}

// mapping copies the pairs of n into obj in document order. Keys pulled in
// through merge keys never override explicit ones.
func (d *yamlDecoder) mapping(n *yaml.Node, obj *value.Object) error {
	var merged []*yaml.Node
	explicit := make(map[string]bool, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind == yaml.ScalarNode && k.Tag == mergeTag {
			merged = append(merged, v)
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
		}
		if explicit[k.Value] {
			return fmt.Errorf("line %d: mapping key %q already defined", k.Line, k.Value)
		}
		explicit[k.Value] = true

		val, err := d.node(v)
		if err != nil {
			return err
		}
		obj.Set(k.Value, val)
	}

	for _, src := range merged {
		for _, m := range mergeSources(src) {
			if d.active[m] {
				return fmt.Errorf("line %d: %w", src.Line, errAliasLoop)
			}
			sub := value.NewObject()
			if err := d.mapping(m, sub); err != nil {
				return err
			}
			for p := sub.Oldest(); p != nil; p = p.Next() {
				if _, ok := obj.Get(p.Key); !ok {
					obj.Set(p.Key, p.Value)
				}
			}
		}
	}
	return nil
}

func (d *yamlDecoder) node(n *yaml.Node) (any, error) {
	d.nodes++
	if d.nodes > maxYAMLNodes {
		return nil, fmt.Errorf("line %d: %w", n.Line, errAliasExpand)
	}

	switch n.Kind {
	case yaml.AliasNode:
		if d.active[n.Alias] {
			return nil, fmt.Errorf("line %d: %w: %s", n.Line, errAliasLoop, n.Value)
		}
		d.active[n.Alias] = true
		defer delete(d.active, n.Alias)
		return d.node(n.Alias)

	case yaml.MappingNode:
		d.active[n] = true
		defer delete(d.active, n)
		obj := value.NewObject()
		if err := d.mapping(n, obj); err != nil {
			return nil, err
		}
		return obj, nil

	case yaml.SequenceNode:
		d.active[n] = true
		defer delete(d.active, n)
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.node(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	var raw any
	if err := n.Decode(&raw); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line, err)
	}
	if f, ok := raw.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
		return nil, fmt.Errorf("line %d: %w: %s", n.Line, errNotFinite, n.Value)
	}
	return value.Canonical(raw), nil
}

func mergeSources(n *yaml.Node) []*yaml.Node {
	if n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{n}
	case yaml.SequenceNode:
		var out []*yaml.Node
		for _, item := range n.Content {
			out = append(out, mergeSources(item)...)
		}
		return out
	}
	return nil
}

// sanitize rejects explicit tags outside safeTags and re-tags plain
// scalars as strings unless JSON would read them the same way. That keeps
// .inf, 0x1F, ~, yes and timestamps as text.
func sanitize(n *yaml.Node) error {
	if n == nil || n.Kind == yaml.AliasNode {
		return nil
	}
	switch {
	case n.Style&yaml.TaggedStyle != 0:
		if !safeTags[n.Tag] {
			return fmt.Errorf("line %d: %w: %s", n.Line, errUnsafeTag, n.Tag)
		}
	case n.Kind == yaml.ScalarNode && n.Style == 0 && !jsonScalar(n.Tag, n.Value):
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		if err := sanitize(c); err != nil {
			return err
		}
	}
	return nil
}

// jsonScalar reports whether a plain scalar resolved to tag is written in
// JSON's lexical form for that type. An empty value stays null.
func jsonScalar(tag, s string) bool {
	switch tag {
	case "!!str", mergeTag:
		return true
	case "!!null":
		return s == "" || s == "null"
	case "!!bool":
		return s == "true" || s == "false"
	case "!!int":
		return jsonInt.MatchString(s)
	case "!!float":
		return jsonFloat.MatchString(s)
	}
	return false
}

func decodeTOML(block []byte) (*Metadata, error) {
	raw := make(map[string]any)
	meta, err := toml.Decode(string(block), &raw)
	if err != nil {
		return nil, err
	}

	// Keys lists every key path in the order it appears; children of one
	// table share the parent's path, including every table of an array.
	// Prefixes of dotted keys count as appearing with the key.
	order := make(map[string][]string)
	seen := make(map[string]bool)
	for _, key := range meta.Keys() {
		for i := 1; i <= len(key); i++ {
			id := strings.Join(key[:i], "\x00")
			if seen[id] {
				continue
			}
			seen[id] = true
			parent := strings.Join(key[:i-1], "\x00")
			order[parent] = append(order[parent], key[i-1])
		}
	}

	obj, err := tomlTable(raw, "", order)
	if err != nil {
		return nil, err
	}
	return fromObject(obj), nil
}

// tomlTable converts one decoded table, placing keys in file order. Keys
// the order map does not know about follow, sorted.
func tomlTable(t map[string]any, path string, order map[string][]string) (*value.Object, error) {
	keys := make([]string, 0, len(t))
	placed := make(map[string]bool, len(t))
	for _, k := range order[path] {
		if _, ok := t[k]; ok && !placed[k] {
			keys = append(keys, k)
			placed[k] = true
		}
	}
	var rest []string
	for k := range t {
		if !placed[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	obj := value.NewObject()
	for _, k := range keys {
		child := k
		if path != "" {
			child = path + "\x00" + k
		}
		v, err := tomlValue(t[k], child, order)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		obj.Set(k, v)
	}
	return obj, nil
}

func tomlValue(v any, path string, order map[string][]string) (any, error) {
	switch t := v.(type) {
	case map[string]any:
		return tomlTable(t, path, order)
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			obj, err := tomlTable(item, path, order)
			if err != nil {
				return nil, err
			}
			out[i] = obj
		}
		return out, nil
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			c, err := tomlValue(item, path, order)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	case float64:
		if math.IsInf(t, 0) || math.IsNaN(t) {
			return nil, errNotFinite
		}
	}
	return value.Canonical(v), nil
}
