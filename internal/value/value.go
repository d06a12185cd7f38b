// Package value gives a small tagged view over the JSON-like values decoded
// from frontmatter: null, bool, number, string, list and mapping.
package value

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a mapping value that keeps its keys in declaration order.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty Object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Kind is the variant of a JSON-like value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	List
	Map
	Other
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case List:
		return "list"
	case Map:
		return "map"
	default:
		return "other"
	}
}

// KindOf classifies v.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return Bool
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Number
	case string:
		return String
	case []any, []string:
		return List
	case *Object, map[string]any:
		return Map
	default:
		return Other
	}
}

// Items returns the elements of a list value, or nil when v is not a list.
func Items(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	}
	return nil
}

// SortedKeys returns the keys of m in lexical order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Walk calls fn for every string reachable from v. Lists are visited in
// order, Object values in declaration order and plain maps in key order;
// other scalars contribute nothing.
func Walk(v any, fn func(s string)) {
	switch t := v.(type) {
	case string:
		fn(t)
	case *Object:
		for p := t.Oldest(); p != nil; p = p.Next() {
			Walk(p.Value, fn)
		}
	case map[string]any:
		for _, k := range SortedKeys(t) {
			Walk(t[k], fn)
		}
	default:
		for _, item := range Items(v) {
			Walk(item, fn)
		}
	}
}

// Stringify converts v to text the way a loosely typed runtime would:
// numbers in plain decimal notation, lists joined by commas, mappings as
// compact JSON.
func Stringify(v any) string {
	switch KindOf(v) {
	case Null:
		return ""
	case List:
		items := Items(v)
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = Stringify(item)
		}
		return strings.Join(parts, ",")
	case Map:
		return Compact(v)
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return s
}

// Compact renders v as single-line JSON, falling back to fmt formatting for
// values JSON cannot represent.
func Compact(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// AsBool reads a tri-state flag: booleans and the strings "true"/"false"
// are recognised, everything else reports ok=false.
func AsBool(v any) (b bool, ok bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// Canonical rewrites decoder output into the JSON-like model: *Object
// mappings, []any lists, int64/float64 numbers and date-times as strings.
// Unordered maps come out with their keys sorted.
func Canonical(v any) any {
	switch t := v.(type) {
	case nil, bool, string, int64, float64:
		return t
	case *Object:
		out := NewObject()
		for p := t.Oldest(); p != nil; p = p.Next() {
			out.Set(p.Key, Canonical(p.Value))
		}
		return out
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint:
		return uintNumber(uint64(t))
	case uint64:
		return uintNumber(t)
	case float32:
		return float64(t)
	case time.Time:
		return formatTime(t)
	case map[string]any:
		out := NewObject()
		for _, k := range SortedKeys(t) {
			out.Set(k, Canonical(t[k]))
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Canonical(val)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Canonical(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		plain := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			plain[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
		}
		return Canonical(plain)
	}
	return v
}

func uintNumber(u uint64) any {
	if u > 1<<63-1 {
		return float64(u)
	}
	return int64(u)
}

// formatTime keeps TOML local date/time values in their lexical form.
func formatTime(t time.Time) string {
	switch t.Location().String() {
	case "date-local":
		return t.Format("2006-01-02")
	case "time-local":
		return t.Format("15:04:05.999999999")
	case "datetime-local":
		return t.Format("2006-01-02T15:04:05.999999999")
	}
	return t.Format(time.RFC3339Nano)
}
