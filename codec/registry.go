package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// Discriminant keys of a tagged intermediate value: {"$type": tag, "$value": inner}.
// A user record of that same shape is projected as {"$type": "record", "$value": rec}
// and restored verbatim, so it never dispatches to a registry type.
const (
	tagKey    = "$type"
	valueKey  = "$value"
	recordTag = "record"
)

// Walk converts a nested value; registry types use it for their members.
type Walk func(any) (any, error)

// Type is one member of a Registry.
type Type struct {
	Tag string
	// Match reports whether a Go value is handled by this type.
	Match func(v any) bool
	// ToIntermediate turns v into a JSON-safe value.
	ToIntermediate func(v any, project Walk) (any, error)
	// FromIntermediate rebuilds the Go value from its intermediate form.
	FromIntermediate func(raw any, restore Walk) (any, error)
}

// Registry is a closed set of types that survive a JSON round trip.
// Values of other types go through encoding/json unchanged, which is lossy
// (numbers come back as float64, structs as map[string]any).
type Registry struct {
	types []Type
	byTag map[string]int
}

// NewRegistry builds a registry. Tags must be unique and non-empty.
func NewRegistry(types ...Type) (*Registry, error) {
	r := &Registry{byTag: make(map[string]int, len(types))}
	for _, t := range types {
		if t.Tag == "" || t.Match == nil || t.ToIntermediate == nil || t.FromIntermediate == nil {
			return nil, fmt.Errorf("codec: incomplete registry type %q", t.Tag)
		}
		if t.Tag == recordTag {
			return nil, fmt.Errorf("codec: registry tag %q is reserved", t.Tag)
		}
		if _, dup := r.byTag[t.Tag]; dup {
			return nil, fmt.Errorf("codec: duplicate registry tag %q", t.Tag)
		}
		r.byTag[t.Tag] = len(r.types)
		r.types = append(r.types, t)
	}
	return r, nil
}

// MustRegistry is like NewRegistry but panics on error.
func MustRegistry(types ...Type) *Registry {
	r, err := NewRegistry(types...)
	if err != nil {
		panic(err)
	}
	return r
}

// Default handles byte buffers, ordered maps, sets and timestamps.
var Default = MustRegistry(BufferType, MapType, SetType, DateType)

// Project converts v into a JSON-safe tree, tagging registered types.
func (r *Registry) Project(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	for i := range r.types {
		t := &r.types[i]
		if !t.Match(v) {
			continue
		}
		inner, err := t.ToIntermediate(v, r.Project)
		if err != nil {
			return nil, fmt.Errorf("codec: project %s: %w", t.Tag, err)
		}
		return map[string]any{tagKey: t.Tag, valueKey: inner}, nil
	}

	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			p, err := r.Project(e)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		if _, _, ok := tagged(x); ok {
			return map[string]any{tagKey: recordTag, valueKey: out}, nil
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			p, err := r.Project(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
	return v, nil
}

// Restore rebuilds Go values from a tree produced by Project and encoding/json.
// Dispatch is on the "$type" discriminant only.
func (r *Registry) Restore(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if tag, inner, ok := tagged(x); ok {
			if tag == recordTag {
				if rec, isRec := inner.(map[string]any); isRec {
					return r.restoreMembers(rec)
				}
				return nil, fmt.Errorf("codec: restore %s: %w", recordTag, errShape)
			}
			if i, found := r.byTag[tag]; found {
				out, err := r.types[i].FromIntermediate(inner, r.Restore)
				if err != nil {
					return nil, fmt.Errorf("codec: restore %s: %w", tag, err)
				}
				return out, nil
			}
		}
		return r.restoreMembers(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			p, err := r.Restore(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	}
	return v, nil
}

func (r *Registry) restoreMembers(m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, e := range m {
		p, err := r.Restore(e)
		if err != nil {
			return nil, err
		}
		out[k] = p
	}
	return out, nil
}

// Clone deep-copies v by projecting and restoring it without serializing.
func (r *Registry) Clone(v any) (any, error) {
	p, err := r.Project(v)
	if err != nil {
		return nil, err
	}
	return r.Restore(p)
}

func tagged(m map[string]any) (string, any, bool) {
	if len(m) != 2 {
		return "", nil, false
	}
	tag, ok := m[tagKey].(string)
	if !ok {
		return "", nil, false
	}
	inner, ok := m[valueKey]
	return tag, inner, ok
}

var errShape = errors.New("unexpected intermediate shape")

// BufferType stores []byte as standard base64.
var BufferType = Type{
	Tag:   "buffer",
	Match: func(v any) bool { _, ok := v.([]byte); return ok },
	ToIntermediate: func(v any, _ Walk) (any, error) {
		return base64.StdEncoding.EncodeToString(v.([]byte)), nil
	},
	FromIntermediate: func(raw any, _ Walk) (any, error) {
		s, ok := raw.(string)
		if !ok {
			return nil, errShape
		}
		return base64.StdEncoding.DecodeString(s)
	},
}

// MapType stores *OrderedMap as a list of [key, value] pairs.
var MapType = Type{
	Tag:   "map",
	Match: func(v any) bool { _, ok := v.(*OrderedMap); return ok },
	ToIntermediate: func(v any, project Walk) (any, error) {
		m := v.(*OrderedMap)
		pairs := make([]any, 0, m.Len())
		for p := m.Oldest(); p != nil; p = p.Next() {
			pv, err := project(p.Value)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, []any{p.Key, pv})
		}
		return pairs, nil
	},
	FromIntermediate: func(raw any, restore Walk) (any, error) {
		pairs, ok := raw.([]any)
		if !ok {
			return nil, errShape
		}
		m := NewOrderedMap()
		for _, p := range pairs {
			kv, ok := p.([]any)
			if !ok || len(kv) != 2 {
				return nil, errShape
			}
			k, ok := kv[0].(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", kv[0])
			}
			v, err := restore(kv[1])
			if err != nil {
				return nil, err
			}
			m.Set(k, v)
		}
		return m, nil
	},
}

// SetType stores *Set as a list of members in insertion order.
var SetType = Type{
	Tag:   "set",
	Match: func(v any) bool { _, ok := v.(*Set); return ok },
	ToIntermediate: func(v any, project Walk) (any, error) {
		vals := v.(*Set).Values()
		out := make([]any, len(vals))
		for i, e := range vals {
			p, err := project(e)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	},
	FromIntermediate: func(raw any, restore Walk) (any, error) {
		items, ok := raw.([]any)
		if !ok {
			return nil, errShape
		}
		s := NewSet()
		for _, it := range items {
			v, err := restore(it)
			if err != nil {
				return nil, err
			}
			if !isComparable(v) {
				return nil, fmt.Errorf("set member of type %T is not comparable", v)
			}
			s.Add(v)
		}
		return s, nil
	},
}

// DateType stores time.Time as RFC 3339 with nanoseconds, normalized to UTC.
var DateType = Type{
	Tag:   "date",
	Match: func(v any) bool { _, ok := v.(time.Time); return ok },
	ToIntermediate: func(v any, _ Walk) (any, error) {
		return v.(time.Time).UTC().Format(time.RFC3339Nano), nil
	},
	FromIntermediate: func(raw any, _ Walk) (any, error) {
		s, ok := raw.(string)
		if !ok {
			return nil, errShape
		}
		return time.Parse(time.RFC3339Nano, s)
	},
}
