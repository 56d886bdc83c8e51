package omnikv

import (
	"reflect"

	"dario.cat/mergo"

	"github.com/unkn0wn-root/omnikv/codec"
)

// Kind classifies values for merging. Only Record x Record merges.
type Kind uint8

const (
	KindScalar Kind = iota
	KindList
	KindRecord
)

// Record is the mergeable value shape.
type Record = map[string]any

var recordType = reflect.TypeOf(Record(nil))

func kindOf(v any) Kind {
	switch v.(type) {
	case map[string]any:
		return KindRecord
	case []any:
		return KindList
	}
	return KindScalar
}

// recordsOnly stops mergo from descending into anything but records, so
// structs, pointers, typed maps and registry types are replaced whole.
type recordsOnly struct{}

func (recordsOnly) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	if t == recordType {
		return nil
	}
	return func(reflect.Value, reflect.Value) error { return nil }
}

// mergeValues returns next deep-merged over current. next wins on conflicts,
// nested records merge key-wise, lists and scalars are replaced. A nil current
// counts as an empty record. current is cloned first and neither argument is
// modified. The bool reports whether a merge happened.
func mergeValues(reg *codec.Registry, current, next any) (any, bool, error) {
	if kindOf(next) != KindRecord {
		return next, false, nil
	}
	if current == nil {
		current = Record{}
	}
	if kindOf(current) != KindRecord {
		return next, false, nil
	}
	cp, err := reg.Clone(current)
	if err != nil {
		return nil, false, err
	}
	dst := cp.(Record)
	if err := mergo.Merge(&dst, next.(Record), mergo.WithOverride, mergo.WithTransformers(recordsOnly{})); err != nil {
		return nil, false, err
	}
	return dst, true, nil
}

func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindRecord:
		return "record"
	}
	return "scalar"
}
