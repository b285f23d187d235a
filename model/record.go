package model

import (
	"maps"
	"reflect"
	"slices"
)

// Fields is an unordered field-name to value mapping. It is the wire shape
// records take when they come from drivers or callers and when a projection
// other than Full is requested.
type Fields map[string]any

// FieldSource is anything a segment can build a record from.
// Both Fields and *Record satisfy it.
type FieldSource interface {
	Fields() Fields
}

// Fields returns a shallow copy, so a caller mutating it never touches stored state.
func (f Fields) Fields() Fields { return maps.Clone(f) }

// Names returns the field names in lexical order.
func (f Fields) Names() []string { return slices.Sorted(maps.Keys(f)) }

// Record is a schema-conformant value. Records are immutable once built:
// the store hands out shared pointers and relies on that.
type Record struct {
	schema string
	fields Fields
}

// NewRecord is used by the schema package after conformance; callers go
// through schema.Handle.Conform instead.
func NewRecord(schema string, fields Fields) *Record {
	return &Record{schema: schema, fields: fields}
}

// Schema returns the name of the schema the record was conformed against.
func (r *Record) Schema() string { return r.schema }

// Get returns a field value.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Value returns a field value or nil.
func (r *Record) Value(name string) any { return r.fields[name] }

// Fields returns a copy of all fields.
func (r *Record) Fields() Fields { return maps.Clone(r.fields) }

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.fields) }

// With returns a copy of the record with one field replaced. The receiver is untouched.
func (r *Record) With(name string, value any) *Record {
	fields := maps.Clone(r.fields)
	fields[name] = value
	return &Record{schema: r.schema, fields: fields}
}

// Equal compares schema and field values. Nested records are compared recursively.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	if r.schema != other.schema || len(r.fields) != len(other.fields) {
		return false
	}
	for k, v := range r.fields {
		ov, ok := other.fields[k]
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case *Record:
		bv, ok := b.(*Record)
		return ok && av.Equal(bv)
	case Fields:
		bv, ok := b.(Fields)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			if ov, found := bv[k]; !found || !valueEqual(v, ov) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}
