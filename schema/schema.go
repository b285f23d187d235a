// Package schema declares record shapes and validates them once, at
// registration time. A validated schema is represented by a Handle.
package schema

import (
	"maps"
	"slices"

	"github.com/Borislavv/go-ash-segments/model"
)

type VisibilityMode uint8

const (
	// ModeAllExcept shows every field but the listed ones.
	ModeAllExcept VisibilityMode = iota
	// ModeOnlyInclude shows only the listed fields.
	ModeOnlyInclude
)

// Visibility is the default projection applied to AllFields/Only reads.
// The zero value shows everything.
type Visibility struct {
	Mode   VisibilityMode
	Fields []string
}

func AllExcept(fields ...string) Visibility {
	return Visibility{Mode: ModeAllExcept, Fields: fields}
}

func OnlyInclude(fields ...string) Visibility {
	return Visibility{Mode: ModeOnlyInclude, Fields: fields}
}

type Schema struct {
	Name   string
	Fields []Field
	// LookupField is the unique key of records within a segment.
	LookupField string
	Visibility  Visibility
	// Partials maps every TypeRef field to the segment holding the referenced records.
	Partials map[string]string
	// InvalidateAfter removes a record on its Nth successful get.
	// nil or negative disables it; zero is rejected.
	InvalidateAfter *int
}

// InvalidateAfter is a helper for filling Schema.InvalidateAfter.
func InvalidateAfter(n int) *int { return &n }

// Handle is a registered, validated schema. It is immutable.
type Handle struct {
	name      string
	fields    []Field
	index     map[string]int
	lookup    Field
	partials  map[string]string
	excluded  map[string]struct{}
	threshold int
}

// Register validates s and returns its handle. Errors wrap model.ErrConfig.
func Register(s Schema) (*Handle, error) {
	if s.Name == "" {
		return nil, model.Configf("schema name is empty")
	}
	if len(s.Fields) == 0 {
		return nil, model.Configf("schema %s: no fields declared", s.Name)
	}

	h := &Handle{
		name:     s.Name,
		fields:   slices.Clone(s.Fields),
		index:    make(map[string]int, len(s.Fields)),
		partials: make(map[string]string, len(s.Partials)),
		excluded: make(map[string]struct{}),
	}
	for i, f := range h.fields {
		if f.Name == "" {
			return nil, model.Configf("schema %s: field #%d has no name", s.Name, i)
		}
		if _, dup := h.index[f.Name]; dup {
			return nil, model.Configf("schema %s: field %s declared twice", s.Name, f.Name)
		}
		h.index[f.Name] = i
	}

	lookup, ok := h.Field(s.LookupField)
	if !ok {
		return nil, model.Configf("schema %s: lookup field %q is not declared", s.Name, s.LookupField)
	}
	if lookup.Optional || lookup.Type == TypeRef {
		return nil, model.Configf("schema %s: lookup field %s must be a required non-reference field", s.Name, lookup.Name)
	}
	h.lookup = lookup

	if s.InvalidateAfter != nil {
		switch n := *s.InvalidateAfter; {
		case n == 0:
			return nil, model.Configf("schema %s: invalidate_after must not be zero", s.Name)
		case n > 0:
			h.threshold = n
		}
	}

	for _, f := range h.fields {
		if f.Type != TypeRef {
			continue
		}
		target, mapped := s.Partials[f.Name]
		if !mapped || target == "" {
			return nil, model.Configf("schema %s: reference field %s has no partial segment mapping", s.Name, f.Name)
		}
		h.partials[f.Name] = target
	}
	for name := range s.Partials {
		if f, declared := h.Field(name); !declared || f.Type != TypeRef {
			return nil, model.Configf("schema %s: partial mapping for %q which is not a reference field", s.Name, name)
		}
	}

	for _, name := range s.Visibility.Fields {
		if !h.Has(name) {
			return nil, model.Configf("schema %s: visibility names unknown field %q", s.Name, name)
		}
	}
	switch s.Visibility.Mode {
	case ModeOnlyInclude:
		for _, f := range h.fields {
			if !slices.Contains(s.Visibility.Fields, f.Name) {
				h.excluded[f.Name] = struct{}{}
			}
		}
	default:
		for _, name := range s.Visibility.Fields {
			h.excluded[name] = struct{}{}
		}
	}

	return h, nil
}

// MustRegister panics on an invalid schema. Intended for package-level declarations.
func MustRegister(s Schema) *Handle {
	h, err := Register(s)
	if err != nil {
		panic(err)
	}
	return h
}

func (h *Handle) Name() string        { return h.name }
func (h *Handle) LookupField() string { return h.lookup.Name }
func (h *Handle) Fields() []Field     { return slices.Clone(h.fields) }

func (h *Handle) Field(name string) (Field, bool) {
	i, ok := h.index[name]
	if !ok {
		return Field{}, false
	}
	return h.fields[i], true
}

func (h *Handle) Has(name string) bool {
	_, ok := h.index[name]
	return ok
}

// InvalidateAfter reports the fetch threshold and whether it is enabled.
func (h *Handle) InvalidateAfter() (int, bool) { return h.threshold, h.threshold > 0 }

// Partials returns a copy of the reference field to segment mapping.
func (h *Handle) Partials() map[string]string { return maps.Clone(h.partials) }

// HasPartials reports whether the schema declares any reference field.
func (h *Handle) HasPartials() bool { return len(h.partials) > 0 }

// PartialFields returns the reference fields in declaration order.
func (h *Handle) PartialFields() []string {
	out := make([]string, 0, len(h.partials))
	for _, f := range h.fields {
		if f.Type == TypeRef {
			out = append(out, f.Name)
		}
	}
	return out
}

// PartialTarget returns the segment a reference field resolves against.
func (h *Handle) PartialTarget(field string) (string, bool) {
	seg, ok := h.partials[field]
	return seg, ok
}

// Excluded reports whether the default visibility hides the field.
func (h *Handle) Excluded(name string) bool {
	_, ok := h.excluded[name]
	return ok
}

// Key returns the lookup key of a record conformed by this handle.
func (h *Handle) Key(r *model.Record) any { return r.Value(h.lookup.Name) }
