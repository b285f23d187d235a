package model

// Projection selects the shape of a read result. It is a closed set:
// Full, AllFields and Only.
type Projection interface {
	isProjection()
}

// Full returns the whole typed record. Schema exclusions are not applied,
// so the result stays usable programmatically.
type Full struct{}

// AllFields returns every field as an unordered Fields map, minus exclusions.
type AllFields struct{}

// Only returns the listed fields as a Fields map, minus exclusions.
type Only struct {
	Specs []FieldSpec
}

// FieldSpec names an included field. Nested, when set, shapes the value of a
// resolved partial reference; it is ignored for plain fields.
type FieldSpec struct {
	Name   string
	Nested Projection
}

func (Full) isProjection()      {}
func (AllFields) isProjection() {}
func (Only) isProjection()      {}

// Include builds an Only projection from plain field names.
func Include(names ...string) Only {
	specs := make([]FieldSpec, 0, len(names))
	for _, name := range names {
		specs = append(specs, FieldSpec{Name: name})
	}
	return Only{Specs: specs}
}

// With appends a field whose resolved reference is shaped by nested.
func (o Only) With(name string, nested Projection) Only {
	specs := make([]FieldSpec, len(o.Specs), len(o.Specs)+1)
	copy(specs, o.Specs)
	return Only{Specs: append(specs, FieldSpec{Name: name, Nested: nested})}
}

// Names returns the included field names in declaration order.
func (o Only) Names() []string {
	names := make([]string, 0, len(o.Specs))
	for _, spec := range o.Specs {
		names = append(names, spec.Name)
	}
	return names
}
