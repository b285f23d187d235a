package segment

import (
	"slices"

	"github.com/Borislavv/go-ash-segments/model"
)

// checkProjection rejects field names the schema does not declare, both in
// the projection and in call-site exclusions.
func (s *Segment) checkProjection(o model.Options) error {
	for _, name := range o.Exclude {
		if !s.schema.Has(name) {
			return model.Validationf("segment %s: cannot exclude unknown field %q", s.name, name)
		}
	}
	only, ok := o.Projection.(model.Only)
	if !ok {
		return nil
	}
	for _, spec := range only.Specs {
		if !s.schema.Has(spec.Name) {
			return model.Validationf("segment %s: cannot project unknown field %q", s.name, spec.Name)
		}
	}
	return nil
}

// view shapes a stored record for the caller. It resolves partial references
// and applies projection plus exclusions, but never touches recency or fetch
// counters of this segment. With peek set, references are resolved through
// side-effect-free lookups in every target.
func (s *Segment) view(rec *model.Record, p model.Projection, exclude []string, peek bool) model.Result {
	switch proj := p.(type) {
	case model.AllFields:
		return model.Result{Status: model.Found, Fields: s.project(rec, allSpecs(s), exclude, peek)}
	case model.Only:
		return model.Result{Status: model.Found, Fields: s.project(rec, proj.Specs, exclude, peek)}
	default:
		return model.Result{Status: model.Found, Record: s.substitute(rec, peek)}
	}
}

// substitute returns rec with every resolvable reference replaced by the
// referenced record. The stored record is never modified.
func (s *Segment) substitute(rec *model.Record, peek bool) *model.Record {
	out := rec
	for _, field := range s.schema.PartialFields() {
		res, ok := s.resolve(field, rec.Value(field), model.Full{}, peek)
		if !ok {
			continue
		}
		out = out.With(field, res.Record)
	}
	return out
}

func (s *Segment) project(rec *model.Record, specs []model.FieldSpec, exclude []string, peek bool) model.Fields {
	out := make(model.Fields, len(specs))
	for _, spec := range specs {
		if s.hidden(spec.Name, exclude) {
			continue
		}
		v := rec.Value(spec.Name)
		if _, partial := s.schema.PartialTarget(spec.Name); partial {
			nested := spec.Nested
			if nested == nil {
				nested = model.AllFields{}
			}
			if res, ok := s.resolve(spec.Name, v, nested, peek); ok {
				v = res.Value()
			}
		}
		out[spec.Name] = v
	}
	return out
}

// resolve asks the resolver for the record a reference field points at.
// Nil references are left as they are and do not count as misses. Targets in
// this same segment are always peeked.
func (s *Segment) resolve(field string, raw any, p model.Projection, peek bool) (model.Result, bool) {
	if raw == nil {
		return model.Result{}, false
	}
	target, ok := s.schema.PartialTarget(field)
	if !ok {
		return model.Result{}, false
	}
	if s.resolver == nil {
		s.counters.resolveMisses.Add(1)
		return model.Result{}, false
	}
	lookup := s.resolver.Resolve
	if peek || target == s.name {
		lookup = s.resolver.Peek
	}
	res, ok := lookup(target, raw, p)
	if !ok || !res.Found() {
		s.counters.resolveMisses.Add(1)
		s.logger.Debug("partial reference left unresolved", "segment", s.name, "field", field, "target", target, "key", raw)
		return model.Result{}, false
	}
	return res, true
}

// hidden reports whether a field is dropped from map projections: schema
// exclusions and call-site exclusions are merged, and exclusion wins.
func (s *Segment) hidden(name string, exclude []string) bool {
	if s.schema.Excluded(name) {
		return true
	}
	return slices.Contains(exclude, name)
}

func allSpecs(s *Segment) []model.FieldSpec {
	fields := s.schema.Fields()
	specs := make([]model.FieldSpec, 0, len(fields))
	for _, f := range fields {
		specs = append(specs, model.FieldSpec{Name: f.Name})
	}
	return specs
}
