package segment

import (
	"container/list"
	"fmt"
	"regexp"

	"github.com/Borislavv/go-ash-segments/model"
)

// Search returns up to WithLimit records matching pred, MRU first, shaped by
// the requested projection. Matches are formatted directly from the store and
// their references are peeked: no record of this or any referenced segment
// is moved or counted toward invalidation.
func (s *Segment) Search(pred model.Predicate, opts ...model.Option) ([]model.Result, error) {
	o := model.NewOptions(opts...)
	if pred == nil {
		return nil, model.Validationf("segment %s: nil search predicate", s.name)
	}
	if err := s.checkProjection(o); err != nil {
		return nil, err
	}

	matches := s.collect(pred, o.Limit)

	out := make([]model.Result, 0, len(matches))
	for _, rec := range matches {
		out = append(out, s.view(rec, o.Projection, o.Exclude, true))
	}
	return out, nil
}

// SearchPattern is Search with a predicate matching expr against the string
// form of a field, the lookup field unless WithField says otherwise. The
// pattern must match at the start of the value.
func (s *Segment) SearchPattern(expr string, opts ...model.Option) ([]model.Result, error) {
	o := model.NewOptions(opts...)
	field := o.Field
	if field == "" {
		field = s.schema.LookupField()
	}
	if !s.schema.Has(field) {
		return nil, model.Validationf("segment %s: cannot match unknown field %q", s.name, field)
	}
	re, err := regexp.Compile(`^(?:` + expr + `)`)
	if err != nil {
		return nil, model.Validationf("segment %s: bad pattern %q: %s", s.name, expr, err.Error())
	}
	return s.Search(func(r *model.Record) bool {
		v := r.Value(field)
		if v == nil {
			return false
		}
		return re.MatchString(fmt.Sprint(v))
	}, opts...)
}

// InvalidateAll removes and returns up to limit records matching pred,
// scanning MRU first. A negative limit removes every match.
func (s *Segment) InvalidateAll(pred model.Predicate, limit int) []*model.Record {
	if pred == nil {
		return nil
	}
	var removed []*model.Record
	s.store.walk(false, func(el *list.Element) bool {
		if limit >= 0 && len(removed) >= limit {
			return false
		}
		e := el.Value.(*entry)
		if pred(e.record) && s.store.remove(el) {
			removed = append(removed, e.record)
		}
		return true
	})
	if n := len(removed); n > 0 {
		s.counters.invalidations.Add(int64(n))
		s.logger.Debug("segment invalidated matching records", "segment", s.name, "items", n)
	}
	return removed
}

func (s *Segment) collect(pred model.Predicate, limit int) []*model.Record {
	var matches []*model.Record
	s.store.walk(false, func(el *list.Element) bool {
		if limit >= 0 && len(matches) >= limit {
			return false
		}
		if rec := el.Value.(*entry).record; pred(rec) {
			matches = append(matches, rec)
		}
		return true
	})
	return matches
}
