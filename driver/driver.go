// Package driver defines the persistence boundary of the segment registry.
//
// A Driver never sees segment internals. The registry pulls Fetch results
// into Segment.Add to populate a segment, and pushes the records of
// Segment.Iterate into Export. A location names a unit of storage (a file,
// a table, an object), usually the segment name.
package driver

import (
	"context"
	"iter"
	"slices"

	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
	"github.com/jmgilman/go/errors"
)

// ErrUnsupported is returned when a query uses a feature the driver lacks.
var ErrUnsupported = errors.New(errors.CodeInvalidInput, "unsupported driver query")

type Driver interface {
	// Fetch lazily yields the rows stored at location that satisfy q.
	// h may be used to map storage columns onto schema fields; it may be nil.
	Fetch(ctx context.Context, location string, q Query, h *schema.Handle) iter.Seq2[model.Fields, error]

	// Export stores records at location, replacing rows with the same key
	// where the backend supports it. include limits the stored fields (all
	// when empty), exclude removes fields from that set.
	Export(ctx context.Context, location string, records iter.Seq[*model.Record], include, exclude []string) error
}

// Remapper is implemented by drivers whose physical names differ from
// logical locations. It is consumed once at setup.
type Remapper interface {
	Remap(names map[string]string)
}

// Refresher is implemented by drivers holding a connection that can be reopened.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Query narrows a Fetch.
type Query struct {
	// Where is a backend-native condition (an SQL expression for SQL
	// drivers) with positional Args. Drivers without a query language
	// return ErrUnsupported when it is set.
	Where string
	Args  []any

	// Match filters decoded rows on the client side; nil accepts all.
	Match func(model.Fields) bool

	// Limit caps the number of yielded rows; non-positive means no limit.
	Limit int
}

// Accept applies Match.
func (q Query) Accept(f model.Fields) bool {
	return q.Match == nil || q.Match(f)
}

// Project returns the exported shape of a record.
func Project(r *model.Record, include, exclude []string) model.Fields {
	out := r.Fields()
	if len(include) > 0 {
		for name := range out {
			if !slices.Contains(include, name) {
				delete(out, name)
			}
		}
	}
	for _, name := range exclude {
		delete(out, name)
	}
	return out
}

// FetchOne returns the first row at location that satisfies q. Limit is
// forced to 1; no matching row is reported as model.ErrNotFound.
func FetchOne(ctx context.Context, d Driver, location string, q Query, h *schema.Handle) (model.Fields, error) {
	q.Limit = 1
	for row, err := range d.Fetch(ctx, location, q, h) {
		if err != nil {
			return nil, err
		}
		return row, nil
	}
	return nil, model.NotFoundf("location %s: no matching row", location)
}

// Fail yields a single error. Drivers use it to report setup failures from Fetch.
func Fail(err error) iter.Seq2[model.Fields, error] {
	return func(yield func(model.Fields, error) bool) {
		yield(nil, err)
	}
}
