package driver

import (
	"context"
	"iter"
	"testing"

	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
	"github.com/stretchr/testify/require"
)

// TestProject applies include then exclude.
func TestProject(t *testing.T) {
	r := model.NewRecord("User", model.Fields{"id": int64(1), "name": "Foo", "password": "x"})

	require.Equal(t, r.Fields(), Project(r, nil, nil))
	require.Equal(t, model.Fields{"id": int64(1)}, Project(r, []string{"id"}, nil))
	require.Equal(t, model.Fields{"id": int64(1), "name": "Foo"}, Project(r, nil, []string{"password"}))
	require.Equal(t, model.Fields{"name": "Foo"}, Project(r, []string{"id", "name"}, []string{"id"}))

	// the record itself is untouched
	require.Equal(t, 3, r.Len())
}

// TestQuery_Accept treats a nil matcher as accept-all.
func TestQuery_Accept(t *testing.T) {
	require.True(t, Query{}.Accept(model.Fields{}))
	q := Query{Match: func(f model.Fields) bool { return f["id"] == 1 }}
	require.True(t, q.Accept(model.Fields{"id": 1}))
	require.False(t, q.Accept(model.Fields{"id": 2}))
}

// TestFail yields exactly one error.
func TestFail(t *testing.T) {
	n := 0
	for row, err := range Fail(ErrUnsupported) {
		require.Nil(t, row)
		require.ErrorIs(t, err, ErrUnsupported)
		n++
	}
	require.Equal(t, 1, n)
}

// memory serves fixed rows and records the last query it got.
type memory struct {
	rows []model.Fields
	last Query
}

func (d *memory) Fetch(_ context.Context, _ string, q Query, _ *schema.Handle) iter.Seq2[model.Fields, error] {
	d.last = q
	return func(yield func(model.Fields, error) bool) {
		for _, row := range d.rows {
			if q.Accept(row) && !yield(row, nil) {
				return
			}
		}
	}
}

func (d *memory) Export(context.Context, string, iter.Seq[*model.Record], []string, []string) error {
	return nil
}

// TestFetchOne returns the first match, NotFound without one, and driver errors as is.
func TestFetchOne(t *testing.T) {
	d := &memory{rows: []model.Fields{{"id": 1}, {"id": 2}}}

	row, err := FetchOne(context.Background(), d, "users", Query{
		Match: func(f model.Fields) bool { return f["id"] == 2 },
		Limit: 10,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, model.Fields{"id": 2}, row)
	require.Equal(t, 1, d.last.Limit)

	_, err = FetchOne(context.Background(), d, "users", Query{Match: func(model.Fields) bool { return false }}, nil)
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = FetchOne(context.Background(), failing{}, "users", Query{}, nil)
	require.ErrorIs(t, err, ErrUnsupported)
}

type failing struct{}

func (failing) Fetch(context.Context, string, Query, *schema.Handle) iter.Seq2[model.Fields, error] {
	return Fail(ErrUnsupported)
}

func (failing) Export(context.Context, string, iter.Seq[*model.Record], []string, []string) error {
	return ErrUnsupported
}
