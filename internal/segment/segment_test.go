package segment

import (
	"testing"

	"github.com/Borislavv/go-ash-segments/config"
	"github.com/Borislavv/go-ash-segments/model"
	"github.com/Borislavv/go-ash-segments/schema"
	"github.com/Borislavv/go-ash-segments/tests/help"
	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/require"
)

// segments is a minimal resolver over sibling segments, as the registry provides.
type segments map[string]*Segment

func (r segments) Resolve(name string, key any, p model.Projection) (model.Result, bool) {
	s, ok := r[name]
	if !ok {
		return model.Result{}, false
	}
	res, err := s.Get(key, model.WithProjection(p))
	return res, err == nil
}

func (r segments) Peek(name string, key any, p model.Projection) (model.Result, bool) {
	s, ok := r[name]
	if !ok {
		return model.Result{}, false
	}
	res, err := s.View(key, model.WithProjection(p))
	return res, err == nil
}

func (segments) Enter(string, any) func() { return func() {} }

func newSegment(t *testing.T, cfg *config.SegmentCfg, s schema.Schema) *Segment {
	t.Helper()
	h, err := schema.Register(s)
	require.NoError(t, err)
	seg, err := New(cfg, h, nil, help.Logger())
	require.NoError(t, err)
	return seg
}

func usersSegment(t *testing.T, capacity int, evictOnFull bool) *Segment {
	return newSegment(t, help.SegmentCfg("users", capacity, evictOnFull), help.Users())
}

// nodes builds a segment whose next field references its own records:
// 1 and 2 reference nothing, 3 references 1. Keys are [3 2 1].
func nodes(t *testing.T, invalidateAfter *int) *Segment {
	t.Helper()
	s := newSegment(t, help.SegmentCfg("nodes", 10, true), schema.Schema{
		Name:            "Node",
		Fields:          []schema.Field{schema.Int("id"), schema.Ref("next", "Node").Opt()},
		LookupField:     "id",
		Partials:        map[string]string{"next": "nodes"},
		InvalidateAfter: invalidateAfter,
	})
	s.SetResolver(segments{"nodes": s})
	require.NoError(t, s.Add(model.Fields{"id": 1}, false))
	require.NoError(t, s.Add(model.Fields{"id": 2}, false))
	require.NoError(t, s.Add(model.Fields{"id": 3, "next": 1}, false))
	return s
}

func addUsers(t *testing.T, s *Segment, ids ...int) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, s.Add(help.User(id, "user"), false))
	}
}

// TestNew_Invalid checks that a segment needs a name and a schema.
func TestNew_Invalid(t *testing.T) {
	_, err := New(help.SegmentCfg("", 1, true), nil, nil, nil)
	require.ErrorIs(t, err, model.ErrConfig)

	_, err = New(help.SegmentCfg("users", 1, true), nil, nil, nil)
	require.ErrorIs(t, err, model.ErrConfig)
}

// TestSegment_RoundTrip checks that a stored record reads back unchanged and that map projections hide excluded fields.
func TestSegment_RoundTrip(t *testing.T) {
	s := usersSegment(t, 10, true)
	require.NoError(t, s.Add(model.Fields{"id": 1, "name": "Foo", "password": "secret"}, false))

	res, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, model.Found, res.Status)
	require.Equal(t, int64(1), res.Record.Value("id"))
	require.Equal(t, "Foo", res.Record.Value("name"))
	require.Equal(t, "secret", res.Record.Value("password"))

	res, err = s.Get(1, model.WithAllFields())
	require.NoError(t, err)
	require.Equal(t, model.Fields{"id": int64(1), "name": "Foo"}, res.Fields)

	res, err = s.Get(1, model.WithFields("name", "password"))
	require.NoError(t, err)
	require.Equal(t, model.Fields{"name": "Foo"}, res.Fields)

	res, err = s.Get(1, model.WithAllFields(), model.WithExclude("name"))
	require.NoError(t, err)
	require.Equal(t, model.Fields{"id": int64(1)}, res.Fields)
}

// TestSegment_Add_Validation checks that a nonconforming record is rejected without mutation.
func TestSegment_Add_Validation(t *testing.T) {
	s := usersSegment(t, 10, true)

	err := s.Add(model.Fields{"id": "one", "name": "Foo"}, false)
	require.ErrorIs(t, err, model.ErrValidation)
	err = s.Add(model.Fields{"id": 1, "name": "Foo", "email": "x"}, false)
	require.ErrorIs(t, err, model.ErrValidation)
	require.Zero(t, s.Len())
}

// TestSegment_Add_Duplicate checks duplicate rejection and that overwrite replaces the record.
func TestSegment_Add_Duplicate(t *testing.T) {
	s := usersSegment(t, 10, true)
	require.NoError(t, s.Add(help.User(1, "Foo"), false))

	err := s.Add(help.User(1, "Bar"), false)
	require.ErrorIs(t, err, model.ErrDuplicateKey)
	rec, _ := s.Peek(1)
	require.Equal(t, "Foo", rec.Value("name"))

	require.NoError(t, s.Add(help.User(1, "Bar"), true))
	rec, _ = s.Peek(1)
	require.Equal(t, "Bar", rec.Value("name"))
	require.Equal(t, 1, s.Len())
	require.Equal(t, int64(1), s.Metrics().Overwrites)
}

// TestSegment_Add_OverwriteResetsFetches checks that an overwrite restarts the invalidation countdown.
func TestSegment_Add_OverwriteResetsFetches(t *testing.T) {
	us := help.Users()
	us.InvalidateAfter = schema.InvalidateAfter(2)
	s := newSegment(t, help.SegmentCfg("users", 10, true), us)

	require.NoError(t, s.Add(help.User(1, "Foo"), false))
	_, err := s.Get(1)
	require.NoError(t, err)

	require.NoError(t, s.Add(help.User(1, "Bar"), true))
	res, err := s.Get(1)
	require.NoError(t, err)
	require.False(t, res.Invalidated)
	require.True(t, s.Contains(1))

	res, err = s.Get(1)
	require.NoError(t, err)
	require.True(t, res.Invalidated)
	require.False(t, s.Contains(1))
}

// TestSegment_AccessOrder checks that Get moves only the read key to the MRU end.
func TestSegment_AccessOrder(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2, 3, 4)
	require.Equal(t, []any{int64(4), int64(3), int64(2), int64(1)}, s.Keys())

	_, err := s.Get(2)
	require.NoError(t, err)
	require.Equal(t, []any{int64(2), int64(4), int64(3), int64(1)}, s.Keys())

	_, err = s.Get(1)
	require.NoError(t, err)
	require.Equal(t, []any{int64(1), int64(2), int64(4), int64(3)}, s.Keys())
}

// TestSegment_Eviction checks that a full evicting segment drops its LRU record.
func TestSegment_Eviction(t *testing.T) {
	s := usersSegment(t, 2, true)
	addUsers(t, s, 1, 2, 3)

	require.Equal(t, 2, s.Len())
	require.False(t, s.Contains(1))
	require.True(t, s.Contains(2))
	require.True(t, s.Contains(3))
	require.Equal(t, int64(1), s.Metrics().Evictions)
}

// TestSegment_Eviction_FollowsRecency checks that a read protects a record from the next eviction.
func TestSegment_Eviction_FollowsRecency(t *testing.T) {
	s := usersSegment(t, 2, true)
	addUsers(t, s, 1, 2)
	_, err := s.Get(1)
	require.NoError(t, err)

	addUsers(t, s, 3)
	require.ElementsMatch(t, []any{int64(1), int64(3)}, s.Keys())
}

// TestSegment_CapacityExceeded checks strict capacity without eviction.
func TestSegment_CapacityExceeded(t *testing.T) {
	s := usersSegment(t, 2, false)
	addUsers(t, s, 1, 2)

	err := s.Add(help.User(3, "user"), false)
	require.ErrorIs(t, err, model.ErrCapacityExceeded)
	require.Equal(t, []any{int64(2), int64(1)}, s.Keys())
	require.Equal(t, int64(1), s.Metrics().Rejected)

	// overwriting an existing key needs no room
	require.NoError(t, s.Add(help.User(1, "other"), true))
}

// TestSegment_ZeroCapacity checks that a zero capacity admits nothing, even with eviction on.
func TestSegment_ZeroCapacity(t *testing.T) {
	s := usersSegment(t, 0, true)
	err := s.Add(help.User(1, "user"), false)
	require.ErrorIs(t, err, model.ErrCapacityExceeded)
}

// TestSegment_Unbounded checks that a negative capacity never evicts.
func TestSegment_Unbounded(t *testing.T) {
	s := newSegment(t, help.UnboundedCfg("users"), help.Users())
	for i := range 5000 {
		require.NoError(t, s.Add(help.User(i, "user"), false))
	}
	require.Equal(t, 5000, s.Len())
}

// TestSegment_Invalidation checks that the read reaching the threshold returns the record and removes it.
func TestSegment_Invalidation(t *testing.T) {
	us := help.Users()
	us.InvalidateAfter = schema.InvalidateAfter(1)
	s := newSegment(t, help.SegmentCfg("users", 10, true), us)
	require.NoError(t, s.Add(help.User(1, "Foo"), false))

	res, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, "Foo", res.Record.Value("name"))
	require.True(t, res.Invalidated)
	require.True(t, s.InvalidatedLast())
	require.Zero(t, s.Len())

	_, err = s.Get(1)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.False(t, s.InvalidatedLast())
}

// TestSegment_Invalidation_CountsHits checks the Nth read triggers invalidation, not earlier.
func TestSegment_Invalidation_CountsHits(t *testing.T) {
	us := help.Users()
	us.InvalidateAfter = schema.InvalidateAfter(3)
	s := newSegment(t, help.SegmentCfg("users", 10, true), us)
	addUsers(t, s, 1)

	for i := range 2 {
		res, err := s.Get(1)
		require.NoError(t, err, i)
		require.False(t, res.Invalidated)
	}
	res, err := s.Get(1)
	require.NoError(t, err)
	require.True(t, res.Invalidated)
	require.Equal(t, int64(1), s.Metrics().Invalidations)
}

// TestSegment_Get_Miss checks NotFound and default handling.
func TestSegment_Get_Miss(t *testing.T) {
	s := usersSegment(t, 10, true)

	res, err := s.Get(1)
	require.ErrorIs(t, err, model.ErrNotFound)
	require.Equal(t, model.Missing, res.Status)

	res, err = s.Get(1, model.WithDefault("none"))
	require.NoError(t, err)
	require.Equal(t, model.Defaulted, res.Status)
	require.Equal(t, "none", res.Value())

	res, err = s.Get(1, model.WithDefault(nil))
	require.NoError(t, err)
	require.Equal(t, model.Defaulted, res.Status)
	require.Nil(t, res.Value())

	// a key that can never be stored is a plain miss
	_, err = s.Get("not-a-number")
	require.ErrorIs(t, err, model.ErrNotFound)
	require.Equal(t, int64(4), s.Metrics().Misses)
}

// TestSegment_Get_KeyNormalization checks that numerically equal keys hit the same record.
func TestSegment_Get_KeyNormalization(t *testing.T) {
	s := usersSegment(t, 10, true)
	require.NoError(t, s.Add(model.Fields{"id": uint8(7), "name": "Foo"}, false))

	for _, key := range []any{7, int32(7), int64(7), uint(7), 7.0} {
		res, err := s.Get(key)
		require.NoError(t, err, key)
		require.True(t, res.Found())
	}
}

// TestSegment_Get_UnknownField checks that projecting or excluding an undeclared field fails.
func TestSegment_Get_UnknownField(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2)

	_, err := s.Get(1, model.WithFields("email"))
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = s.Get(1, model.WithAllFields(), model.WithExclude("email"))
	require.ErrorIs(t, err, model.ErrValidation)

	// a rejected read has no recency effect
	require.Equal(t, []any{int64(2), int64(1)}, s.Keys())
}

// TestSegment_Remove checks removal, misses and defaults.
func TestSegment_Remove(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2)

	res, err := s.Remove(1)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Record.Value("id"))
	require.Equal(t, []any{int64(2)}, s.Keys())

	_, err = s.Remove(1)
	require.ErrorIs(t, err, model.ErrNotFound)

	res, err = s.Remove(1, model.WithDefault(0))
	require.NoError(t, err)
	require.Equal(t, 0, res.Value())
}

// TestSegment_Update checks that fields merge, the record moves to MRU and the key is immutable.
func TestSegment_Update(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2)

	require.NoError(t, s.Update(1, model.Fields{"name": "Bar"}))
	rec, _ := s.Peek(1)
	require.Equal(t, "Bar", rec.Value("name"))
	require.Equal(t, []any{int64(1), int64(2)}, s.Keys())

	err := s.Update(1, model.Fields{"id": 5})
	require.ErrorIs(t, err, model.ErrValidation)
	require.NoError(t, s.Update(1, model.Fields{"id": 1, "password": "p"}))

	err = s.Update(3, model.Fields{"name": "Baz"})
	require.ErrorIs(t, err, model.ErrNotFound)
}

// TestSegment_Update_Validation checks that a bad update leaves record and order untouched.
func TestSegment_Update_Validation(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2)

	err := s.Update(1, model.Fields{"name": 42})
	require.ErrorIs(t, err, model.ErrValidation)
	err = s.Update(1, model.Fields{"name": nil})
	require.ErrorIs(t, err, model.ErrValidation)

	rec, _ := s.Peek(1)
	require.Equal(t, "user", rec.Value("name"))
	require.Equal(t, []any{int64(2), int64(1)}, s.Keys())
}

// TestSegment_Update_AfterInvalidation checks that an update whose read hits the threshold stores a fresh record.
func TestSegment_Update_AfterInvalidation(t *testing.T) {
	us := help.Users()
	us.InvalidateAfter = schema.InvalidateAfter(1)
	s := newSegment(t, help.SegmentCfg("users", 10, true), us)
	addUsers(t, s, 1)

	require.NoError(t, s.Update(1, model.Fields{"name": "Bar"}))
	require.True(t, s.InvalidatedLast())
	require.Equal(t, 1, s.Len())

	res, err := s.Get(1)
	require.NoError(t, err)
	require.Equal(t, "Bar", res.Record.Value("name"))
	require.True(t, res.Invalidated)
}

// TestSegment_Clear checks that clear empties both the index and the order.
func TestSegment_Clear(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2, 3)

	s.Clear()
	require.Zero(t, s.Len())
	require.Empty(t, s.Keys())
	require.False(t, s.Contains(1))

	addUsers(t, s, 1)
	require.Equal(t, 1, s.Len())
}

// TestSegment_Ends checks First/Last and the limited Newest/Oldest sequences.
func TestSegment_Ends(t *testing.T) {
	s := usersSegment(t, 10, true)
	_, ok := s.First()
	require.False(t, ok)

	addUsers(t, s, 1, 2, 3)
	first, ok := s.First()
	require.True(t, ok)
	require.Equal(t, int64(3), first.Value("id"))
	last, ok := s.Last()
	require.True(t, ok)
	require.Equal(t, int64(1), last.Value("id"))

	var ids []any
	for r := range s.Newest(2) {
		ids = append(ids, r.Value("id"))
	}
	require.Equal(t, []any{int64(3), int64(2)}, ids)

	ids = ids[:0]
	for r := range s.Oldest(2) {
		ids = append(ids, r.Value("id"))
	}
	require.Equal(t, []any{int64(1), int64(2)}, ids)

	// a non-positive limit yields everything
	ids = ids[:0]
	for r := range s.Oldest(0) {
		ids = append(ids, r.Value("id"))
	}
	require.Equal(t, []any{int64(1), int64(2), int64(3)}, ids)
	n := 0
	for range s.Newest(-5) {
		n++
	}
	require.Equal(t, 3, n)
}

// TestSegment_SelfReference_AccessOrder checks that resolving a reference into the same segment moves only the read key.
func TestSegment_SelfReference_AccessOrder(t *testing.T) {
	s := nodes(t, nil)

	res, err := s.Get(3)
	require.NoError(t, err)
	next, ok := res.Record.Value("next").(*model.Record)
	require.True(t, ok)
	require.Equal(t, int64(1), next.Value("id"))
	require.Equal(t, []any{int64(3), int64(2), int64(1)}, s.Keys())

	_, err = s.Get(2)
	require.NoError(t, err)
	require.Equal(t, []any{int64(2), int64(3), int64(1)}, s.Keys())
}

// TestSegment_SelfReference_FetchCount checks that resolving a reference into the same segment counts no fetch on the target.
func TestSegment_SelfReference_FetchCount(t *testing.T) {
	s := nodes(t, schema.InvalidateAfter(2))

	for i := range 2 {
		res, err := s.Get(3, model.WithAllFields())
		require.NoError(t, err)
		require.Equal(t, i == 1, res.Invalidated)
		require.Equal(t, model.Fields{"id": int64(1), "next": nil}, res.Fields["next"])
	}
	require.False(t, s.Contains(3))
	require.True(t, s.Contains(1))

	res, err := s.Get(1)
	require.NoError(t, err)
	require.False(t, res.Invalidated)
}

// TestSegment_View checks that View shapes a record without moving or counting it.
func TestSegment_View(t *testing.T) {
	s := nodes(t, schema.InvalidateAfter(1))

	for range 2 {
		res, err := s.View(1, model.WithAllFields())
		require.NoError(t, err)
		require.Equal(t, model.Fields{"id": int64(1), "next": nil}, res.Fields)
	}
	require.Equal(t, []any{int64(3), int64(2), int64(1)}, s.Keys())
	require.Equal(t, 3, s.Len())
	require.Zero(t, s.Metrics().Hits)

	_, err := s.View(9)
	require.ErrorIs(t, err, model.ErrNotFound)
	res, err := s.View(9, model.WithDefault("none"))
	require.NoError(t, err)
	require.Equal(t, model.Defaulted, res.Status)
	_, err = s.View(1, model.WithFields("color"))
	require.ErrorIs(t, err, model.ErrValidation)
}

// TestSegment_Iterate checks that iteration is restartable and side-effect free.
func TestSegment_Iterate(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2, 3)

	for range 2 {
		n := 0
		for range s.Iterate() {
			n++
		}
		require.Equal(t, 3, n)
	}
	require.Equal(t, []any{int64(3), int64(2), int64(1)}, s.Keys())
	require.Zero(t, s.Metrics().Hits)
}

// TestSegment_Configure checks that shrinking capacity applies on the next insert.
func TestSegment_Configure(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2, 3)

	s.Configure(2, false)
	require.Equal(t, 3, s.Len())
	err := s.Add(help.User(4, "user"), false)
	require.ErrorIs(t, err, model.ErrCapacityExceeded)

	s.Configure(2, true)
	addUsers(t, s, 4)
	require.Equal(t, []any{int64(4), int64(3)}, s.Keys())
	require.Equal(t, int64(2), s.Metrics().Evictions)
}

// TestSegment_Configure_EvictsDownToCapacity checks that one insert restores a shrunk capacity.
func TestSegment_Configure_EvictsDownToCapacity(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1, 2, 3)

	s.Configure(1, true)
	addUsers(t, s, 4)
	require.Equal(t, 1, s.Len())
	require.Equal(t, []any{int64(4)}, s.Keys())

	// overwriting needs no room, so nothing is evicted
	s.Configure(0, true)
	require.NoError(t, s.Add(help.User(4, "other"), true))
	require.ErrorIs(t, s.Add(help.User(5, "user"), false), model.ErrCapacityExceeded)
	require.Equal(t, []any{int64(4)}, s.Keys())
}

// TestSegment_Bind checks that rebinding keeps stored records.
func TestSegment_Bind(t *testing.T) {
	s := usersSegment(t, 10, true)
	addUsers(t, s, 1)

	us := help.Users()
	us.Visibility = schema.OnlyInclude("id")
	require.NoError(t, s.Bind(schema.MustRegister(us)))

	res, err := s.Get(1, model.WithAllFields())
	require.NoError(t, err)
	require.Equal(t, model.Fields{"id": int64(1)}, res.Fields)
	require.Error(t, s.Bind(nil))
}

// TestSegment_ErrorsCarryCodes checks that returned errors expose their kind code.
func TestSegment_ErrorsCarryCodes(t *testing.T) {
	s := usersSegment(t, 1, false)
	_, err := s.Get(1)
	require.Equal(t, errors.CodeNotFound, errors.GetCode(err))

	addUsers(t, s, 1)
	require.Equal(t, errors.CodeAlreadyExists, errors.GetCode(s.Add(help.User(1, "user"), false)))
	require.Equal(t, model.CodeCapacityExceeded, errors.GetCode(s.Add(help.User(2, "user"), false)))
	require.Equal(t, errors.CodeSchemaFailed, errors.GetCode(s.Update(1, model.Fields{"name": 1})))
}
