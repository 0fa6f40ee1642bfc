package rotation

import (
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)

func seeded(seed uint64) *rand.Rand { return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }

// identity never moves anything, making the permutation equal the input.
type identity struct{}

func (identity) Shuffle(int, func(i, j int)) {}

func drain(s *State) []string {
	var seen []string
	if id, ok := s.Current(); ok {
		seen = append(seen, id)
	}
	for {
		id, ok := s.Advance(t0)
		if !ok {
			return seen
		}
		seen = append(seen, id)
	}
}

func TestNew_Empty(t *testing.T) {
	s := New(nil, nil, t0)
	assert.True(t, s.Exhausted())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, 0, s.Remaining())
	assert.Equal(t, 0.0, s.Progress())
	_, ok = s.Advance(t0)
	assert.False(t, ok)
	assert.Equal(t, 0, s.Cursor, "advance on exhausted state is a no-op")
}

func TestNew_SetsTimestamps(t *testing.T) {
	s := New([]string{"a"}, nil, t0)
	assert.Equal(t, t0, s.CreatedAt)
	assert.Equal(t, t0, s.LastAdvancedAt)
}

func TestFullCoverage(t *testing.T) {
	ids := []string{"2.47", "2.48", "2.14", "1.1", "3.9", "4.2", "5.5"}
	for seed := uint64(0); seed < 50; seed++ {
		s := New(ids, seeded(seed), t0)
		got := drain(s)
		require.Len(t, got, len(ids))
		assert.ElementsMatch(t, ids, got, "seed %d", seed)
		assert.True(t, s.Exhausted())
	}
}

func TestNoRepeatWithDuplicatesInInput(t *testing.T) {
	s := New([]string{"a", "b", "a", "c", "b"}, seeded(1), t0)
	got := drain(s)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, got)
}

func TestShuffleIsNotFixed(t *testing.T) {
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	first := New(ids, seeded(1), t0).Order
	differs := false
	for seed := uint64(2); seed < 20; seed++ {
		if !slices.Equal(first, New(ids, seeded(seed), t0).Order) {
			differs = true
			break
		}
	}
	assert.True(t, differs, "different seeds should produce different permutations")
}

func TestAdvance(t *testing.T) {
	s := New([]string{"a", "b", "c"}, identity{}, t0)
	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "a", cur)

	later := t0.Add(time.Hour)
	next, ok := s.Advance(later)
	require.True(t, ok)
	assert.Equal(t, "b", next)
	assert.Equal(t, later, s.LastAdvancedAt)
	assert.Equal(t, t0, s.CreatedAt)

	next, ok = s.Advance(later)
	require.True(t, ok)
	assert.Equal(t, "c", next)

	_, ok = s.Advance(later)
	assert.False(t, ok, "advancing past the last item exhausts the rotation")
	assert.True(t, s.Exhausted())
	assert.Equal(t, 1.0, s.Progress())
}

func TestResetPin(t *testing.T) {
	for seed := uint64(0); seed < 30; seed++ {
		s := New([]string{"a", "b", "c"}, seeded(seed), t0)
		s.Advance(t0)
		s.Reset([]string{"a", "b", "c"}, "b", seeded(seed+100), t0.Add(time.Hour))
		cur, ok := s.Current()
		require.True(t, ok)
		assert.Equal(t, "b", cur)
		assert.Equal(t, 0, s.Cursor)
		assert.ElementsMatch(t, []string{"a", "b", "c"}, s.Order)
		assert.Equal(t, t0.Add(time.Hour), s.CreatedAt)
		assert.Equal(t, t0.Add(time.Hour), s.LastAdvancedAt)
	}
}

func TestResetPinNotInIDsIsIgnored(t *testing.T) {
	s := New(nil, nil, t0)
	s.Reset([]string{"a", "b"}, "zzz", identity{}, t0)
	assert.Equal(t, []string{"a", "b"}, s.Order)
}

func TestHasRemaining(t *testing.T) {
	s := New([]string{"a", "b", "c"}, identity{}, t0)
	s.Advance(t0)
	assert.False(t, s.HasRemaining("a"))
	assert.True(t, s.HasRemaining("b"))
	assert.True(t, s.HasRemaining("c"))
	assert.False(t, s.HasRemaining("x"))
	s.Advance(t0)
	s.Advance(t0)
	assert.False(t, s.HasRemaining("c"))
}

func TestItemAt(t *testing.T) {
	s := New([]string{"a", "b", "c"}, identity{}, t0)
	s.Advance(t0)
	tests := []struct {
		offset int
		want   string
		ok     bool
	}{
		{-1, "a", true},
		{0, "b", true},
		{1, "c", true},
		{2, "", false},
		{-2, "", false},
	}
	for _, tt := range tests {
		got, ok := s.ItemAt(tt.offset)
		assert.Equal(t, tt.ok, ok, "offset %d", tt.offset)
		assert.Equal(t, tt.want, got, "offset %d", tt.offset)
	}
}

func TestRemainingAndProgress(t *testing.T) {
	s := New([]string{"a", "b", "c", "d"}, identity{}, t0)
	assert.Equal(t, 4, s.Remaining())
	assert.Equal(t, 0.0, s.Progress())
	s.Advance(t0)
	assert.Equal(t, 3, s.Remaining())
	assert.InDelta(t, 0.25, s.Progress(), 1e-9)
}

func TestSameSet(t *testing.T) {
	s := New([]string{"a", "b", "c"}, seeded(3), t0)
	assert.True(t, s.SameSet([]string{"c", "a", "b"}))
	assert.True(t, s.SameSet([]string{"c", "a", "b", "a"}))
	assert.False(t, s.SameSet([]string{"a", "b"}))
	assert.False(t, s.SameSet([]string{"a", "b", "d"}))
	assert.False(t, s.SameSet([]string{"a", "b", "c", "d"}))
	assert.True(t, New(nil, nil, t0).SameSet(nil))
}

func TestClone(t *testing.T) {
	s := New([]string{"a", "b", "c"}, identity{}, t0)
	cp := s.Clone()
	cp.Advance(t0)
	cp.Order[0] = "mutated"
	assert.Equal(t, 0, s.Cursor)
	assert.Equal(t, "a", s.Order[0])

	var nilState *State
	assert.Nil(t, nilState.Clone())
}

func TestEncodeDecode(t *testing.T) {
	s := New([]string{"a", "b"}, identity{}, t0)
	s.Advance(t0.Add(time.Minute))
	b, err := s.Encode()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"order":["a","b"]`)
	assert.Contains(t, string(b), `"cursor":1`)
	assert.Contains(t, string(b), `"createdAt":"2024-01-01T03:00:00Z"`)
	assert.Contains(t, string(b), `"lastAdvancedAt":"2024-01-01T03:01:00Z"`)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, s.Order, got.Order)
	assert.Equal(t, s.Cursor, got.Cursor)
	assert.True(t, s.LastAdvancedAt.Equal(got.LastAdvancedAt))
}

func TestEncodeEmptyOrder(t *testing.T) {
	b, err := (&State{}).Encode()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"order":[]`)
}

func TestDecodeRejectsCorruptState(t *testing.T) {
	for _, in := range []string{
		`not json`,
		`{"order":["a","a"],"cursor":0}`,
		`{"order":["a"],"cursor":2}`,
		`{"order":["a"],"cursor":-1}`,
	} {
		_, err := Decode([]byte(in))
		assert.Error(t, err, in)
	}
}
