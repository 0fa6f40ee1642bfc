// Package rotation implements a non-repeating rotation over a set of item ids.
//
// A State holds a shuffled permutation of the candidate ids and a cursor
// pointing at the item currently being served. Advancing moves the cursor
// forward; once it runs past the end the rotation is exhausted and must be
// reset with a fresh shuffle. Between two resets every id is served exactly
// once, in permutation order.
//
// State is a plain value with no locking and no I/O. Persistence and
// wall-clock decisions live in the engine package.
package rotation

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"
)

// Shuffler is the subset of *rand.Rand the package needs. A nil Shuffler
// uses the global math/rand/v2 source.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalSource struct{}

func (globalSource) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// State is one rotation cycle. The JSON form is the persisted layout:
//
//	{"order": [...], "cursor": 0, "createdAt": "...", "lastAdvancedAt": "..."}
type State struct {
	Order          []string  `json:"order"`
	Cursor         int       `json:"cursor"`
	CreatedAt      time.Time `json:"createdAt"`
	LastAdvancedAt time.Time `json:"lastAdvancedAt"`
}

// New shuffles ids into a fresh rotation. Duplicate ids are dropped. An empty
// input yields an empty, already exhausted state.
func New(ids []string, rng Shuffler, now time.Time) *State {
	s := &State{}
	s.Reset(ids, "", rng, now)
	return s
}

// Reset reshuffles ids and rewinds the cursor. If pin is non-empty and part
// of ids it is moved to the front so it becomes the current item.
func (s *State) Reset(ids []string, pin string, rng Shuffler, now time.Time) {
	if rng == nil {
		rng = globalSource{}
	}
	order := dedupe(ids)
	rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	if pin != "" {
		if i := slices.Index(order, pin); i > 0 {
			order = slices.Delete(order, i, i+1)
			order = slices.Insert(order, 0, pin)
		}
	}
	s.Order = order
	s.Cursor = 0
	s.CreatedAt = now
	s.LastAdvancedAt = now
}

// Advance moves to the next item and returns it. It reports false when the
// rotation was already exhausted (a no-op) or became exhausted by this call.
func (s *State) Advance(now time.Time) (string, bool) {
	if s.Exhausted() {
		return "", false
	}
	s.Cursor++
	s.LastAdvancedAt = now
	return s.Current()
}

// Exhausted reports whether every item of the permutation has been served.
func (s *State) Exhausted() bool { return s.Cursor >= len(s.Order) }

// Current returns the item being served.
func (s *State) Current() (string, bool) {
	if s.Exhausted() || s.Cursor < 0 {
		return "", false
	}
	return s.Order[s.Cursor], true
}

// Remaining returns how many items are left including the current one.
func (s *State) Remaining() int { return max(0, len(s.Order)-s.Cursor) }

// Progress returns the served fraction in [0, 1]; 0 for an empty rotation.
func (s *State) Progress() float64 {
	if len(s.Order) == 0 {
		return 0
	}
	return min(1, float64(s.Cursor)/float64(len(s.Order)))
}

// HasRemaining reports whether id is at or after the cursor.
func (s *State) HasRemaining(id string) bool {
	if s.Cursor >= len(s.Order) {
		return false
	}
	return slices.Contains(s.Order[max(0, s.Cursor):], id)
}

// ItemAt looks ahead offset positions from the cursor.
func (s *State) ItemAt(offset int) (string, bool) {
	i := s.Cursor + offset
	if i < 0 || i >= len(s.Order) {
		return "", false
	}
	return s.Order[i], true
}

// SameSet reports whether the permutation covers exactly the given ids,
// ignoring order and duplicates.
func (s *State) SameSet(ids []string) bool {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	if len(want) != len(s.Order) {
		return false
	}
	for _, id := range s.Order {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Order = slices.Clone(s.Order)
	return &cp
}

// Validate checks the structural invariants of a decoded state.
func (s *State) Validate() error {
	seen := make(map[string]struct{}, len(s.Order))
	for _, id := range s.Order {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("rotation: duplicate id %q", id)
		}
		seen[id] = struct{}{}
	}
	if s.Cursor < 0 || s.Cursor > len(s.Order) {
		return fmt.Errorf("rotation: cursor %d out of range [0, %d]", s.Cursor, len(s.Order))
	}
	return nil
}

// Decode parses the persisted JSON layout and validates it.
func Decode(b []byte) (*State, error) {
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("rotation: decode: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Encode renders the persisted JSON layout.
func (s *State) Encode() ([]byte, error) {
	if s.Order == nil {
		cp := *s
		cp.Order = []string{}
		return json.Marshal(cp)
	}
	return json.Marshal(s)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
