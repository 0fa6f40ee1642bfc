// Package engine decides which item to show right now.
//
// The Engine reconciles three things on every call: the candidate ids the
// caller currently considers eligible, the wall clock (mapped to a slot
// marker by the schedule), and the persisted rotation. It advances the
// rotation at most once per marker change, reshuffles when the candidate set
// drifts, and starts a fresh cycle transparently when a rotation runs out.
//
// The engine keeps no rotation state in memory between calls. Every
// operation re-reads the Persistence adapter, so several processes sharing
// one database converge on the same answer. Within a process, calls are
// serialized by a mutex while they read and write; ProjectTimeline holds it
// only while loading and simulates on its own copy.
package engine

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daviddao/norepeat/pkg/logx"
	"github.com/daviddao/norepeat/pkg/model"
	"github.com/daviddao/norepeat/pkg/rotation"
	"github.com/daviddao/norepeat/pkg/schedule"
)

// DefaultTimelineCount is used when ProjectTimeline is asked for <= 0 entries.
const DefaultTimelineCount = 2

// Persistence is the storage contract the engine runs against.
//
// Loads report absence with a zero value and a nil error. Any error from a
// load is treated as absence by the engine; it never aborts an operation.
type Persistence interface {
	LoadRotationState() (*rotation.State, error)
	SaveRotationState(st *rotation.State) error

	// LoadScheduleConfig reports ok=false when no schedule was saved.
	LoadScheduleConfig() (cfg schedule.Config, ok bool, err error)
	SaveScheduleConfig(cfg schedule.Config) error

	// LoadSlotMarker returns "" when no marker was saved.
	LoadSlotMarker() (string, error)
	SaveSlotMarker(marker string) error

	// LoadCurrentItemID returns "" when nothing is visible. Saving "" clears it.
	LoadCurrentItemID() (string, error)
	SaveCurrentItemID(id string) error
}

// Snapshot is the persisted view of a rotation read in one consistent step.
type Snapshot struct {
	State    *rotation.State
	StateErr error // set when the stored state is unreadable; State is nil

	Schedule    schedule.Config
	HasSchedule bool
	ScheduleErr error

	Marker  string
	Current string
}

// Snapshotter is implemented by backends that can load everything a call
// needs at once, so a writer in another process cannot commit between the
// individual loads. The engine uses it when the Persistence provides it.
type Snapshotter interface {
	LoadSnapshot() (Snapshot, error)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. Default discards.
func WithLogger(l logx.Logger) Option { return func(e *Engine) { e.log = l } }

// WithShuffler injects the randomness used for reshuffles.
func WithShuffler(r rotation.Shuffler) Option { return func(e *Engine) { e.rng = r } }

// WithLocation sets the time zone slot boundaries are evaluated in.
// Default time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithName labels change notifications and log lines with a rotation name.
func WithName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.name = name
		}
	}
}

// WithOnChange registers a callback fired after persistence whenever the
// externally visible item changes. Callbacks run in registration order with
// the engine lock held and must not call back into the engine.
func WithOnChange(fn func(model.Change)) Option {
	return func(e *Engine) {
		if fn != nil {
			e.onChange = append(e.onChange, fn)
		}
	}
}

// Engine is the single source of truth for what to show now.
type Engine struct {
	mu sync.Mutex

	store    Persistence
	log      logx.Logger
	rng      rotation.Shuffler
	loc      *time.Location
	name     string
	onChange []func(model.Change)
}

// New builds an engine over the given persistence adapter.
func New(p Persistence, opts ...Option) *Engine {
	e := &Engine{
		store: p,
		loc:   time.Local,
		name:  model.DefaultRotation,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rng != nil {
		// ProjectTimeline may shuffle concurrently with a writer.
		e.rng = &lockedShuffler{r: e.rng}
	}
	e.log = e.log.With(
		logx.String("rotation", e.name),
		logx.String("instance", uuid.NewString()[:8]),
	)
	return e
}

// Name returns the rotation name.
func (e *Engine) Name() string { return e.name }

// Location returns the time zone slots are evaluated in.
func (e *Engine) Location() *time.Location { return e.loc }

// Schedule returns the persisted schedule, or schedule.Default when none is
// stored or it cannot be read.
func (e *Engine) Schedule() schedule.Config {
	cfg, ok, err := e.store.LoadScheduleConfig()
	if err != nil {
		e.log.Warn("load schedule failed; using default", logx.Err(err))
		return schedule.Default
	}
	if !ok {
		return schedule.Default
	}
	return cfg
}

// SetSchedule replaces the persisted schedule.
func (e *Engine) SetSchedule(cfg schedule.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.SaveScheduleConfig(cfg); err != nil {
		return err
	}
	e.log.Info("schedule updated", logx.String("schedule", cfg.String()))
	return nil
}

// CurrentItem returns the item to show at now, advancing the rotation if a
// slot boundary was crossed since the last call. It returns false only when
// candidates is empty, in which case nothing is persisted.
func (e *Engine) CurrentItem(candidates []string, now time.Time) (string, bool) {
	return e.run(candidates, now, modeScheduled, "")
}

// AdvanceManually skips to the next item regardless of the slot marker and
// records the current slot as consumed, so the next scheduled check in this
// slot does not advance again.
func (e *Engine) AdvanceManually(candidates []string, now time.Time) (string, bool) {
	return e.run(candidates, now, modeManual, "")
}

// Reset starts a fresh shuffle of candidates. A non-empty pin that is one of
// the candidates becomes the current item. The current slot is recorded as
// consumed so the pinned item survives until the next boundary.
func (e *Engine) Reset(candidates []string, pin string, now time.Time) (string, bool) {
	return e.run(candidates, now, modeReset, pin)
}

type lockedShuffler struct {
	mu sync.Mutex
	r  rotation.Shuffler
}

func (l *lockedShuffler) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

type mode int

const (
	modeScheduled mode = iota
	modeManual
	modeReset
)

// loaded is the persisted view at the start of an operation.
type loaded struct {
	state   *rotation.State // nil when absent or unreadable
	marker  string
	current string
	sched   schedule.Config
}

func (e *Engine) load() loaded {
	if sn, ok := e.store.(Snapshotter); ok {
		snap, err := sn.LoadSnapshot()
		if err == nil {
			return e.fromSnapshot(snap)
		}
		e.log.Warn("load snapshot failed; reading keys one by one", logx.Err(err))
	}

	var l loaded
	st, err := e.store.LoadRotationState()
	if err != nil {
		e.log.Warn("load rotation state failed; starting over", logx.Err(err))
		st = nil
	}
	l.state = st
	if l.marker, err = e.store.LoadSlotMarker(); err != nil {
		e.log.Warn("load slot marker failed", logx.Err(err))
		l.marker = ""
	}
	if l.current, err = e.store.LoadCurrentItemID(); err != nil {
		e.log.Debug("load current item failed", logx.Err(err))
		l.current = ""
	}
	l.sched = e.Schedule()
	return l
}

func (e *Engine) fromSnapshot(snap Snapshot) loaded {
	l := loaded{state: snap.State, marker: snap.Marker, current: snap.Current, sched: schedule.Default}
	if snap.StateErr != nil {
		e.log.Warn("load rotation state failed; starting over", logx.Err(snap.StateErr))
		l.state = nil
	}
	switch {
	case snap.ScheduleErr != nil:
		e.log.Warn("load schedule failed; using default", logx.Err(snap.ScheduleErr))
	case snap.HasSchedule:
		l.sched = snap.Schedule
	}
	return l
}

func (e *Engine) run(candidates []string, now time.Time, m mode, pin string) (string, bool) {
	ids := cleanIDs(candidates)
	if len(ids) == 0 {
		return "", false
	}
	now = now.In(e.loc)

	e.mu.Lock()
	defer e.mu.Unlock()

	in := e.load()
	marker := in.sched.Marker(now)
	st, reason := e.apply(in.state.Clone(), in.marker, marker, ids, now, m, pin)

	// The marker and the visible id are only stored after the state is; an
	// unsaved advance leaves the slot unconsumed.
	saved := true
	if reason != "" {
		if err := e.store.SaveRotationState(st); err != nil {
			e.log.Warn("save rotation state failed; slot left unconsumed", logx.Err(err))
			saved = false
		}
	}
	if saved && marker != in.marker {
		if err := e.store.SaveSlotMarker(marker); err != nil {
			e.log.Warn("save slot marker failed", logx.Err(err))
		}
	}

	id, fellBack := resolve(st, ids)
	if fellBack {
		e.log.Warn("served id is not a candidate; falling back to first candidate",
			logx.String("fallback", id))
		reason = model.ReasonFallback
	}

	if saved && id != in.current {
		if err := e.store.SaveCurrentItemID(id); err != nil {
			e.log.Warn("save current item failed", logx.Err(err))
		}
		if reason == "" {
			reason = model.ReasonSync
		}
		e.log.Info("current item changed",
			logx.String("item", id),
			logx.String("previous", in.current),
			logx.String("reason", string(reason)),
			logx.String("marker", marker),
			logx.Int("cursor", st.Cursor),
			logx.Int("size", len(st.Order)),
		)
		c := model.Change{
			Rotation:   e.name,
			PreviousID: in.current,
			ItemID:     id,
			Reason:     reason,
			Marker:     marker,
			At:         now,
		}
		for _, fn := range e.onChange {
			fn(c)
		}
	}
	return id, true
}

// apply runs the reconciliation rules against st (which it may replace or
// mutate) and reports why the rotation changed, or "" if it did not.
//
// A rotation created or reshuffled in this call serves its first item for
// the current slot; only an existing rotation is advanced on a marker
// change.
func (e *Engine) apply(st *rotation.State, lastMarker, marker string, ids []string, now time.Time, m mode, pin string) (*rotation.State, model.ChangeReason) {
	if m == modeReset {
		st = &rotation.State{}
		st.Reset(ids, pin, e.rng, now)
		return st, model.ReasonReset
	}

	var reason model.ChangeReason
	switch {
	case st == nil:
		st = rotation.New(ids, e.rng, now)
		reason = model.ReasonInit
	case !st.SameSet(ids) || st.Exhausted():
		e.log.Debug("candidate set drifted; reshuffling",
			logx.Int("was", len(st.Order)), logx.Int("now", len(ids)))
		st.Reset(ids, "", e.rng, now)
		reason = model.ReasonDrift
	}

	switch {
	case m == modeManual:
		e.advance(st, ids, now)
		reason = model.ReasonManual
	case reason == "" && marker != lastMarker:
		e.advance(st, ids, now)
		reason = model.ReasonScheduled
	}
	return st, reason
}

// advance moves one step and begins a fresh cycle when that exhausts the
// rotation, so exhaustion is never observable.
func (e *Engine) advance(st *rotation.State, ids []string, now time.Time) {
	if _, ok := st.Advance(now); ok {
		return
	}
	e.log.Debug("rotation exhausted; starting a new cycle", logx.Int("size", len(ids)))
	st.Reset(ids, "", e.rng, now)
}

// ProjectTimeline simulates count slots starting at start without touching
// persisted state. Entry 0 is (start, item shown at start); entry k is the
// k-th following slot boundary and the item it will bring. A consumer should
// render entry 0 and call back no later than entry 1's timestamp.
func (e *Engine) ProjectTimeline(candidates []string, start time.Time, count int) []model.TimelineEntry {
	ids := cleanIDs(candidates)
	if len(ids) == 0 {
		return nil
	}
	if count <= 0 {
		count = DefaultTimelineCount
	}
	start = start.In(e.loc)

	e.mu.Lock()
	in := e.load()
	e.mu.Unlock()

	st, _ := e.apply(in.state.Clone(), in.marker, in.sched.Marker(start), ids, start, modeScheduled, "")

	out := make([]model.TimelineEntry, 0, count)
	id, _ := resolve(st, ids)
	out = append(out, model.TimelineEntry{At: start, ItemID: id})

	at := start
	for len(out) < count {
		at = in.sched.NextChange(at)
		e.advance(st, ids, at)
		id, _ := resolve(st, ids)
		out = append(out, model.TimelineEntry{At: at, ItemID: id})
	}
	return out
}

// Status reports the persisted rotation as seen at now without reconciling.
func (e *Engine) Status(candidates []string, now time.Time) model.Status {
	ids := cleanIDs(candidates)
	now = now.In(e.loc)

	e.mu.Lock()
	in := e.load()
	e.mu.Unlock()

	s := model.Status{
		Rotation:   e.name,
		Schedule:   in.sched.String(),
		SlotHours:  in.sched.SlotHours(),
		Marker:     in.sched.Marker(now),
		LastMarker: in.marker,
		CurrentID:  in.current,
		NextChange: in.sched.NextChange(now),
	}
	if in.state == nil {
		s.Stale = true
		return s
	}
	s.Cursor = in.state.Cursor
	s.Size = len(in.state.Order)
	s.Remaining = in.state.Remaining()
	s.Progress = in.state.Progress()
	s.CreatedAt = in.state.CreatedAt
	s.AdvancedAt = in.state.LastAdvancedAt
	s.Stale = !in.state.SameSet(ids) || in.state.Exhausted() || s.Marker != s.LastMarker
	return s
}

// resolve maps the state's current id onto the candidate list. It falls back
// to the first candidate if the id is missing, reporting true in that case.
func resolve(st *rotation.State, ids []string) (string, bool) {
	if id, ok := st.Current(); ok && slices.Contains(ids, id) {
		return id, false
	}
	return ids[0], true
}

// cleanIDs drops empty and duplicate ids, keeping first-seen order.
func cleanIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
