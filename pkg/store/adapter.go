package store

import (
	"errors"

	"github.com/daviddao/norepeat/pkg/engine"
	"github.com/daviddao/norepeat/pkg/rotation"
	"github.com/daviddao/norepeat/pkg/schedule"
)

// Adapter is the engine.Persistence view of one rotation namespace.
type Adapter struct {
	s        *Store
	rotation string
}

// Rotation returns the namespace name.
func (a *Adapter) Rotation() string { return a.rotation }

// LoadRotationState returns (nil, nil) when nothing is stored and an error
// when the stored JSON is unreadable.
func (a *Adapter) LoadRotationState() (*rotation.State, error) {
	v, err := a.s.get(a.rotation, keyState)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rotation.Decode([]byte(v))
}

// SaveRotationState stores the state in its JSON layout.
func (a *Adapter) SaveRotationState(st *rotation.State) error {
	b, err := st.Encode()
	if err != nil {
		return err
	}
	return a.s.put(a.rotation, keyState, string(b))
}

// LoadScheduleConfig reports ok=false when no schedule was saved.
func (a *Adapter) LoadScheduleConfig() (schedule.Config, bool, error) {
	v, err := a.s.get(a.rotation, keySchedule)
	if errors.Is(err, ErrNotFound) {
		return schedule.Config{}, false, nil
	}
	if err != nil {
		return schedule.Config{}, false, err
	}
	cfg, err := schedule.Parse(v)
	if err != nil {
		return schedule.Config{}, false, err
	}
	return cfg, true, nil
}

// SaveScheduleConfig stores the schedule by name.
func (a *Adapter) SaveScheduleConfig(cfg schedule.Config) error {
	return a.s.put(a.rotation, keySchedule, cfg.String())
}

// LoadSlotMarker returns "" when no marker was saved.
func (a *Adapter) LoadSlotMarker() (string, error) {
	v, err := a.s.get(a.rotation, keyMarker)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SaveSlotMarker stores the last consumed slot marker.
func (a *Adapter) SaveSlotMarker(marker string) error {
	return a.s.put(a.rotation, keyMarker, marker)
}

// LoadCurrentItemID returns "" when no item is visible.
func (a *Adapter) LoadCurrentItemID() (string, error) {
	v, err := a.s.get(a.rotation, keyCurrent)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// SaveCurrentItemID stores the visible item; "" clears it.
func (a *Adapter) SaveCurrentItemID(id string) error {
	if id == "" {
		return a.s.del(a.rotation, keyCurrent)
	}
	return a.s.put(a.rotation, keyCurrent, id)
}

// LoadSnapshot reads every key of the namespace in one read transaction, so
// a commit from another process lands either entirely before or entirely
// after it. Unreadable state or schedule values are reported on the
// snapshot; only database failures are returned as an error.
func (a *Adapter) LoadSnapshot() (engine.Snapshot, error) {
	kv, err := a.s.getAll(a.rotation)
	if err != nil {
		return engine.Snapshot{}, err
	}

	snap := engine.Snapshot{Marker: kv[keyMarker], Current: kv[keyCurrent]}
	if v, ok := kv[keyState]; ok {
		snap.State, snap.StateErr = rotation.Decode([]byte(v))
		if snap.StateErr != nil {
			snap.State = nil
		}
	}
	if v, ok := kv[keySchedule]; ok {
		snap.Schedule, snap.ScheduleErr = schedule.Parse(v)
		snap.HasSchedule = snap.ScheduleErr == nil
	}
	return snap, nil
}
