// Package model defines the value types shared between the rotation engine,
// its persistence layer and the CLI.
//
// norepeat serves one item at a time out of a candidate set and guarantees
// that nothing repeats until every candidate has been shown once:
//
//   - A rotation is a shuffled permutation of the candidate ids plus a
//     cursor. Each slot boundary advances the cursor by one; when it runs off
//     the end a fresh shuffle begins.
//
//   - A schedule splits the day into slots at fixed hours. The pair
//     (calendar date, slot index) forms a marker; the rotation advances
//     exactly once per marker change, no matter how many processes observe
//     it.
package model

import "time"

// DefaultRotation is the namespace used when none is configured.
const DefaultRotation = "default"

// ChangeReason says why the visible item changed.
type ChangeReason string

const (
	ReasonInit      ChangeReason = "init"      // first rotation for this namespace
	ReasonDrift     ChangeReason = "drift"     // candidate set changed, reshuffled
	ReasonScheduled ChangeReason = "scheduled" // slot boundary crossed
	ReasonManual    ChangeReason = "manual"    // user skipped ahead
	ReasonReset     ChangeReason = "reset"     // explicit reshuffle
	ReasonFallback  ChangeReason = "fallback"  // served id vanished from candidates
	ReasonSync      ChangeReason = "sync"      // visible id caught up with the rotation
)

// Change is published whenever the externally visible item changes.
type Change struct {
	Rotation   string       `json:"rotation"`
	PreviousID string       `json:"previous_id,omitempty"`
	ItemID     string       `json:"item_id"`
	Reason     ChangeReason `json:"reason"`
	Marker     string       `json:"marker"`
	At         time.Time    `json:"at"`
}

// HistoryEntry is a persisted Change.
type HistoryEntry struct {
	ID int64 `json:"id"`
	Change
}

// TimelineEntry is one projected (slot start, item) pair.
type TimelineEntry struct {
	At     time.Time `json:"at"`
	ItemID string    `json:"item_id"`
}

// Status is a read-only snapshot of a rotation.
type Status struct {
	Rotation   string    `json:"rotation"`
	Schedule   string    `json:"schedule"`
	SlotHours  []int     `json:"slot_hours"`
	Marker     string    `json:"marker"`
	LastMarker string    `json:"last_marker"`
	CurrentID  string    `json:"current_id,omitempty"`
	Cursor     int       `json:"cursor"`
	Size       int       `json:"size"`
	Remaining  int       `json:"remaining"`
	Progress   float64   `json:"progress"`
	NextChange time.Time `json:"next_change"`
	CreatedAt  time.Time `json:"created_at"`
	AdvancedAt time.Time `json:"last_advanced_at"`
	// Stale is set when the persisted state no longer matches the candidates
	// or the slot; the next CurrentItem call will reconcile it.
	Stale bool `json:"stale"`
}
