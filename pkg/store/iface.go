// iface.go defines the StoreInterface for dependency injection and testing.
//
// The concrete *Store type satisfies this interface. The CLI accepts
// StoreInterface for the database-wide operations (history, namespaces);
// per-rotation state goes through the engine.Persistence adapter returned by
// Adapter.
package store

import (
	"github.com/daviddao/norepeat/pkg/engine"
	"github.com/daviddao/norepeat/pkg/model"
)

// StoreInterface defines the full set of store operations.
// The concrete *Store type implements this interface.
type StoreInterface interface {
	// Close closes the database connection.
	Close() error

	// --- Rotations ---

	// Adapter returns the persistence adapter for one rotation namespace.
	Adapter(rotation string) *Adapter

	// ListRotations returns every namespace with persisted state.
	ListRotations() ([]string, error)

	// DeleteRotation drops all state and history of a namespace.
	DeleteRotation(rotation string) error

	// --- History ---

	// AppendHistory records a visible-item change. Returns the row ID.
	AppendHistory(c model.Change) (int64, error)

	// ListHistory returns the newest entries of a rotation first.
	ListHistory(rotation string, limit int) ([]model.HistoryEntry, error)

	// CountHistory returns the number of history entries of a rotation.
	CountHistory(rotation string) int64
}

// Compile-time checks.
var (
	_ StoreInterface     = (*Store)(nil)
	_ engine.Persistence = (*Adapter)(nil)
	_ engine.Snapshotter = (*Adapter)(nil)
)
