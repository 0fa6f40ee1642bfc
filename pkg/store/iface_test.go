package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daviddao/norepeat/pkg/model"
)

// TestStoreImplementsInterface verifies at runtime that *Store satisfies
// StoreInterface by calling every method through the interface.
func TestStoreImplementsInterface(t *testing.T) {
	var iface StoreInterface = newTestStore(t)

	a := iface.Adapter("iface")
	require.NoError(t, a.SaveSlotMarker("2024-01-01-0"))

	names, err := iface.ListRotations()
	require.NoError(t, err)
	assert.Equal(t, []string{"iface"}, names)

	id, err := iface.AppendHistory(model.Change{Rotation: "iface", ItemID: "a", Reason: model.ReasonInit})
	require.NoError(t, err)
	assert.Positive(t, id)

	entries, err := iface.ListHistory("iface", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(1), iface.CountHistory("iface"))

	require.NoError(t, iface.DeleteRotation("iface"))
	assert.Equal(t, int64(0), iface.CountHistory("iface"))
}
