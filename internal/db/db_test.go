package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) (*Settings, *OrderSyncs) {
	t.Helper()
	database, err := InitDB(":memory:")
	require.NoError(t, err)
	return NewSettings(database), NewOrderSyncs(database)
}

func TestSettingsRoundTrip(t *testing.T) {
	settings, _ := newTestDB(t)

	got, err := settings.Get(KeyClientID)
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, settings.Put(KeyClientID, "client-123"))
	got, err = settings.Get(KeyClientID)
	require.NoError(t, err)
	require.Equal(t, "client-123", got)

	// Overwrite, then delete.
	require.NoError(t, settings.Put(KeyClientID, "client-456"))
	got, _ = settings.Get(KeyClientID)
	require.Equal(t, "client-456", got)

	require.NoError(t, settings.Delete(KeyClientID))
	got, err = settings.Get(KeyClientID)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDefaultSalesAccountFallback(t *testing.T) {
	settings, _ := newTestDB(t)

	require.Equal(t, DefaultSalesAccountCode, settings.DefaultSalesAccount())

	require.NoError(t, settings.Put(KeyDefaultSalesAccount, "4000"))
	require.Equal(t, "4000", settings.DefaultSalesAccount())
}

func TestPaymentMappings(t *testing.T) {
	settings, _ := newTestDB(t)

	require.Empty(t, settings.PaymentMappings())

	require.NoError(t, settings.SetPaymentMappings(map[string]string{"bacs": "090", "stripe": "091"}))
	mappings := settings.PaymentMappings()
	require.Equal(t, "090", mappings["bacs"])
	require.Equal(t, "091", mappings["stripe"])

	// Corrupt JSON degrades to an empty table instead of failing.
	require.NoError(t, settings.Put(KeyPaymentMappings, "{not json"))
	require.Empty(t, settings.PaymentMappings())
}

func TestOrderSyncClaimIsAtMostOnce(t *testing.T) {
	_, orderSyncs := newTestDB(t)

	claimed, err := orderSyncs.Claim(42)
	require.NoError(t, err)
	require.True(t, claimed)

	// Second claim for the same order must lose.
	claimed, err = orderSyncs.Claim(42)
	require.NoError(t, err)
	require.False(t, claimed)

	// Other orders are unaffected.
	claimed, err = orderSyncs.Claim(43)
	require.NoError(t, err)
	require.True(t, claimed)
}

func TestOrderSyncReleaseAllowsRetrigger(t *testing.T) {
	_, orderSyncs := newTestDB(t)

	claimed, _ := orderSyncs.Claim(7)
	require.True(t, claimed)

	require.NoError(t, orderSyncs.Release(7))
	claimed, _ = orderSyncs.Claim(7)
	require.True(t, claimed)

	// A synced record is never released.
	require.NoError(t, orderSyncs.MarkSynced(7, "inv-1"))
	require.NoError(t, orderSyncs.Release(7))
	synced, err := orderSyncs.IsSynced(7)
	require.NoError(t, err)
	require.True(t, synced)
}

func TestOrderSyncMarkAndNotes(t *testing.T) {
	_, orderSyncs := newTestDB(t)

	claimed, _ := orderSyncs.Claim(42)
	require.True(t, claimed)

	synced, err := orderSyncs.IsSynced(42)
	require.NoError(t, err)
	require.False(t, synced)

	require.NoError(t, orderSyncs.AddNote(42, "Attempting to synchronize order with Xero."))
	require.NoError(t, orderSyncs.MarkSynced(42, "inv-abc"))
	require.NoError(t, orderSyncs.AddNote(42, "Xero sync successful."))

	record, notes, err := orderSyncs.Get(42)
	require.NoError(t, err)
	require.True(t, record.Synced)
	require.Equal(t, "inv-abc", record.InvoiceID)
	require.NotNil(t, record.SyncedAt)
	require.Len(t, notes, 2)
	require.Equal(t, "Attempting to synchronize order with Xero.", notes[0].Note)
}
