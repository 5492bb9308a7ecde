package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisfhm/finanzas/internal/common"
	"github.com/luisfhm/finanzas/internal/interfaces"
	"github.com/luisfhm/finanzas/internal/storage/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(common.NewSilentLogger(), filepath.Join(t.TempDir(), "db", "finanzas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) interfaces.TransactionStore {
		return openTestStore(t)
	})
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finanzas.db")
	ctx := context.Background()

	store, err := New(common.NewSilentLogger(), path)
	require.NoError(t, err)
	id, err := store.Create(ctx, "ana", storetest.Sample("WALMEX"))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = New(common.NewSilentLogger(), path)
	require.NoError(t, err)
	defer store.Close()

	txs, err := store.List(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, id, txs[0].ID)
}

func TestStore_SequenceIsPerUser(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "ana", storetest.Sample("A"))
	require.NoError(t, err)
	_, err = store.Create(ctx, "beto", storetest.Sample("B"))
	require.NoError(t, err)
	_, err = store.Create(ctx, "ana", storetest.Sample("C"))
	require.NoError(t, err)

	txs, err := store.List(ctx, "ana")
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "A", txs[0].Ticker)
	assert.Equal(t, "C", txs[1].Ticker)
}
