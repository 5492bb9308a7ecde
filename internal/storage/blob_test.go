package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luisfhm/finanzas/internal/common"
)

func newTestFileBlobStore(t *testing.T) (*FileBlobStore, string) {
	t.Helper()
	tmpDir := t.TempDir()
	store, err := NewFileBlobStore(common.NewSilentLogger(), &common.FileConfig{Path: tmpDir})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, tmpDir
}

func TestFileBlobStore_PutGet(t *testing.T) {
	store, tmpDir := newTestFileBlobStore(t)
	ctx := context.Background()

	data := []byte("Fecha,Tipo\n")
	require.NoError(t, store.Put(ctx, "portafolio_ana.csv", data))

	got, err := store.Get(ctx, "portafolio_ana.csv")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.FileExists(t, filepath.Join(tmpDir, "portafolio_ana.csv"))
}

func TestFileBlobStore_GetNotFound(t *testing.T) {
	store, _ := newTestFileBlobStore(t)
	_, err := store.Get(context.Background(), "nonexistent.csv")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestFileBlobStore_DeleteAndExists(t *testing.T) {
	store, _ := newTestFileBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "delete-me.csv", []byte("x")))
	exists, err := store.Exists(ctx, "delete-me.csv")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "delete-me.csv"))
	exists, err = store.Exists(ctx, "delete-me.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	// deleting twice is fine
	assert.NoError(t, store.Delete(ctx, "delete-me.csv"))
}

func TestFileBlobStore_SanitizeKey(t *testing.T) {
	store, tmpDir := newTestFileBlobStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "../../escape.csv", []byte("x")))
	_, err := os.Stat(filepath.Join(filepath.Dir(tmpDir), "escape.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileBlobStore_AtomicWriteLeavesNoTempFiles(t *testing.T) {
	store, tmpDir := newTestFileBlobStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, "portafolio_ana.csv", []byte{byte('a' + i)}))
	}

	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "portafolio_ana.csv", entries[0].Name())
}
