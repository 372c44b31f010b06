package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("tile")
	require.NoError(t, store.Put(ctx, "b/Npix2.eph", data))
	require.NoError(t, store.Put(ctx, "a/Npix1.eph", []byte("x")))
	data[0] = 'X'

	got, err := Get(ctx, store, "b/Npix2.eph")
	require.NoError(t, err)
	assert.Equal(t, []byte("tile"), got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/Npix1.eph", "b/Npix2.eph"}, names)

	names, err = store.List(ctx, "b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/Npix2.eph"}, names)

	require.NoError(t, store.Delete(ctx, "b/Npix2.eph"))
	_, err = store.Open(ctx, "b/Npix2.eph")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadAll_EmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "empty", nil))

	b, err := store.Open(ctx, "empty")
	require.NoError(t, err)
	data, err := ReadAll(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, data)
}
