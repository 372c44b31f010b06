package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "Norder3", "Dir0")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	f, err := lfs.CreateTemp(dir, ".Npix1.eph.tmp-*")
	require.NoError(t, err)
	_, err = f.Write([]byte("EPHE"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size())
	require.NoError(t, f.Close())

	final := filepath.Join(dir, "Npix1.eph")
	require.NoError(t, lfs.Rename(f.Name(), final))

	r, err := lfs.Open(final)
	require.NoError(t, err)
	buf := make([]byte, 2)
	_, err = r.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "HE", string(buf))
	require.NoError(t, r.Close())

	require.NoError(t, lfs.Remove(final))
	_, err = lfs.Stat(final)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS(t *testing.T) {
	t.Run("FailAfterBytes", func(t *testing.T) {
		ffs := NewFaultyFS(nil)
		ffs.AddRule(".eph", Fault{FailAfterBytes: 5})

		f, err := ffs.CreateTemp(t.TempDir(), "Npix1.eph.tmp-*")
		require.NoError(t, err)
		defer f.Close()

		n, err := f.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		n, err = f.Write([]byte("!"))
		assert.ErrorIs(t, err, ErrInjected)
		assert.Equal(t, 0, n)
	})

	t.Run("SyncCloseRename", func(t *testing.T) {
		dir := t.TempDir()
		ffs := NewFaultyFS(LocalFS{})
		ffs.AddRule("bad", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnClose: true, FailOnRename: true, Err: os.ErrPermission})

		f, err := ffs.CreateTemp(dir, "bad-*")
		require.NoError(t, err)
		assert.ErrorIs(t, f.Sync(), os.ErrPermission)
		assert.ErrorIs(t, f.Close(), os.ErrPermission)

		assert.ErrorIs(t, ffs.Rename(f.Name(), filepath.Join(dir, "bad.eph")), os.ErrPermission)
		require.NoError(t, ffs.Rename(f.Name(), filepath.Join(dir, "good.eph")))
	})

	t.Run("Delegation", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "sub")
		ffs := NewFaultyFS(nil)
		require.NoError(t, ffs.MkdirAll(dir, 0o755))

		f, err := ffs.CreateTemp(dir, "x-*")
		require.NoError(t, err)
		_, err = f.Write([]byte("abc"))
		require.NoError(t, err)
		require.NoError(t, f.Close())

		info, err := ffs.Stat(f.Name())
		require.NoError(t, err)
		assert.Equal(t, int64(3), info.Size())

		r, err := ffs.Open(f.Name())
		require.NoError(t, err)
		require.NoError(t, r.Close())
		require.NoError(t, ffs.Remove(f.Name()))
	})
}
