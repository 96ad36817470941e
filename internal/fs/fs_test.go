package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalFS_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "file.bin")

	require.NoError(t, Default.MkdirAll(filepath.Dir(path), 0o755))

	f, err := Default.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	info, err := Default.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size())

	renamed := filepath.Join(dir, "sub", "renamed.bin")
	require.NoError(t, Default.Rename(path, renamed))

	entries, err := Default.ReadDir(filepath.Join(dir, "sub"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "renamed.bin", entries[0].Name())

	require.NoError(t, Default.Remove(renamed))
	_, err = Default.Stat(renamed)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFaultyFS_InjectsWriteErrors(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("bad", Fault{FailOnWrite: true})

	good, err := ffs.OpenFile(filepath.Join(dir, "good.bin"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = good.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, good.Close())

	bad, err := ffs.OpenFile(filepath.Join(dir, "bad.bin"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	_, err = bad.Write([]byte("x"))
	require.ErrorIs(t, err, ErrInjected)
	require.NoError(t, bad.Close())
}

func TestFaultyFS_InjectsSyncErrors(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("data", Fault{FailOnSync: true})

	f, err := ffs.OpenFile(filepath.Join(dir, "data.bin"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	require.ErrorIs(t, f.Sync(), ErrInjected)
	require.NoError(t, f.Close())
}
