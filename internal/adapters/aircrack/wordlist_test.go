package aircrack

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGzipWordlist(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func TestResolve_PlainFilePassesThrough(t *testing.T) {
	dir := t.TempDir()
	plain := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(plain, []byte("password\n"), 0o644))

	cache := NewWordlistCache(filepath.Join(dir, "cache"))
	got, err := cache.Resolve(plain)
	require.NoError(t, err)
	assert.Equal(t, plain, got)
}

func TestResolve_DecompressesGzipOnce(t *testing.T) {
	dir := t.TempDir()
	gzPath := filepath.Join(dir, "rockyou.txt.gz")
	writeGzipWordlist(t, gzPath, "password\nletmein\n")

	cacheDir := filepath.Join(dir, "cache")
	cache := NewWordlistCache(cacheDir)

	got, err := cache.Resolve(gzPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "rockyou.txt"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "password\nletmein\n", string(data))

	// Second resolve serves the cached copy even if the source vanishes.
	require.NoError(t, os.Remove(gzPath))
	again, err := cache.Resolve(gzPath)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestResolve_MissingPlainFile(t *testing.T) {
	cache := NewWordlistCache(t.TempDir())
	_, err := cache.Resolve(filepath.Join(t.TempDir(), "absent.txt"))
	assert.Error(t, err)
}

func TestResolve_CorruptGzip(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt.gz")
	require.NoError(t, os.WriteFile(bad, []byte("not gzip at all"), 0o644))

	cache := NewWordlistCache(filepath.Join(dir, "cache"))
	_, err := cache.Resolve(bad)
	require.Error(t, err)

	// No half-written dictionary may be left behind.
	_, statErr := os.Stat(filepath.Join(dir, "cache", "bad.txt"))
	assert.True(t, os.IsNotExist(statErr))
}
