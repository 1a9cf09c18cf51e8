package aircrack

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultWordlist is the compressed dictionary shipped by most auditing
// distributions.
const DefaultWordlist = "/usr/share/wordlists/rockyou.txt.gz"

// WordlistCache decompresses gzip wordlists into a cache directory so the
// expensive gunzip happens at most once per dictionary.
type WordlistCache struct {
	dir string
}

// NewWordlistCache creates a cache rooted at dir.
func NewWordlistCache(dir string) *WordlistCache {
	return &WordlistCache{dir: dir}
}

// Resolve returns a plain-text wordlist path for the given dictionary.
// Uncompressed files pass through untouched; gzip files are decompressed
// into the cache on first use and served from it afterwards.
func (w *WordlistCache) Resolve(path string) (string, error) {
	if path == "" {
		path = DefaultWordlist
	}
	if !strings.HasSuffix(path, ".gz") {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("wordlist not readable: %w", err)
		}
		return path, nil
	}

	cached := filepath.Join(w.dir, strings.TrimSuffix(filepath.Base(path), ".gz"))
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", err
	}
	if err := decompress(path, cached); err != nil {
		return "", fmt.Errorf("decompress wordlist %s: %w", path, err)
	}
	return cached, nil
}

// decompress gunzips src into dst, writing through a temp file so a
// half-written dictionary is never picked up by a later Resolve.
func decompress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return err
	}
	defer gz.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".wordlist-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, gz); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
