// Package blob stores uploaded import files.
//
// Paths are slash-separated keys such as "imports/<uuid>.csv". [FSStore]
// keeps them on a filesystem through afero, [GCSStore] in a Google Cloud
// Storage bucket. Both satisfy core.BlobStore.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrInvalidPath is returned for keys that are empty or escape the root.
var ErrInvalidPath = errors.New("invalid blob path")

// cleanKey normalizes a key and rejects traversal outside the root.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	cleaned := path.Clean(strings.TrimPrefix(key, "/"))
	if key == "" || cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, key)
	}
	return cleaned, nil
}

// FSStore keeps blobs in an afero filesystem.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore wraps fs. Use [NewDiskStore] for a directory on disk.
func NewFSStore(fs afero.Fs) *FSStore {
	return &FSStore{fs: fs}
}

// NewDiskStore stores blobs below root on the local disk.
func NewDiskStore(root string) (*FSStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	return NewFSStore(afero.NewBasePathFs(afero.NewOsFs(), root)), nil
}

// Exists reports whether a file is stored at key.
func (s *FSStore) Exists(_ context.Context, key string) (bool, error) {
	key, err := cleanKey(key)
	if err != nil {
		return false, err
	}
	info, err := s.fs.Stat(key)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

// Read returns the content stored at key.
func (s *FSStore) Read(_ context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, key)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *FSStore) Delete(_ context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// List returns the keys of the files directly inside dir, sorted.
func (s *FSStore) List(_ context.Context, dir string) ([]string, error) {
	dir = strings.Trim(path.Clean("/"+dir), "/")
	if dir == "" {
		dir = "."
	}
	infos, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	var out []string
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		out = append(out, path.Join(dir, info.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// Put writes r to key, creating parent directories.
func (s *FSStore) Put(_ context.Context, key string, r io.Reader) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return fmt.Errorf("create %s: %w", key, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", key, err)
	}
	return nil
}
