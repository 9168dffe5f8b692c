package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps one file per entry under a directory, named
// "<key>.zst" after the codec's compressed payloads. Stale entries are
// never expired; removing the directory empties the cache.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Get implements Store.
func (s *FileStore) Get(key string) ([]byte, bool, error) {
	raw, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}

// Put implements Store.
func (s *FileStore) Put(key string, payload []byte) error {
	return os.WriteFile(s.path(key), payload, 0o644)
}

// Close implements Store. A FileStore holds no open handles.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".zst")
}
