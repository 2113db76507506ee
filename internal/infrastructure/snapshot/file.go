// Package snapshot provides durable key-value stores the stock cache
// persists its snapshot to. Both implementations satisfy stock.KVStore;
// which one a deployment uses is a wiring decision.
package snapshot

import (
	"os"
	"path/filepath"
)

// FileStore keeps one file per key under a directory. It is the default
// store for local runs; all failures are reported to the caller, which
// treats persistence as best-effort.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (s *FileStore) Set(key, value string) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, []byte(value), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

func (s *FileStore) Remove(key string) error {
	err := os.Remove(s.path(key))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}
