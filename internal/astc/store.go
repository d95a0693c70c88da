// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package astc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/gogpu/ace/internal/canvas"
)

// Store persists encoded compressed textures by file name.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the blob stored under name; ok is false on a miss.
	Get(name string) (blob []byte, ok bool, err error)

	// Put stores blob under name, replacing any previous value.
	Put(name string, blob []byte) error

	// Close releases the store's resources.
	Close() error
}

// Load fetches and decodes the block stored under name.
func Load(s Store, name string) (canvas.Compressed, bool, error) {
	blob, ok, err := s.Get(name)
	if err != nil || !ok {
		return canvas.Compressed{}, false, err
	}
	c, err := Decode(blob)
	if err != nil {
		return canvas.Compressed{}, false, err
	}
	return c, true, nil
}

// Save encodes c and stores it under name.
func Save(s Store, name string, c canvas.Compressed) error {
	blob, err := Encode(c)
	if err != nil {
		return err
	}
	return s.Put(name, blob)
}

// NopStore never hits and discards writes.
type NopStore struct{}

func (NopStore) Get(string) ([]byte, bool, error) { return nil, false, nil }
func (NopStore) Put(string, []byte) error         { return nil }
func (NopStore) Close() error                     { return nil }

// FileStore keeps one file per texture in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("astc: create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("astc: invalid cache file name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// Get reads the file named name.
func (s *FileStore) Get(name string) ([]byte, bool, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, false, err
	}
	blob, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("astc: read %s: %w", name, err)
	}
	return blob, true, nil
}

// Put writes the file atomically (temp file, then rename), so concurrent
// readers never observe a partial texture.
func (s *FileStore) Put(name string, blob []byte) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("astc: create temp: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("astc: write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("astc: close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("astc: rename %s: %w", name, err)
	}
	return nil
}

// Close is a no-op for FileStore.
func (s *FileStore) Close() error { return nil }

const boltBucket = "astc"

// BoltStore keeps all textures in a single bbolt database file.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (or creates) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("astc: create db dir: %w", err)
	}
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("astc: open db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("astc: init bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns a copy of the stored blob.
func (s *BoltStore) Get(name string) ([]byte, bool, error) {
	var blob []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(boltBucket)).Get([]byte(name))
		if v != nil {
			// v is only valid inside the transaction.
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("astc: read %s: %w", name, err)
	}
	return blob, blob != nil, nil
}

// Put stores blob under name.
func (s *BoltStore) Put(name string, blob []byte) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(boltBucket)).Put([]byte(name), blob)
	})
	if err != nil {
		return fmt.Errorf("astc: write %s: %w", name, err)
	}
	return nil
}

// Close closes the database.
func (s *BoltStore) Close() error { return s.db.Close() }
