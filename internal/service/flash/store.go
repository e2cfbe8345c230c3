// Package flash is the local persistent store captures are written to before upload.
package flash

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrInvalidPath is returned for store paths that are empty or escape the root.
var ErrInvalidPath = errors.New("invalid store path")

// Entry describes one file in the store.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Store exposes create/write/close semantics for files addressed by absolute
// store paths such as "/12:00:00-img.jpg".
type Store interface {
	Mount(format bool) error
	Create(name string) (io.WriteCloser, error)
	Open(name string) (io.ReadCloser, error)
	Stat(name string) (int64, error)
	Remove(name string) error
	List() ([]Entry, error)
	Root() string
}

// DirStore keeps the store inside a single directory.
type DirStore struct {
	root    string
	mounted bool
}

// NewDirStore creates a store rooted at dir. Nothing touches disk until Mount.
func NewDirStore(dir string) *DirStore {
	return &DirStore{root: dir}
}

// Root returns the backing directory.
func (s *DirStore) Root() string {
	return s.root
}

// Mount makes sure the root exists and is writable. With format set every
// existing file is removed first.
func (s *DirStore) Mount(format bool) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("failed to create store root: %w", err)
	}

	if format {
		if err := s.format(); err != nil {
			return err
		}
	}

	probe, err := os.CreateTemp(s.root, ".mount-*")
	if err != nil {
		return fmt.Errorf("store root is not writable: %w", err)
	}
	probe.Close()
	_ = os.Remove(probe.Name())

	s.mounted = true
	return nil
}

func (s *DirStore) format() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("failed to read store root: %w", err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
			return fmt.Errorf("failed to format store: %w", err)
		}
	}
	return nil
}

// resolve maps a store path onto the backing directory.
func (s *DirStore) resolve(name string) (string, error) {
	if !s.mounted {
		return "", errors.New("store is not mounted")
	}
	clean := path.Clean("/" + strings.TrimSpace(name))
	if clean == "/" || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Create opens name for writing, truncating any previous content.
func (s *DirStore) Create(name string) (io.WriteCloser, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return os.OpenFile(full, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// Open opens name for reading.
func (s *DirStore) Open(name string) (io.ReadCloser, error) {
	full, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Stat returns the size of name in bytes.
func (s *DirStore) Stat(name string) (int64, error) {
	full, err := s.resolve(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes name.
func (s *DirStore) Remove(name string) error {
	full, err := s.resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// List returns every regular file in the store ordered by path.
func (s *DirStore) List() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		entries = append(entries, Entry{
			Path:    "/" + filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
	return entries, nil
}
