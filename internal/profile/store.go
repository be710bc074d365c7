// Package profile persists connection profiles as discrete YAML files, one
// per profile, under <config>/profiles/.
package profile

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/reverse-ssh/reverse-ssh-interface/internal/model"
	"github.com/reverse-ssh/reverse-ssh-interface/internal/paths"
)

const fileExt = ".yaml"

var (
	// ErrNotFound is returned when the named profile does not exist.
	ErrNotFound = errors.New("profile not found")
	// ErrConflict is returned when creating a profile whose name is taken.
	ErrConflict = errors.New("profile already exists")
	// ErrInvalid wraps a constraint violation detected at load or create.
	ErrInvalid = errors.New("invalid profile")
)

// Store reads and writes profiles in a single directory. Writes are
// serialized with a mutex; reads take no lock and may run concurrently.
type Store struct {
	dir     string
	writeMu sync.Mutex
}

// New creates a store rooted at dir. The directory is created on demand.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// NewDefault creates a store at the platform profiles directory.
func NewDefault() (*Store, error) {
	dir, err := paths.ProfilesDir()
	if err != nil {
		return nil, err
	}
	return New(dir), nil
}

// List returns all valid profiles sorted by name. A file that fails to parse
// or validate is skipped with a warning; it does not abort the listing.
func (s *Store) List() ([]model.Profile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read profiles dir: %w", err)
	}
	var out []model.Profile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		p, err := s.load(filepath.Join(s.dir, e.Name()))
		if err != nil {
			slog.Warn("skipping invalid profile file", "file", e.Name(), "error", err)
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the named profile, or ErrNotFound.
func (s *Store) Get(name string) (model.Profile, error) {
	p, err := s.load(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Profile{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return model.Profile{}, err
	}
	return p, nil
}

// Create validates and persists a new profile. The write is atomic:
// serialize to a sibling temp file, fsync, then rename into place.
func (s *Store) Create(p model.Profile) (model.Profile, error) {
	if err := p.Validate(); err != nil {
		return model.Profile{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return model.Profile{}, fmt.Errorf("create profiles dir: %w", err)
	}
	path := s.path(p.Name)
	if _, err := os.Lstat(path); err == nil {
		return model.Profile{}, fmt.Errorf("%w: %s", ErrConflict, p.Name)
	} else if !os.IsNotExist(err) {
		return model.Profile{}, err
	}

	b, err := yaml.Marshal(p)
	if err != nil {
		return model.Profile{}, err
	}
	if err := writeAtomic(path, b); err != nil {
		return model.Profile{}, fmt.Errorf("write profile %s: %w", p.Name, err)
	}
	return p, nil
}

// Delete unlinks the named profile file, or returns ErrNotFound. Running
// sessions are unaffected; they hold a snapshot of the profile.
func (s *Store) Delete(name string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

func (s *Store) load(path string) (model.Profile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.Profile{}, err
	}
	p := model.DefaultProfile()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return model.Profile{}, fmt.Errorf("%w: parse %s: %v", ErrInvalid, filepath.Base(path), err)
	}
	if err := p.Validate(); err != nil {
		return model.Profile{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

func writeAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
