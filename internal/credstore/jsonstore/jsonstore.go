// Package jsonstore keeps login credentials in a small JSON file, the
// client-side counterpart of browser local storage.
package jsonstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/moby/sys/atomicwriter"

	"github.com/patric-chuzhbe/hackorsnooze/internal/credstore"
)

// Store persists one credentials pair. With an empty file name it only
// keeps the pair in memory.
type Store struct {
	mu       sync.Mutex
	fileName string
	cache    *credstore.Credentials
}

// New returns a Store backed by fileName. The file is read lazily, so a
// missing or damaged file never prevents construction.
func New(fileName string) *Store {
	return &Store{
		fileName: fileName,
	}
}

// NewUnbacked returns a Store that never touches the disk.
func NewUnbacked() *Store {
	return &Store{}
}

// Load returns the persisted pair. found is false if nothing is stored;
// a stored but unusable pair yields an error wrapping credstore.ErrCorrupt.
func (s *Store) Load() (creds credstore.Credentials, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fileName == "" {
		if s.cache == nil {
			return credstore.Credentials{}, false, nil
		}
		return *s.cache, true, nil
	}

	data, err := os.ReadFile(s.fileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return credstore.Credentials{}, false, nil
		}
		return credstore.Credentials{}, false, err
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return credstore.Credentials{}, false, fmt.Errorf("%w: %s: %v", credstore.ErrCorrupt, s.fileName, err)
	}
	if err := creds.Validate(); err != nil {
		return credstore.Credentials{}, false, err
	}
	s.cache = &creds

	return creds, true, nil
}

// Save replaces the stored pair. The file is swapped atomically so a
// reader never sees one half of the pair without the other.
func (s *Store) Save(creds credstore.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fileName != "" {
		data, err := json.MarshalIndent(creds, "", "\t")
		if err != nil {
			return fmt.Errorf("error marshaling JSON: %w", err)
		}
		if err := atomicwriter.WriteFile(s.fileName, data, 0o600); err != nil {
			return fmt.Errorf("error writing credentials file: %w", err)
		}
	}
	s.cache = &creds

	return nil
}

// Clear removes the stored pair. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = nil
	if s.fileName == "" {
		return nil
	}
	if err := os.Remove(s.fileName); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

func (s *Store) Close() error {
	return nil
}
