package voice

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MappingStore persists NPC-name-to-voice-id assignments as a flat JSON
// object. Every mutation rewrites the whole file with an atomic rename, and
// all writes go through a read-modify-write cycle under one lock so
// concurrent pipeline runs cannot lose each other's updates.
type MappingStore struct {
	path string
	mu   sync.Mutex
}

// NewMappingStore creates a store persisting to path. The file is created
// lazily on the first assignment.
func NewMappingStore(path string) *MappingStore {
	return &MappingStore{path: path}
}

// Get returns the voice id assigned to name, if any.
func (s *MappingStore) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return "", false
	}
	id, ok := m[name]
	return id, ok
}

// Put assigns voiceID to name and persists the full mapping.
func (s *MappingStore) Put(name, voiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	m[name] = voiceID
	return s.save(m)
}

// All returns a copy of the full mapping.
func (s *MappingStore) All() (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// load reads the mapping file. A missing file is an empty mapping.
func (s *MappingStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("voice: read mapping %s: %w", s.path, err)
	}
	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("voice: parse mapping %s: %w", s.path, err)
	}
	return m, nil
}

// save writes the full mapping via a temp file and rename, so readers never
// observe a partially written file.
func (s *MappingStore) save(m map[string]string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("voice: encode mapping: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("voice: create mapping dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".voices-*.json")
	if err != nil {
		return fmt.Errorf("voice: create temp mapping: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("voice: write mapping: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("voice: close mapping: %w", err)
	}
	if err := os.Rename(name, s.path); err != nil {
		os.Remove(name)
		return fmt.Errorf("voice: replace mapping: %w", err)
	}
	return nil
}
