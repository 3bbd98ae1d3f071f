// Package localstore persists a small string key/value map to a YAML file.
// It stands in for browser local storage: the credential token and the
// user-managed project URL list live here between sessions.
package localstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tinytelemetry/vwatch/internal/model"
	"gopkg.in/yaml.v3"
)

// Well-known keys.
const (
	KeyToken    = "vercel_token"
	KeyProjects = "vercel_projects"
)

// Store is a file-backed key/value map. The zero path keeps data in memory only.
type Store struct {
	mu    sync.RWMutex
	path  string
	items map[string]string
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, items: make(map[string]string)}
	if path == "" {
		return s, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read local storage: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return s, nil
	}
	if err := yaml.Unmarshal(data, &s.items); err != nil {
		return nil, fmt.Errorf("parse local storage %s: %w", path, err)
	}
	if s.items == nil {
		s.items = make(map[string]string)
	}
	return s, nil
}

// NewMemory returns a store that is never written to disk.
func NewMemory() *Store {
	s, _ := Open("")
	return s
}

// Path returns the backing file path, empty for in-memory stores.
func (s *Store) Path() string { return s.path }

// GetItem returns the value stored under key.
func (s *Store) GetItem(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// SetItem stores value under key and flushes the file.
func (s *Store) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, had := s.items[key]
	s.items[key] = value
	if err := s.flushLocked(); err != nil {
		if had {
			s.items[key] = prev
		} else {
			delete(s.items, key)
		}
		return err
	}
	return nil
}

// RemoveItem deletes key. Removing a missing key is not an error.
func (s *Store) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.items[key]
	if !ok {
		return nil
	}
	delete(s.items, key)
	if err := s.flushLocked(); err != nil {
		s.items[key] = prev
		return err
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) flushLocked() error {
	if s.path == "" {
		return nil
	}
	data, err := yaml.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode local storage: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create local storage dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".localstore-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace local storage: %w", err)
	}
	return nil
}

// Token returns the saved credential, empty when none.
func (s *Store) Token() string {
	v, _ := s.GetItem(KeyToken)
	return v
}

// SetToken saves the credential.
func (s *Store) SetToken(token string) error { return s.SetItem(KeyToken, token) }

// ClearToken removes the credential.
func (s *Store) ClearToken() error { return s.RemoveItem(KeyToken) }

// ProjectConfigs returns the saved project URL list. A corrupt entry is
// reported as an error and treated by callers as an empty list.
func (s *Store) ProjectConfigs() ([]model.ProjectConfig, error) {
	raw, ok := s.GetItem(KeyProjects)
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var cfgs []model.ProjectConfig
	if err := json.Unmarshal([]byte(raw), &cfgs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", KeyProjects, err)
	}
	return cfgs, nil
}

// SaveProjectConfigs replaces the saved project URL list. Blank URLs are
// dropped and entries without an ID are assigned a fresh one.
func (s *Store) SaveProjectConfigs(cfgs []model.ProjectConfig) ([]model.ProjectConfig, error) {
	out := make([]model.ProjectConfig, 0, len(cfgs))
	for _, c := range cfgs {
		c.URL = strings.TrimSpace(c.URL)
		if c.URL == "" {
			continue
		}
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		out = append(out, c)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", KeyProjects, err)
	}
	if err := s.SetItem(KeyProjects, string(data)); err != nil {
		return nil, err
	}
	return out, nil
}

// ProjectURLs returns just the URLs of the saved project configs.
func (s *Store) ProjectURLs() []string {
	cfgs, err := s.ProjectConfigs()
	if err != nil {
		return nil
	}
	urls := make([]string, 0, len(cfgs))
	for _, c := range cfgs {
		urls = append(urls, c.URL)
	}
	return urls
}
