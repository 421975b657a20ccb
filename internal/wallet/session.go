package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Session caches unlocked keys in a 0600 file so repeated commands do not
// hit the OS keychain.
type Session struct {
	path string
	mu   sync.Mutex
}

// DefaultSession uses the per-user cache directory.
func DefaultSession() *Session {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return NewSession(filepath.Join(dir, keychainService))
}

// NewSession stores the cache file in dir.
func NewSession(dir string) *Session {
	return &Session{path: filepath.Join(dir, "session.json")}
}

// Get returns a cached key for ref.
func (s *Session) Get(ref string) (string, bool) {
	if s == nil {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.load()[ref]
	return v, ok
}

// Put caches a key for ref.
func (s *Session) Put(ref, hexKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.load()
	m[ref] = normaliseHexKey(hexKey)
	return s.save(m)
}

// Remove evicts ref from the cache.
func (s *Session) Remove(ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.load()
	if _, ok := m[ref]; !ok {
		return nil
	}
	delete(m, ref)
	return s.save(m)
}

// Clear removes all cached keys.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Active reports whether any key is cached.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.load()) > 0
}

// load returns an empty map (never nil) on any error.
func (s *Session) load() map[string]string {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return make(map[string]string)
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return make(map[string]string)
	}
	return m
}

func (s *Session) save(m map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o600)
}
