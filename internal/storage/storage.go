package storage

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"pup/internal/auth"
	"pup/pkg/logging"
)

// ErrStorageUnavailable means a backend cannot serve durable writes, either
// because its probe failed at construction or because it never persists.
var ErrStorageUnavailable = errors.New("token storage unavailable")

// BackendType identifies a storage backend implementation.
type BackendType string

const (
	BackendKeychain BackendType = "keychain"
	BackendFile     BackendType = "file"
	BackendMemory   BackendType = "memory"
	BackendKV       BackendType = "kv"
)

// Backend persists tokens and client registrations. Token operations are
// keyed by (site, org); client credentials by site alone. Load operations
// return (nil, nil) when the record is absent, and Delete operations treat
// absence as success.
type Backend interface {
	Type() BackendType
	Location() string

	SaveTokens(site, org string, tokens *auth.TokenSet) error
	LoadTokens(site, org string) (*auth.TokenSet, error)
	DeleteTokens(site, org string) error

	SaveClientCredentials(site string, creds *auth.ClientCredentials) error
	LoadClientCredentials(site string) (*auth.ClientCredentials, error)
	DeleteClientCredentials(site string) error
}

// Store wraps a Backend and the session registry behind one mutex, so
// back-to-back read-modify-write cycles within a single invocation
// serialize instead of interleaving. Callers must finish network calls
// before invoking Store methods; the lock is never meant to span a request.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	registry *SessionRegistry
}

// NewStore creates a Store over an explicit backend and registry.
func NewStore(backend Backend, registry *SessionRegistry) *Store {
	return &Store{backend: backend, registry: registry}
}

// Backend reports the type of the underlying backend.
func (s *Store) Backend() BackendType {
	return s.backend.Type()
}

// Location describes where secrets are kept, for status output.
func (s *Store) Location() string {
	return s.backend.Location()
}

func (s *Store) SaveTokens(site, org string, tokens *auth.TokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.SaveTokens(site, org, tokens)
}

func (s *Store) LoadTokens(site, org string) (*auth.TokenSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.LoadTokens(site, org)
}

func (s *Store) DeleteTokens(site, org string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.DeleteTokens(site, org)
}

func (s *Store) SaveClientCredentials(site string, creds *auth.ClientCredentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.SaveClientCredentials(site, creds)
}

func (s *Store) LoadClientCredentials(site string) (*auth.ClientCredentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.LoadClientCredentials(site)
}

func (s *Store) DeleteClientCredentials(site string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.DeleteClientCredentials(site)
}

func (s *Store) ListSessions() ([]SessionEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.List()
}

func (s *Store) SaveSession(site, org string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Save(site, org)
}

func (s *Store) RemoveSession(site, org string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registry.Remove(site, org)
}

var (
	storeMu   sync.Mutex
	storeInst *Store
)

// Get returns the process-wide Store, constructing it on first use. Backend
// selection honors the DD_TOKEN_STORAGE override; without one it prefers
// the OS keychain and falls back to file storage with a warning.
func Get() (*Store, error) {
	storeMu.Lock()
	defer storeMu.Unlock()

	if storeInst != nil {
		return storeInst, nil
	}

	backend, err := Detect(os.Getenv("DD_TOKEN_STORAGE"))
	if err != nil {
		return nil, err
	}
	registry, err := NewSessionRegistry()
	if err != nil {
		return nil, err
	}

	storeInst = NewStore(backend, registry)
	logging.Debug("Storage", "using %s backend (%s)", backend.Type(), backend.Location())
	return storeInst, nil
}

// SetForTesting swaps the process-wide Store and returns a restore function.
func SetForTesting(s *Store) func() {
	storeMu.Lock()
	defer storeMu.Unlock()

	previous := storeInst
	storeInst = s
	return func() {
		storeMu.Lock()
		defer storeMu.Unlock()
		storeInst = previous
	}
}

// Detect selects a backend. A non-empty override names one explicitly and an
// unknown name is an error; otherwise keychain is probed first and file
// storage is the fallback, announced so the downgrade is never silent.
func Detect(override string) (Backend, error) {
	switch override {
	case "":
		// fall through to auto-detection
	case string(BackendKeychain):
		return NewKeychainBackend()
	case string(BackendFile):
		return NewFileBackend()
	case string(BackendMemory):
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown token storage backend %q (expected keychain, file or memory)", override)
	}

	backend, err := NewKeychainBackend()
	if err == nil {
		return backend, nil
	}
	logging.Warn("Storage", "OS keychain unavailable, falling back to file storage: %v", err)
	return NewFileBackend()
}

// sanitizeSite turns a site name into a filesystem and keychain safe label.
func sanitizeSite(site string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-':
			return r
		default:
			return '_'
		}
	}, site)
}
