package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pup/internal/config"
)

// sessionsFileName is the registry file inside the config directory.
const sessionsFileName = "sessions.json"

// SessionEntry records one known login. It carries no secrets, so listing
// logins never has to unlock the secret backend.
type SessionEntry struct {
	Site string `json:"site"`
	Org  string `json:"org,omitempty"`
}

// SessionRegistry is an ordered, deduplicated list of (site, org) pairs
// stored as a JSON array, independent of the secret backend.
type SessionRegistry struct {
	path string
}

// NewSessionRegistry creates the registry under the config directory,
// creating the directory if needed.
func NewSessionRegistry() (*SessionRegistry, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return &SessionRegistry{path: filepath.Join(dir, sessionsFileName)}, nil
}

// List returns all known sessions in registration order. A missing registry
// file means no sessions.
func (r *SessionRegistry) List() ([]SessionEntry, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not read session registry %s: %w", r.path, err)
	}

	var entries []SessionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("malformed session registry %s: %w", r.path, err)
	}
	return entries, nil
}

// Save records a (site, org) pair. Re-saving an existing pair is a no-op, so
// the registry never grows duplicates.
func (r *SessionRegistry) Save(site, org string) error {
	entries, err := r.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Site == site && e.Org == org {
			return nil
		}
	}
	entries = append(entries, SessionEntry{Site: site, Org: org})
	return r.write(entries)
}

// Remove drops a (site, org) pair. Removing a pair that was never saved
// succeeds silently.
func (r *SessionRegistry) Remove(site, org string) error {
	entries, err := r.List()
	if err != nil {
		return err
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.Site == site && e.Org == org {
			continue
		}
		kept = append(kept, e)
	}
	if len(kept) == len(entries) {
		return nil
	}
	return r.write(kept)
}

func (r *SessionRegistry) write(entries []SessionEntry) error {
	blob, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.path, blob, 0o600); err != nil {
		return fmt.Errorf("could not write session registry %s: %w", r.path, err)
	}
	return nil
}
