package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pup/internal/auth"
	"pup/internal/config"
)

// FileBackend keeps one JSON file per site under the config directory.
// Files are owner-only (0600) and written whole, never appended.
type FileBackend struct {
	dir string
}

// NewFileBackend creates the backend, ensuring the config directory exists
// with owner-only permissions.
func NewFileBackend() (*FileBackend, error) {
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return &FileBackend{dir: dir}, nil
}

func (b *FileBackend) Type() BackendType { return BackendFile }

func (b *FileBackend) Location() string { return b.dir }

func (b *FileBackend) tokensPath(site string) string {
	return filepath.Join(b.dir, "tokens_"+sanitizeSite(site)+".json")
}

func (b *FileBackend) clientPath(site string) string {
	return filepath.Join(b.dir, "client_"+sanitizeSite(site)+".json")
}

// readIfExists returns the file contents, or nil without error when the file
// does not exist.
func readIfExists(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

func (b *FileBackend) SaveTokens(site, org string, tokens *auth.TokenSet) error {
	path := b.tokensPath(site)
	existing, err := readIfExists(path)
	if err != nil {
		return fmt.Errorf("could not read token file %s: %w", path, err)
	}
	blob, err := upsertOrgTokens(existing, org, tokens)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("could not write token file %s: %w", path, err)
	}
	return nil
}

func (b *FileBackend) LoadTokens(site, org string) (*auth.TokenSet, error) {
	path := b.tokensPath(site)
	data, err := readIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("could not read token file %s: %w", path, err)
	}
	return lookupOrgTokens(data, org)
}

func (b *FileBackend) DeleteTokens(site, org string) error {
	path := b.tokensPath(site)
	data, err := readIfExists(path)
	if err != nil {
		return fmt.Errorf("could not read token file %s: %w", path, err)
	}
	if data == nil {
		return nil
	}

	blob, err := removeOrgTokens(data, org)
	if err != nil {
		return err
	}
	if blob == nil {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("could not remove token file %s: %w", path, err)
		}
		return nil
	}
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("could not write token file %s: %w", path, err)
	}
	return nil
}

func (b *FileBackend) SaveClientCredentials(site string, creds *auth.ClientCredentials) error {
	blob, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	path := b.clientPath(site)
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		return fmt.Errorf("could not write client file %s: %w", path, err)
	}
	return nil
}

func (b *FileBackend) LoadClientCredentials(site string) (*auth.ClientCredentials, error) {
	path := b.clientPath(site)
	data, err := readIfExists(path)
	if err != nil {
		return nil, fmt.Errorf("could not read client file %s: %w", path, err)
	}
	if data == nil {
		return nil, nil
	}

	var creds auth.ClientCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("malformed client file %s: %w", path, err)
	}
	return &creds, nil
}

func (b *FileBackend) DeleteClientCredentials(site string) error {
	if err := os.Remove(b.clientPath(site)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
