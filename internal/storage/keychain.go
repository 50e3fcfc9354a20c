package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"pup/internal/auth"
)

// keychainService is the service name under which pup's secrets live in the
// OS secret manager.
const keychainService = "pup"

// KeychainBackend delegates to the OS secret manager via go-keyring.
type KeychainBackend struct{}

// NewKeychainBackend probes the secret manager with a benign read. A
// not-found answer proves the keychain is reachable; only a transport-level
// failure marks it unavailable.
func NewKeychainBackend() (*KeychainBackend, error) {
	if _, err := keyring.Get(keychainService, "pup_availability_probe"); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &KeychainBackend{}, nil
}

func (b *KeychainBackend) Type() BackendType { return BackendKeychain }

func (b *KeychainBackend) Location() string {
	return fmt.Sprintf("OS keychain (service %q)", keychainService)
}

func tokensKey(site string) string { return "tokens_" + sanitizeSite(site) }

func clientKey(site string) string { return "client_" + sanitizeSite(site) }

// readEntry returns the secret for a key, or nil without error when absent.
func readEntry(key string) ([]byte, error) {
	value, err := keyring.Get(keychainService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain read failed for %s: %w", key, err)
	}
	return []byte(value), nil
}

func (b *KeychainBackend) SaveTokens(site, org string, tokens *auth.TokenSet) error {
	key := tokensKey(site)
	existing, err := readEntry(key)
	if err != nil {
		return err
	}
	blob, err := upsertOrgTokens(existing, org, tokens)
	if err != nil {
		return err
	}
	if err := keyring.Set(keychainService, key, string(blob)); err != nil {
		return fmt.Errorf("keychain write failed for %s: %w", key, err)
	}
	return nil
}

func (b *KeychainBackend) LoadTokens(site, org string) (*auth.TokenSet, error) {
	data, err := readEntry(tokensKey(site))
	if err != nil {
		return nil, err
	}
	return lookupOrgTokens(data, org)
}

func (b *KeychainBackend) DeleteTokens(site, org string) error {
	key := tokensKey(site)
	data, err := readEntry(key)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	blob, err := removeOrgTokens(data, org)
	if err != nil {
		return err
	}
	if blob == nil {
		if err := keyring.Delete(keychainService, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("keychain delete failed for %s: %w", key, err)
		}
		return nil
	}
	if err := keyring.Set(keychainService, key, string(blob)); err != nil {
		return fmt.Errorf("keychain write failed for %s: %w", key, err)
	}
	return nil
}

func (b *KeychainBackend) SaveClientCredentials(site string, creds *auth.ClientCredentials) error {
	blob, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	key := clientKey(site)
	if err := keyring.Set(keychainService, key, string(blob)); err != nil {
		return fmt.Errorf("keychain write failed for %s: %w", key, err)
	}
	return nil
}

func (b *KeychainBackend) LoadClientCredentials(site string) (*auth.ClientCredentials, error) {
	data, err := readEntry(clientKey(site))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var creds auth.ClientCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("malformed client credentials in keychain: %w", err)
	}
	return &creds, nil
}

func (b *KeychainBackend) DeleteClientCredentials(site string) error {
	if err := keyring.Delete(keychainService, clientKey(site)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
