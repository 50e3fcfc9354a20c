package storage

import (
	"fmt"

	"pup/internal/auth"
)

// MemoryBackend is the no-persistence backend for environments without any
// durable secret storage. Writes fail loudly so callers know tokens will not
// survive the process, reads report absence and deletes succeed, which lets
// bearer-token-via-environment flows keep working.
type MemoryBackend struct{}

func NewMemoryBackend() *MemoryBackend { return &MemoryBackend{} }

func (b *MemoryBackend) Type() BackendType { return BackendMemory }

func (b *MemoryBackend) Location() string { return "memory (no persistence)" }

func (b *MemoryBackend) SaveTokens(site, org string, tokens *auth.TokenSet) error {
	return fmt.Errorf("%w: in-memory backend cannot persist tokens", ErrStorageUnavailable)
}

func (b *MemoryBackend) LoadTokens(site, org string) (*auth.TokenSet, error) {
	return nil, nil
}

func (b *MemoryBackend) DeleteTokens(site, org string) error { return nil }

func (b *MemoryBackend) SaveClientCredentials(site string, creds *auth.ClientCredentials) error {
	return fmt.Errorf("%w: in-memory backend cannot persist client credentials", ErrStorageUnavailable)
}

func (b *MemoryBackend) LoadClientCredentials(site string) (*auth.ClientCredentials, error) {
	return nil, nil
}

func (b *MemoryBackend) DeleteClientCredentials(site string) error { return nil }
