package storage

import (
	"encoding/json"
	"fmt"

	"pup/internal/auth"
)

// KV is a minimal key/value store supplied by the embedding host, typically
// browser local storage when pup runs inside a web runtime. Get reports
// absence through its second return value rather than an error.
type KV interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// kvKeyPrefix namespaces pup's records inside the shared host store.
const kvKeyPrefix = "pup_"

// KVBackend persists through a host-provided KV with the same per-site map
// semantics as the file backend.
type KVBackend struct {
	kv KV
}

func NewKVBackend(kv KV) *KVBackend { return &KVBackend{kv: kv} }

func (b *KVBackend) Type() BackendType { return BackendKV }

func (b *KVBackend) Location() string { return "host key/value store" }

func kvTokensKey(site string) string { return kvKeyPrefix + "tokens_" + sanitizeSite(site) }

func kvClientKey(site string) string { return kvKeyPrefix + "client_" + sanitizeSite(site) }

// kvRead returns the raw value for a key, or nil without error when absent.
func (b *KVBackend) kvRead(key string) ([]byte, error) {
	value, ok, err := b.kv.Get(key)
	if err != nil {
		return nil, fmt.Errorf("host store read failed for %s: %w", key, err)
	}
	if !ok {
		return nil, nil
	}
	return []byte(value), nil
}

func (b *KVBackend) SaveTokens(site, org string, tokens *auth.TokenSet) error {
	key := kvTokensKey(site)
	existing, err := b.kvRead(key)
	if err != nil {
		return err
	}
	blob, err := upsertOrgTokens(existing, org, tokens)
	if err != nil {
		return err
	}
	if err := b.kv.Set(key, string(blob)); err != nil {
		return fmt.Errorf("host store write failed for %s: %w", key, err)
	}
	return nil
}

func (b *KVBackend) LoadTokens(site, org string) (*auth.TokenSet, error) {
	data, err := b.kvRead(kvTokensKey(site))
	if err != nil {
		return nil, err
	}
	return lookupOrgTokens(data, org)
}

func (b *KVBackend) DeleteTokens(site, org string) error {
	key := kvTokensKey(site)
	data, err := b.kvRead(key)
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
		if err := b.kv.Delete(key); err != nil {
			return fmt.Errorf("host store delete failed for %s: %w", key, err)
		}
		return nil
	}
	if err := b.kv.Set(key, string(blob)); err != nil {
		return fmt.Errorf("host store write failed for %s: %w", key, err)
	}
	return nil
}

func (b *KVBackend) SaveClientCredentials(site string, creds *auth.ClientCredentials) error {
	blob, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	key := kvClientKey(site)
	if err := b.kv.Set(key, string(blob)); err != nil {
		return fmt.Errorf("host store write failed for %s: %w", key, err)
	}
	return nil
}

func (b *KVBackend) LoadClientCredentials(site string) (*auth.ClientCredentials, error) {
	data, err := b.kvRead(kvClientKey(site))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var creds auth.ClientCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("malformed client credentials in host store: %w", err)
	}
	return &creds, nil
}

func (b *KVBackend) DeleteClientCredentials(site string) error {
	return b.kv.Delete(kvClientKey(site))
}
