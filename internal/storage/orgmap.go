package storage

import (
	"encoding/json"
	"fmt"

	"pup/internal/auth"
	"pup/pkg/logging"
)

// DefaultOrgKey is the sentinel key for the org-less session inside a
// per-site token blob.
const DefaultOrgKey = "__default__"

// orgKey maps an org label to its key in the per-site blob.
func orgKey(org string) string {
	if org == "" {
		return DefaultOrgKey
	}
	return org
}

// orgTokenMap is the canonical shape of a per-site token blob.
type orgTokenMap map[string]*auth.TokenSet

// decodeOrgTokenMap parses a per-site blob. The canonical map shape is tried
// first; a legacy bare TokenSet is promoted to {"__default__": tokens}.
// The map parse is attempted first because a bare TokenSet blob fails it
// cleanly, while the reverse parse would silently accept a map as an empty
// TokenSet.
func decodeOrgTokenMap(data []byte) (orgTokenMap, error) {
	var m orgTokenMap
	if err := json.Unmarshal(data, &m); err == nil {
		return m, nil
	}

	var legacy auth.TokenSet
	if err := json.Unmarshal(data, &legacy); err == nil && legacy.AccessToken != "" {
		logging.Debug("Storage", "promoting legacy single-session token blob")
		return orgTokenMap{DefaultOrgKey: &legacy}, nil
	}

	return nil, fmt.Errorf("unrecognized token blob format")
}

// lookupOrgTokens extracts one org's tokens from a raw blob. A nil blob or a
// missing org yields (nil, nil). The returned TokenSet is an independent
// copy the caller may mutate freely.
func lookupOrgTokens(data []byte, org string) (*auth.TokenSet, error) {
	if len(data) == 0 {
		return nil, nil
	}
	m, err := decodeOrgTokenMap(data)
	if err != nil {
		return nil, err
	}
	tokens, ok := m[orgKey(org)]
	if !ok || tokens == nil {
		return nil, nil
	}
	cp := *tokens
	return &cp, nil
}

// upsertOrgTokens sets one org's tokens in a raw blob and returns the new
// blob. An undecodable existing blob is replaced rather than failing the
// save, with a warning.
func upsertOrgTokens(data []byte, org string, tokens *auth.TokenSet) ([]byte, error) {
	m := orgTokenMap{}
	if len(data) > 0 {
		decoded, err := decodeOrgTokenMap(data)
		if err != nil {
			logging.Warn("Storage", "replacing unreadable token blob: %v", err)
		} else {
			m = decoded
		}
	}

	cp := *tokens
	m[orgKey(org)] = &cp
	return json.Marshal(m)
}

// removeOrgTokens deletes one org's tokens from a raw blob. It returns the
// new blob, or nil when the map became empty and the backing record should
// be removed entirely. Absent blobs and absent orgs are not errors.
func removeOrgTokens(data []byte, org string) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	m, err := decodeOrgTokenMap(data)
	if err != nil {
		// Nothing recoverable to preserve; treat the record as deletable.
		return nil, nil
	}

	delete(m, orgKey(org))
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
