package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"pup/internal/auth"
)

func testTokens(access string) *auth.TokenSet {
	return &auth.TokenSet{
		AccessToken:  access,
		RefreshToken: "refresh-" + access,
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		IssuedAt:     time.Now().Unix(),
		Scope:        "scope_a",
		ClientID:     "client-1",
	}
}

// runBackendSuite exercises the properties every read-write backend must
// satisfy: round-trips for the default and named orgs, isolation between
// orgs, partial and final deletion, and client credential persistence.
func runBackendSuite(t *testing.T, backend Backend) {
	const site = "suite.datadoghq.com"

	t.Run("RoundTripDefaultOrg", func(t *testing.T) {
		saved := testTokens("default-token")
		require.NoError(t, backend.SaveTokens(site, "", saved))

		loaded, err := backend.LoadTokens(site, "")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, saved, loaded)
	})

	t.Run("RoundTripNamedOrg", func(t *testing.T) {
		saved := testTokens("prod-token")
		require.NoError(t, backend.SaveTokens(site, "prod", saved))

		loaded, err := backend.LoadTokens(site, "prod")
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, saved, loaded)
	})

	t.Run("OrgIsolation", func(t *testing.T) {
		loaded, err := backend.LoadTokens(site, "staging")
		require.NoError(t, err)
		assert.Nil(t, loaded, "a never-saved org must not see another org's tokens")

		def, err := backend.LoadTokens(site, "")
		require.NoError(t, err)
		require.NotNil(t, def)
		assert.Equal(t, "default-token", def.AccessToken)
	})

	t.Run("LoadedCopyIsIndependent", func(t *testing.T) {
		loaded, err := backend.LoadTokens(site, "")
		require.NoError(t, err)
		loaded.AccessToken = "mutated"

		again, err := backend.LoadTokens(site, "")
		require.NoError(t, err)
		assert.Equal(t, "default-token", again.AccessToken)
	})

	t.Run("PartialDeletion", func(t *testing.T) {
		require.NoError(t, backend.DeleteTokens(site, "prod"))

		gone, err := backend.LoadTokens(site, "prod")
		require.NoError(t, err)
		assert.Nil(t, gone)

		kept, err := backend.LoadTokens(site, "")
		require.NoError(t, err)
		require.NotNil(t, kept, "deleting one org must leave the others intact")
	})

	t.Run("DeleteAbsentOrgSucceeds", func(t *testing.T) {
		require.NoError(t, backend.DeleteTokens(site, "never-existed"))
	})

	t.Run("FinalDeletion", func(t *testing.T) {
		require.NoError(t, backend.DeleteTokens(site, ""))

		gone, err := backend.LoadTokens(site, "")
		require.NoError(t, err)
		assert.Nil(t, gone)
	})

	t.Run("ClientCredentials", func(t *testing.T) {
		creds := &auth.ClientCredentials{
			ClientID:     "client-xyz",
			ClientName:   "pup CLI",
			RedirectURIs: []string{"http://127.0.0.1:1234/callback"},
			RegisteredAt: time.Now().Unix(),
			Site:         site,
		}
		require.NoError(t, backend.SaveClientCredentials(site, creds))

		loaded, err := backend.LoadClientCredentials(site)
		require.NoError(t, err)
		assert.Equal(t, creds, loaded)

		require.NoError(t, backend.DeleteClientCredentials(site))
		gone, err := backend.LoadClientCredentials(site)
		require.NoError(t, err)
		assert.Nil(t, gone)

		require.NoError(t, backend.DeleteClientCredentials(site), "deleting absent credentials succeeds")
	})
}

func newTestFileBackend(t *testing.T) (*FileBackend, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PUP_CONFIG_DIR", dir)
	backend, err := NewFileBackend()
	require.NoError(t, err)
	return backend, dir
}

func TestFileBackendSuite(t *testing.T) {
	backend, _ := newTestFileBackend(t)
	runBackendSuite(t, backend)
}

func TestFileBackendSingleFilePerSite(t *testing.T) {
	backend, dir := newTestFileBackend(t)

	require.NoError(t, backend.SaveTokens("multi.site", "", testTokens("a")))
	require.NoError(t, backend.SaveTokens("multi.site", "prod", testTokens("b")))
	require.NoError(t, backend.SaveTokens("multi.site", "staging", testTokens("c")))

	files, err := filepath.Glob(filepath.Join(dir, "tokens_*.json"))
	require.NoError(t, err)
	assert.Len(t, files, 1, "three orgs on one site share one backing file")
}

func TestFileBackendFinalDeletionRemovesFile(t *testing.T) {
	backend, dir := newTestFileBackend(t)

	require.NoError(t, backend.SaveTokens("gone.site", "only", testTokens("x")))
	require.NoError(t, backend.DeleteTokens("gone.site", "only"))

	files, err := filepath.Glob(filepath.Join(dir, "tokens_*.json"))
	require.NoError(t, err)
	assert.Empty(t, files, "deleting the last org removes the file, not just empties it")
}

func TestFileBackendPermissions(t *testing.T) {
	backend, dir := newTestFileBackend(t)
	require.NoError(t, backend.SaveTokens("perm.site", "", testTokens("x")))

	files, err := filepath.Glob(filepath.Join(dir, "tokens_*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	info, err := os.Stat(files[0])
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileBackendLegacyMigration(t *testing.T) {
	backend, dir := newTestFileBackend(t)

	legacy := testTokens("legacy-token")
	blob, err := json.Marshal(legacy)
	require.NoError(t, err)
	path := filepath.Join(dir, "tokens_"+sanitizeSite("legacy.site")+".json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	loaded, err := backend.LoadTokens("legacy.site", "")
	require.NoError(t, err)
	require.NotNil(t, loaded, "a legacy bare-TokenSet blob loads as the default org")
	assert.Equal(t, "legacy-token", loaded.AccessToken)

	other, err := backend.LoadTokens("legacy.site", "other")
	require.NoError(t, err)
	assert.Nil(t, other, "a legacy blob carries only the default org")
}

func TestKeychainBackendSuite(t *testing.T) {
	keyring.MockInit()
	backend, err := NewKeychainBackend()
	require.NoError(t, err)
	runBackendSuite(t, backend)
}

// fakeKV is an in-memory KV for the browser-storage backend tests.
type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (kv *fakeKV) Get(key string) (string, bool, error) {
	value, ok := kv.data[key]
	return value, ok, nil
}

func (kv *fakeKV) Set(key, value string) error {
	kv.data[key] = value
	return nil
}

func (kv *fakeKV) Delete(key string) error {
	delete(kv.data, key)
	return nil
}

func TestKVBackendSuite(t *testing.T) {
	runBackendSuite(t, NewKVBackend(newFakeKV()))
}

func TestKVBackendSingleRecordPerSite(t *testing.T) {
	kv := newFakeKV()
	backend := NewKVBackend(kv)

	require.NoError(t, backend.SaveTokens("multi.site", "", testTokens("a")))
	require.NoError(t, backend.SaveTokens("multi.site", "prod", testTokens("b")))
	require.NoError(t, backend.SaveTokens("multi.site", "staging", testTokens("c")))

	assert.Len(t, kv.data, 1, "three orgs on one site share one record")

	require.NoError(t, backend.DeleteTokens("multi.site", ""))
	require.NoError(t, backend.DeleteTokens("multi.site", "prod"))
	require.NoError(t, backend.DeleteTokens("multi.site", "staging"))
	assert.Empty(t, kv.data, "deleting the last org removes the record")
}

func TestMemoryBackend(t *testing.T) {
	backend := NewMemoryBackend()

	err := backend.SaveTokens("site", "", testTokens("x"))
	require.ErrorIs(t, err, ErrStorageUnavailable, "token writes fail loudly")

	err = backend.SaveClientCredentials("site", &auth.ClientCredentials{ClientID: "c"})
	require.ErrorIs(t, err, ErrStorageUnavailable)

	tokens, err := backend.LoadTokens("site", "")
	require.NoError(t, err, "reads report absence, not failure")
	assert.Nil(t, tokens)

	creds, err := backend.LoadClientCredentials("site")
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, backend.DeleteTokens("site", ""))
	require.NoError(t, backend.DeleteClientCredentials("site"))
}

func TestDetect(t *testing.T) {
	t.Setenv("PUP_CONFIG_DIR", t.TempDir())

	t.Run("FileOverride", func(t *testing.T) {
		backend, err := Detect("file")
		require.NoError(t, err)
		assert.Equal(t, BackendFile, backend.Type())
	})

	t.Run("MemoryOverride", func(t *testing.T) {
		backend, err := Detect("memory")
		require.NoError(t, err)
		assert.Equal(t, BackendMemory, backend.Type())
	})

	t.Run("KeychainOverride", func(t *testing.T) {
		keyring.MockInit()
		backend, err := Detect("keychain")
		require.NoError(t, err)
		assert.Equal(t, BackendKeychain, backend.Type())
	})

	t.Run("UnknownOverride", func(t *testing.T) {
		_, err := Detect("carrier-pigeon")
		require.Error(t, err)
	})
}

func TestStoreSerializesAccess(t *testing.T) {
	t.Setenv("PUP_CONFIG_DIR", t.TempDir())
	backend, err := NewFileBackend()
	require.NoError(t, err)
	registry, err := NewSessionRegistry()
	require.NoError(t, err)
	store := NewStore(backend, registry)

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func(n int) {
			done <- store.SaveTokens("race.site", "org", testTokens("t"))
		}(i)
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-done)
	}

	loaded, err := store.LoadTokens("race.site", "org")
	require.NoError(t, err)
	require.NotNil(t, loaded)
}
