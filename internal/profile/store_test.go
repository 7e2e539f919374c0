package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oidcli/pkg/logging"
)

func init() {
	logging.InitForTests()
}

// memorySecrets is an in-memory SecretStore standing in for the OS keyring.
type memorySecrets struct {
	data map[string]string
}

func newMemorySecrets() *memorySecrets {
	return &memorySecrets{data: map[string]string{}}
}

func (m *memorySecrets) Set(name, secret string) error {
	m.data[name] = secret
	return nil
}

func (m *memorySecrets) Get(name string) (string, error) {
	secret, ok := m.data[name]
	if !ok {
		return "", os.ErrNotExist
	}
	return secret, nil
}

func (m *memorySecrets) Delete(name string) error {
	delete(m.data, name)
	return nil
}

func testStore(t *testing.T) (*Store, *memorySecrets) {
	t.Helper()
	secrets := newMemorySecrets()
	store := NewStoreWithPath(filepath.Join(t.TempDir(), "profiles.yaml")).WithSecretStore(secrets)
	return store, secrets
}

func TestStore_LoadMissingFile(t *testing.T) {
	store, _ := testStore(t)

	profiles, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := testStore(t)

	want := map[string]Profile{
		"work": {
			DiscoveryURI: "https://idp.example.com/.well-known/openid-configuration",
			ClientID:     "client-1",
			RedirectURI:  "http://localhost:8080/callback",
			Scope:        "openid profile",
		},
		"dev": {
			ClientID:              "client-2",
			RedirectURI:           "http://127.0.0.1:9090/cb",
			Scope:                 "openid",
			AuthorizationEndpoint: "https://idp.example.com/authorize",
			TokenEndpoint:         "https://idp.example.com/token",
			TimeoutSeconds:        60,
		},
	}

	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStore_SavePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}

	store, _ := testStore(t)
	require.NoError(t, store.Save(map[string]Profile{"p": {ClientID: "c"}}))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm(), "profile file must be owner-only")

	dirInfo, err := os.Stat(filepath.Dir(store.Path()))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm(), "config directory must be owner-only")
}

func TestStore_LoadMalformedFile(t *testing.T) {
	store, _ := testStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.Path()), 0o700))
	require.NoError(t, os.WriteFile(store.Path(), []byte("{not yaml"), 0o600))

	_, err := store.Load()
	assert.Error(t, err)
}

func TestStore_Secrets(t *testing.T) {
	store, secrets := testStore(t)

	require.NoError(t, store.StoreSecret("work", "s3cret"))
	assert.Equal(t, "s3cret", secrets.data["work"])

	got, err := store.FetchSecret("work")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	require.NoError(t, store.DeleteSecret("work"))
	_, err = store.FetchSecret("work")
	assert.Error(t, err)
}
