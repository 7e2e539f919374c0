package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"oidcli/pkg/logging"

	"github.com/zalando/go-keyring"
)

const (
	userConfigDir    = ".config/oidcli"
	profilesFileName = "profiles.yaml"

	// keyringService is the service name under which client secrets are
	// stored in the OS keyring.
	keyringService = "oidcli"
)

// profilesFile is the on-disk shape of the profile store.
type profilesFile struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// SecretStore abstracts the OS keyring so tests can substitute an in-memory
// implementation.
type SecretStore interface {
	Set(name, secret string) error
	Get(name string) (string, error)
	Delete(name string) error
}

// systemKeyring is the production SecretStore backed by the OS keyring.
type systemKeyring struct{}

func (systemKeyring) Set(name, secret string) error {
	return keyring.Set(keyringService, name, secret)
}

func (systemKeyring) Get(name string) (string, error) {
	return keyring.Get(keyringService, name)
}

func (systemKeyring) Delete(name string) error {
	err := keyring.Delete(keyringService, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

// Store reads and writes the profile file and the keyring-held secrets.
type Store struct {
	path    string
	secrets SecretStore
}

// NewStore creates a store at the default location,
// ~/.config/oidcli/profiles.yaml.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("could not determine user config directory: %w", err)
	}
	return NewStoreWithPath(filepath.Join(homeDir, userConfigDir, profilesFileName)), nil
}

// NewStoreWithPath creates a store backed by the given file path.
func NewStoreWithPath(path string) *Store {
	return &Store{
		path:    path,
		secrets: systemKeyring{},
	}
}

// WithSecretStore replaces the keyring backend. Used by tests.
func (s *Store) WithSecretStore(secrets SecretStore) *Store {
	s.secrets = secrets
	return s
}

// Path returns the profile file location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the profile file. A missing file is an empty store, not an
// error.
func (s *Store) Load() (map[string]Profile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("ProfileStore", "No profile file at %s, starting empty", s.path)
			return map[string]Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read profile file %s: %w", s.path, err)
	}

	var file profilesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("malformed profile file %s: %w", s.path, err)
	}
	if file.Profiles == nil {
		file.Profiles = map[string]Profile{}
	}

	logging.Debug("ProfileStore", "Loaded %d profile(s) from %s", len(file.Profiles), s.path)
	return file.Profiles, nil
}

// Save writes the profile file with owner-only permissions, since profiles
// may carry client secrets.
func (s *Store) Save(profiles map[string]Profile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(profilesFile{Profiles: profiles})
	if err != nil {
		return fmt.Errorf("failed to encode profiles: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write profile file %s: %w", s.path, err)
	}

	logging.Debug("ProfileStore", "Saved %d profile(s) to %s", len(profiles), s.path)
	return nil
}

// StoreSecret puts a client secret into the keyring under the profile name.
func (s *Store) StoreSecret(name, secret string) error {
	if err := s.secrets.Set(name, secret); err != nil {
		return fmt.Errorf("failed to store secret for profile %q in keyring: %w", name, err)
	}
	return nil
}

// FetchSecret retrieves a keyring-held client secret.
func (s *Store) FetchSecret(name string) (string, error) {
	secret, err := s.secrets.Get(name)
	if err != nil {
		return "", fmt.Errorf("failed to read secret for profile %q from keyring: %w", name, err)
	}
	return secret, nil
}

// DeleteSecret removes a keyring entry. Missing entries are not an error; the
// profile may never have stored one.
func (s *Store) DeleteSecret(name string) error {
	if err := s.secrets.Delete(name); err != nil {
		return fmt.Errorf("failed to delete secret for profile %q from keyring: %w", name, err)
	}
	return nil
}
