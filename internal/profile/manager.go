package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"oidcli/pkg/logging"
)

// NotFoundError indicates a profile name that does not exist in the store.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile %q not found", e.Name)
}

// ExistsError indicates an attempt to create or rename over an existing
// profile.
type ExistsError struct {
	Name string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("profile %q already exists", e.Name)
}

// Manager owns the in-memory profile set and persists every mutation through
// its Store.
type Manager struct {
	store    *Store
	profiles map[string]Profile
}

// NewManager loads the profile set from the default store location.
func NewManager() (*Manager, error) {
	store, err := NewStore()
	if err != nil {
		return nil, err
	}
	return NewManagerWithStore(store)
}

// NewManagerWithStore loads the profile set from the given store.
func NewManagerWithStore(store *Store) (*Manager, error) {
	profiles, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, profiles: profiles}, nil
}

// Names returns the profile names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.profiles))
	for name := range m.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasProfiles reports whether any profile exists.
func (m *Manager) HasProfiles() bool {
	return len(m.profiles) > 0
}

// Get returns the stored profile as-is; keyring-held secrets are not
// resolved. Use GetResolved before running a login.
func (m *Manager) Get(name string) (Profile, error) {
	p, ok := m.profiles[name]
	if !ok {
		return Profile{}, &NotFoundError{Name: name}
	}
	return p, nil
}

// GetResolved returns the profile with its client secret materialized from
// the keyring when the profile stores it there.
func (m *Manager) GetResolved(name string) (Profile, error) {
	p, err := m.Get(name)
	if err != nil {
		return Profile{}, err
	}
	if p.SecretInKeyring {
		secret, err := m.store.FetchSecret(name)
		if err != nil {
			return Profile{}, err
		}
		p.ClientSecret = secret
	}
	return p, nil
}

// Create validates and adds a new profile. With useKeyring set, the client
// secret goes to the OS keyring and only a marker is written to disk.
func (m *Manager) Create(name string, p Profile, useKeyring bool) error {
	name = Sanitize(name)
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if _, ok := m.profiles[name]; ok {
		return &ExistsError{Name: name}
	}

	sanitized := sanitizeProfile(p)
	if err := sanitized.Validate(); err != nil {
		return err
	}

	if useKeyring && sanitized.ClientSecret != "" {
		if err := m.store.StoreSecret(name, sanitized.ClientSecret); err != nil {
			return err
		}
		sanitized.ClientSecret = ""
		sanitized.SecretInKeyring = true
	}

	m.profiles[name] = sanitized
	if err := m.save(); err != nil {
		return err
	}
	logging.Info("ProfileManager", "Created profile %q", name)
	return nil
}

// Update validates and replaces an existing profile.
func (m *Manager) Update(name string, p Profile, useKeyring bool) error {
	if _, ok := m.profiles[name]; !ok {
		return &NotFoundError{Name: name}
	}

	sanitized := sanitizeProfile(p)
	if err := sanitized.Validate(); err != nil {
		return err
	}

	if useKeyring && sanitized.ClientSecret != "" {
		if err := m.store.StoreSecret(name, sanitized.ClientSecret); err != nil {
			return err
		}
		sanitized.ClientSecret = ""
		sanitized.SecretInKeyring = true
	}

	m.profiles[name] = sanitized
	if err := m.save(); err != nil {
		return err
	}
	logging.Info("ProfileManager", "Updated profile %q", name)
	return nil
}

// Delete removes a profile and its keyring entry, if any.
func (m *Manager) Delete(name string) error {
	p, ok := m.profiles[name]
	if !ok {
		return &NotFoundError{Name: name}
	}

	if p.SecretInKeyring {
		if err := m.store.DeleteSecret(name); err != nil {
			// The profile is still being removed; losing the orphaned
			// keyring entry is preferable to blocking the delete.
			logging.Warn("ProfileManager", "Could not remove keyring secret for %q: %v", name, err)
		}
	}

	delete(m.profiles, name)
	if err := m.save(); err != nil {
		return err
	}
	logging.Info("ProfileManager", "Deleted profile %q", name)
	return nil
}

// Rename moves a profile to a new name, carrying any keyring secret along.
func (m *Manager) Rename(oldName, newName string) error {
	newName = Sanitize(newName)
	if newName == "" {
		return fmt.Errorf("new profile name cannot be empty")
	}

	p, ok := m.profiles[oldName]
	if !ok {
		return &NotFoundError{Name: oldName}
	}
	if _, ok := m.profiles[newName]; ok {
		return &ExistsError{Name: newName}
	}

	if p.SecretInKeyring {
		secret, err := m.store.FetchSecret(oldName)
		if err != nil {
			return err
		}
		if err := m.store.StoreSecret(newName, secret); err != nil {
			return err
		}
		if err := m.store.DeleteSecret(oldName); err != nil {
			logging.Warn("ProfileManager", "Could not remove old keyring secret for %q: %v", oldName, err)
		}
	}

	delete(m.profiles, oldName)
	m.profiles[newName] = p
	if err := m.save(); err != nil {
		return err
	}
	logging.Info("ProfileManager", "Renamed profile %q to %q", oldName, newName)
	return nil
}

// Export writes the named profiles (all when names is empty) to a file.
// The format follows the file extension: .json for JSON, anything else YAML.
// Keyring-held secrets are never written; the exported record drops the
// keyring marker so the file stands alone.
func (m *Manager) Export(path string, names []string) error {
	selected := map[string]Profile{}
	if len(names) == 0 {
		for name, p := range m.profiles {
			selected[name] = p
		}
	} else {
		for _, name := range names {
			p, ok := m.profiles[name]
			if !ok {
				return &NotFoundError{Name: name}
			}
			selected[name] = p
		}
	}

	for name, p := range selected {
		if p.SecretInKeyring {
			p.SecretInKeyring = false
			selected[name] = p
		}
	}

	file := profilesFile{Profiles: selected}
	var data []byte
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(file, "", "  ")
	} else {
		data, err = yaml.Marshal(file)
	}
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write export file %s: %w", path, err)
	}

	logging.Info("ProfileManager", "Exported %d profile(s) to %s", len(selected), path)
	return nil
}

// Import reads profiles from a file (JSON or YAML by extension) and merges
// them into the store. Existing names are refused unless overwrite is set.
// Returns the imported names, sorted.
func (m *Manager) Import(path string, overwrite bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file %s: %w", path, err)
	}

	var file profilesFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("malformed import file %s: %w", path, err)
	}

	if len(file.Profiles) == 0 {
		return nil, fmt.Errorf("import file %s contains no profiles", path)
	}

	// Validate everything before touching the store so a bad entry cannot
	// leave a half-imported state.
	for name, p := range file.Profiles {
		if Sanitize(name) == "" {
			return nil, fmt.Errorf("import file contains a profile with an empty name")
		}
		if !overwrite {
			if _, ok := m.profiles[name]; ok {
				return nil, &ExistsError{Name: name}
			}
		}
		// Imported records cannot reference this machine's keyring.
		p.SecretInKeyring = false
		file.Profiles[name] = p
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("profile %q: %w", name, err)
		}
	}

	imported := make([]string, 0, len(file.Profiles))
	for name, p := range file.Profiles {
		m.profiles[name] = p
		imported = append(imported, name)
	}
	sort.Strings(imported)

	if err := m.save(); err != nil {
		return nil, err
	}
	logging.Info("ProfileManager", "Imported %d profile(s) from %s", len(imported), path)
	return imported, nil
}

func (m *Manager) save() error {
	return m.store.Save(m.profiles)
}

func sanitizeProfile(p Profile) Profile {
	p.ClientID = Sanitize(p.ClientID)
	p.ClientSecret = Sanitize(p.ClientSecret)
	p.RedirectURI = Sanitize(p.RedirectURI)
	p.Scope = Sanitize(p.Scope)
	p.DiscoveryURI = Sanitize(p.DiscoveryURI)
	p.AuthorizationEndpoint = Sanitize(p.AuthorizationEndpoint)
	p.TokenEndpoint = Sanitize(p.TokenEndpoint)
	return p
}
