// Package auth stores service account keys and turns them into Drive services.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dl-alexandre/drivesync/internal/utils"
	"github.com/zalando/go-keyring"
	"google.golang.org/api/drive/v3"
)

const serviceName = "drivesync"

// Key sources reported by Resolve
const (
	SourceFile    = "file"
	SourceStorage = "storage"
)

// Manager stores service account keys per profile and resolves the key to
// use for a run.
type Manager struct {
	configDir      string
	useKeyring     bool
	storage        StorageBackend
	storageWarning string
}

// ManagerOptions configures the auth manager
type ManagerOptions struct {
	ForceEncryptedFile bool // skip the system keyring even when available
}

// NewManager creates a new auth manager
func NewManager(configDir string) *Manager {
	return NewManagerWithOptions(configDir, ManagerOptions{})
}

// NewManagerWithOptions creates a new auth manager with specific options
func NewManagerWithOptions(configDir string, opts ManagerOptions) *Manager {
	mgr := &Manager{configDir: configDir}

	if opts.ForceEncryptedFile || !checkKeyringAvailable() {
		storage, err := NewEncryptedFileStorage(configDir)
		if err != nil {
			mgr.storageWarning = fmt.Sprintf("WARNING: Encryption setup failed (%v). Keys cannot be stored.", err)
			return mgr
		}
		mgr.storage = storage
		if !opts.ForceEncryptedFile {
			mgr.storageWarning = "INFO: System keyring not available. Using encrypted file storage."
		}
		return mgr
	}

	mgr.storage = NewKeyringStorage(serviceName)
	mgr.useKeyring = true
	return mgr
}

func checkKeyringAvailable() bool {
	testKey := "drivesync-test"
	if err := keyring.Set(serviceName, testKey, "test"); err != nil {
		return false
	}
	_ = keyring.Delete(serviceName, testKey)
	return true
}

// KeyInfo describes a stored or configured key without exposing it
type KeyInfo struct {
	Profile     string `json:"profile"`
	Source      string `json:"source"`
	Backend     string `json:"backend,omitempty"`
	KeyFile     string `json:"keyFile,omitempty"`
	ClientEmail string `json:"clientEmail"`
	ProjectID   string `json:"projectId,omitempty"`
}

// StoreKey validates a service account key and stores it for profile
func (m *Manager) StoreKey(profile string, data []byte) (*KeyInfo, error) {
	if m.storage == nil {
		return nil, fmt.Errorf("no key storage available: %s", m.storageWarning)
	}
	key, err := ParseServiceAccountKey(data)
	if err != nil {
		return nil, err
	}
	if err := m.storage.Save(profile, data); err != nil {
		return nil, fmt.Errorf("failed to store key: %w", err)
	}
	if err := m.addProfileToList(profile); err != nil {
		return nil, err
	}
	return &KeyInfo{
		Profile:     profile,
		Source:      SourceStorage,
		Backend:     m.storage.Name(),
		ClientEmail: key.ClientEmail,
		ProjectID:   key.ProjectID,
	}, nil
}

// StoreKeyFile reads a key file and stores it for profile
func (m *Manager) StoreKeyFile(profile, path string) (*KeyInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.LocalIOError("read", path, err)
	}
	return m.StoreKey(profile, data)
}

// LoadKey returns the stored key for profile
func (m *Manager) LoadKey(profile string) ([]byte, error) {
	if m.storage == nil {
		return nil, errKeyNotStored(profile)
	}
	return m.storage.Load(profile)
}

// DeleteKey removes the stored key for profile
func (m *Manager) DeleteKey(profile string) error {
	if m.storage == nil {
		return errKeyNotStored(profile)
	}
	if err := m.storage.Delete(profile); err != nil {
		return err
	}
	return m.removeProfileFromList(profile)
}

// Resolve picks the key for a run: keyFile when set, otherwise the key
// stored for profile when allowStorage is true.
func (m *Manager) Resolve(profile, keyFile string, allowStorage bool) ([]byte, *KeyInfo, error) {
	var (
		data []byte
		info = &KeyInfo{Profile: profile}
		err  error
	)
	switch {
	case keyFile != "":
		data, err = os.ReadFile(keyFile)
		if err != nil {
			return nil, nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
				fmt.Sprintf("service account key file not readable: %s", keyFile)).
				WithContext("keyFile", keyFile).
				Build())
		}
		info.Source = SourceFile
		info.KeyFile = keyFile
	case allowStorage:
		data, err = m.LoadKey(profile)
		if err != nil {
			return nil, nil, err
		}
		info.Source = SourceStorage
		info.Backend = m.GetStorageBackend()
	default:
		return nil, nil, errKeyNotStored(profile)
	}

	key, err := ParseServiceAccountKey(data)
	if err != nil {
		return nil, nil, err
	}
	info.ClientEmail = key.ClientEmail
	info.ProjectID = key.ProjectID
	return data, info, nil
}

// DriveService resolves a key and builds a Drive service from it
func (m *Manager) DriveService(ctx context.Context, profile, keyFile string, allowStorage bool, opts ServiceOptions) (*drive.Service, *KeyInfo, error) {
	data, info, err := m.Resolve(profile, keyFile, allowStorage)
	if err != nil {
		return nil, nil, err
	}
	svc, err := NewDriveService(ctx, data, opts)
	if err != nil {
		return nil, nil, err
	}
	return svc, info, nil
}

// ListProfiles lists the profiles with a stored key, sorted
func (m *Manager) ListProfiles() ([]string, error) {
	if files, ok := m.storage.(*EncryptedFileStorage); ok {
		profiles, err := files.Profiles()
		sort.Strings(profiles)
		return profiles, err
	}

	// The keyring cannot be enumerated, so profiles are tracked in a side file.
	var profiles []string
	data, err := os.ReadFile(m.profilesFile())
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	sort.Strings(profiles)
	return profiles, nil
}

// UseKeyring reports whether keys live in the system keyring
func (m *Manager) UseKeyring() bool {
	return m.useKeyring
}

// ConfigDir returns the directory holding the profile list and encrypted keys
func (m *Manager) ConfigDir() string {
	return m.configDir
}

// GetStorageBackend names the active storage backend
func (m *Manager) GetStorageBackend() string {
	if m.storage == nil {
		return "none"
	}
	return m.storage.Name()
}

// GetStorageWarning returns a notice about degraded storage, if any
func (m *Manager) GetStorageWarning() string {
	return m.storageWarning
}

func (m *Manager) profilesFile() string {
	return filepath.Join(m.configDir, "profiles.json")
}

func (m *Manager) addProfileToList(profile string) error {
	if !m.useKeyring {
		return nil
	}
	profiles, err := m.ListProfiles()
	if err != nil {
		return err
	}
	for _, p := range profiles {
		if p == profile {
			return nil
		}
	}
	return m.writeProfiles(append(profiles, profile))
}

func (m *Manager) removeProfileFromList(profile string) error {
	if !m.useKeyring {
		return nil
	}
	profiles, err := m.ListProfiles()
	if err != nil {
		return err
	}
	updated := []string{}
	for _, p := range profiles {
		if p != profile {
			updated = append(updated, p)
		}
	}
	return m.writeProfiles(updated)
}

func (m *Manager) writeProfiles(profiles []string) error {
	data, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return err
	}
	return os.WriteFile(m.profilesFile(), data, 0600)
}

func errKeyNotStored(profile string) error {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthRequired,
		fmt.Sprintf("no service account key stored for profile '%s'", profile)).
		WithContext("profile", profile).
		Build())
}
