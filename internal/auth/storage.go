package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
)

// StorageBackend holds service account keys by profile
type StorageBackend interface {
	Save(profile string, data []byte) error
	Load(profile string) ([]byte, error)
	Delete(profile string) error
	Name() string
}

// KeyringStorage uses the system keyring
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{serviceName: serviceName}
}

func (s *KeyringStorage) Save(profile string, data []byte) error {
	return keyring.Set(s.serviceName, profile, string(data))
}

func (s *KeyringStorage) Load(profile string) ([]byte, error) {
	data, err := keyring.Get(s.serviceName, profile)
	if err != nil {
		if err == keyring.ErrNotFound {
			return nil, errKeyNotStored(profile)
		}
		return nil, err
	}
	return []byte(data), nil
}

func (s *KeyringStorage) Delete(profile string) error {
	err := keyring.Delete(s.serviceName, profile)
	if err == keyring.ErrNotFound {
		return errKeyNotStored(profile)
	}
	return err
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}

// EncryptedFileStorage stores keys AES-GCM encrypted under baseDir
type EncryptedFileStorage struct {
	baseDir string
	key     []byte
}

// NewEncryptedFileStorage creates an encrypted file storage backend
func NewEncryptedFileStorage(baseDir string) (*EncryptedFileStorage, error) {
	key, err := getOrCreateEncryptionKey(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get encryption key: %w", err)
	}
	return &EncryptedFileStorage{baseDir: baseDir, key: key}, nil
}

func (s *EncryptedFileStorage) Save(profile string, data []byte) error {
	encrypted, err := s.encrypt(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt key: %w", err)
	}

	keyFile := s.path(profile)
	if err := os.MkdirAll(filepath.Dir(keyFile), 0700); err != nil {
		return err
	}
	return os.WriteFile(keyFile, encrypted, 0600)
}

func (s *EncryptedFileStorage) Load(profile string) ([]byte, error) {
	encrypted, err := os.ReadFile(s.path(profile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errKeyNotStored(profile)
		}
		return nil, err
	}
	return s.decrypt(encrypted)
}

func (s *EncryptedFileStorage) Delete(profile string) error {
	err := os.Remove(s.path(profile))
	if os.IsNotExist(err) {
		return errKeyNotStored(profile)
	}
	return err
}

func (s *EncryptedFileStorage) Name() string {
	return "encrypted-file"
}

// Profiles lists the profiles that have a stored key
func (s *EncryptedFileStorage) Profiles() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.baseDir, "keys"))
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	profiles := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && filepath.Ext(name) == ".enc" {
			profiles = append(profiles, name[:len(name)-len(".enc")])
		}
	}
	return profiles, nil
}

func (s *EncryptedFileStorage) path(profile string) string {
	return filepath.Join(s.baseDir, "keys", profile+".enc")
}

func (s *EncryptedFileStorage) encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (s *EncryptedFileStorage) decrypt(ciphertext []byte) ([]byte, error) {
	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, fmt.Errorf("invalid ciphertext")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	plaintext, err := gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}
	return plaintext, nil
}

func (s *EncryptedFileStorage) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func getOrCreateEncryptionKey(baseDir string) ([]byte, error) {
	keyFile := filepath.Join(baseDir, ".keyfile")

	if data, err := os.ReadFile(keyFile); err == nil {
		key, err := base64.StdEncoding.DecodeString(string(data))
		if err == nil && len(key) == 32 {
			return key, nil
		}
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(keyFile, []byte(encoded), 0600); err != nil {
		return nil, err
	}
	return key, nil
}
