package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/praxislabs/warden/internal/secret/keyring"
)

// ErrNotFound is returned when no secret is stored for a service.
var ErrNotFound = errors.New("secret not found")

// FileStore implements Store using AES-256-GCM encrypted files, one per
// service.
type FileStore struct {
	dir    string
	cipher cipher.AEAD
}

// NewFileStore creates a file-based secret store. key must be 32 bytes.
func NewFileStore(dir string, key []byte) (*FileStore, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating secret dir: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return &FileStore{dir: dir, cipher: gcm}, nil
}

func (s *FileStore) path(service Service) string {
	return filepath.Join(s.dir, string(service)+".enc")
}

// Save stores a secret encrypted on disk.
func (s *FileStore) Save(sec Secret) error {
	data, err := json.Marshal(sec)
	if err != nil {
		return fmt.Errorf("marshaling secret: %w", err)
	}

	nonce := make([]byte, s.cipher.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("generating nonce: %w", err)
	}

	encrypted := s.cipher.Seal(nonce, nonce, data, nil)
	if err := os.WriteFile(s.path(sec.Service), encrypted, 0600); err != nil {
		return fmt.Errorf("writing secret file: %w", err)
	}
	return nil
}

// Get retrieves the secret stored for the given service.
func (s *FileStore) Get(service Service) (*Secret, error) {
	encrypted, err := os.ReadFile(s.path(service))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, service)
		}
		return nil, fmt.Errorf("reading secret file: %w", err)
	}

	nonceSize := s.cipher.NonceSize()
	if len(encrypted) < nonceSize {
		return nil, fmt.Errorf("invalid secret file for %s", service)
	}

	nonce, ciphertext := encrypted[:nonceSize], encrypted[nonceSize:]
	data, err := s.cipher.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypting secret for %s: %w\n"+
			"  The encryption key may have changed since this secret was stored.\n"+
			"  To store it again: warden grant %s", service, err, service)
	}

	var sec Secret
	if err := json.Unmarshal(data, &sec); err != nil {
		return nil, fmt.Errorf("unmarshaling secret: %w", err)
	}
	return &sec, nil
}

// Delete removes the secret for the given service.
func (s *FileStore) Delete(service Service) error {
	if err := os.Remove(s.path(service)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting secret: %w", err)
	}
	return nil
}

// List returns all readable stored secrets.
func (s *FileStore) List() ([]Secret, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading secret dir: %w", err)
	}

	secrets := make([]Secret, 0, len(entries))
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) != ".enc" {
			continue
		}
		service := Service(entry.Name()[:len(entry.Name())-4])
		sec, err := s.Get(service)
		if err != nil {
			continue // Skip unreadable secrets
		}
		secrets = append(secrets, *sec)
	}
	return secrets, nil
}

// DefaultStoreDir returns the default secret store directory.
func DefaultStoreDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".warden", "secrets")
	}
	return filepath.Join(home, ".warden", "secrets")
}

// DefaultEncryptionKey retrieves the store encryption key, creating one on
// first use. Uses the system keychain when available, with a file fallback.
func DefaultEncryptionKey() ([]byte, error) {
	return keyring.GetOrCreateKey()
}

// OpenDefault opens the secret store at the default location with the
// default key.
func OpenDefault() (*FileStore, error) {
	key, err := DefaultEncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}
	store, err := NewFileStore(DefaultStoreDir(), key)
	if err != nil {
		return nil, fmt.Errorf("opening secret store: %w", err)
	}
	return store, nil
}
