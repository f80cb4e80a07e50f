// Package keyring stores the secret-store encryption key.
//
// Keys live in the system keychain when one is available (macOS Keychain,
// libsecret, Windows Credential Manager). Headless hosts fall back to a
// 0600 file at ~/.warden/encryption.key. Key creation is serialized across
// processes with a file lock so concurrent first runs agree on one key.
package keyring

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/praxislabs/warden/internal/log"
)

const (
	// ServiceName is the keyring service identifier. Override with
	// WARDEN_KEYRING_SERVICE for test isolation.
	ServiceName = "warden"
	// AccountName is the keyring account identifier.
	AccountName = "encryption-key"
	// KeySize is the encryption key size in bytes.
	KeySize = 32
)

func serviceName() string {
	if name := os.Getenv("WARDEN_KEYRING_SERVICE"); name != "" {
		return name
	}
	return ServiceName
}

func encodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: expected %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

// Backend defines the interface for key storage.
type Backend interface {
	Get() ([]byte, error)
	Set(key []byte) error
	Delete() error
	Name() string
}

type keychainBackend struct{}

func (k *keychainBackend) Get() ([]byte, error) {
	encoded, err := keyring.Get(serviceName(), AccountName)
	if err != nil {
		return nil, fmt.Errorf("keychain get: %w", err)
	}
	return decodeKey(encoded)
}

func (k *keychainBackend) Set(key []byte) error {
	// Never overwrite: a concurrent process may have stored a key between
	// our Get and Set. Callers re-read after Set.
	service := serviceName()
	if _, err := keyring.Get(service, AccountName); err == nil {
		return nil
	}
	if err := keyring.Set(service, AccountName, encodeKey(key)); err != nil {
		return fmt.Errorf("keychain set: %w", err)
	}
	return nil
}

func (k *keychainBackend) Delete() error {
	if err := keyring.Delete(serviceName(), AccountName); err != nil {
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

func (k *keychainBackend) Name() string {
	return "system keychain"
}

type fileBackend struct {
	path string
}

// ErrInsecurePermissions is returned when the key file is readable by other
// users.
var ErrInsecurePermissions = errors.New("key file has insecure permissions")

func (f *fileBackend) Get() ([]byte, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	perm := info.Mode().Perm()
	if perm&0077 != 0 {
		return nil, fmt.Errorf("%w: %s has permissions %04o (expected 0600).\n"+
			"  The key may have been exposed. To fix:\n"+
			"  1. chmod 600 %s\n"+
			"  2. Consider storing secrets again: warden grant <service>",
			ErrInsecurePermissions, f.path, perm, f.path)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}
	return decodeKey(strings.TrimSpace(string(data)))
}

func (f *fileBackend) Set(key []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}

	lockPath := f.path + ".lock"
	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("creating lock file: %w", err)
	}
	defer lf.Close()
	defer os.Remove(lockPath)

	unlock, err := lockFile(lf)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer unlock()

	// A concurrent process may have written the key while we waited for the
	// lock. Keep theirs; the caller re-reads after Set.
	if _, err := os.Stat(f.path); err == nil {
		return nil
	}
	if err := os.WriteFile(f.path, []byte(encodeKey(key)), 0600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

func (f *fileBackend) Delete() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting key file: %w", err)
	}
	return nil
}

func (f *fileBackend) Name() string {
	return "file (" + f.path + ")"
}

// ErrNoHomeDirectory is returned when the home directory cannot be
// determined. Temp directories are not an acceptable key location.
var ErrNoHomeDirectory = errors.New("could not determine home directory for secure key storage")

// DefaultKeyFilePath returns the path of the fallback key file. The service
// name is included in the filename only when WARDEN_KEYRING_SERVICE is set,
// keeping test keys apart from the real one.
func DefaultKeyFilePath() (string, error) {
	filename := "encryption.key"
	if name := os.Getenv("WARDEN_KEYRING_SERVICE"); name != "" {
		filename = name + ".key"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		if envHome := os.Getenv("HOME"); envHome != "" {
			return filepath.Join(envHome, ".warden", filename), nil
		}
		return "", fmt.Errorf("%w: set $HOME or ensure the user home is configured", ErrNoHomeDirectory)
	}
	return filepath.Join(home, ".warden", filename), nil
}

func generateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating random key: %w", err)
	}
	return key, nil
}

func globalLockPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		if envHome := os.Getenv("HOME"); envHome != "" {
			home = envHome
		} else {
			home = os.TempDir()
		}
	}
	return filepath.Join(home, ".warden", "key.lock")
}

// withGlobalKeyLock runs fn while holding the global key lock, so only one
// process at a time can create or modify the encryption key.
func withGlobalKeyLock(fn func() ([]byte, error)) ([]byte, error) {
	lockPath := globalLockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0700); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	lf, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating global key lock file: %w", err)
	}
	defer lf.Close()

	unlock, err := lockFile(lf)
	if err != nil {
		return nil, fmt.Errorf("acquiring global key lock: %w", err)
	}
	defer unlock()

	return fn()
}

func getOrCreateKeyWithBackends(primary, fallback Backend) ([]byte, error) {
	if key, err := primary.Get(); err == nil {
		return key, nil
	}
	if key, err := fallback.Get(); err == nil {
		return key, nil
	}

	key, err := generateKey()
	if err != nil {
		return nil, err
	}

	primaryErr := primary.Set(key)
	if primaryErr == nil {
		// Re-read so we return whatever actually got stored, which may be
		// another process's key.
		storedKey, getErr := primary.Get()
		if getErr != nil {
			return nil, fmt.Errorf("verifying stored encryption key in %s: %w", primary.Name(), getErr)
		}
		return storedKey, nil
	}

	log.Info("system keychain unavailable, using file-based key storage",
		"fallback", fallback.Name())
	if fallbackErr := fallback.Set(key); fallbackErr != nil {
		return nil, fmt.Errorf("storing encryption key failed.\n"+
			"  Keychain (%s): %v\n"+
			"  File (%s): %v\n"+
			"Ensure ~/.warden is writable and check system keychain access",
			primary.Name(), primaryErr, fallback.Name(), fallbackErr)
	}

	storedKey, err := fallback.Get()
	if err != nil {
		return nil, fmt.Errorf("verifying stored encryption key: %w", err)
	}
	return storedKey, nil
}

// GetOrCreateKey retrieves the encryption key, generating and storing a new
// one on first use.
func GetOrCreateKey() ([]byte, error) {
	return withGlobalKeyLock(func() ([]byte, error) {
		keyFilePath, err := DefaultKeyFilePath()
		if err != nil {
			return nil, err
		}
		primary := &keychainBackend{}
		fallback := &fileBackend{path: keyFilePath}
		return getOrCreateKeyWithBackends(primary, fallback)
	})
}

// ActiveBackend reports where the encryption key currently lives, for
// diagnostics. Returns "" when no key has been provisioned yet.
func ActiveBackend() string {
	primary := &keychainBackend{}
	if _, err := primary.Get(); err == nil {
		return primary.Name()
	}
	if path, err := DefaultKeyFilePath(); err == nil {
		fallback := &fileBackend{path: path}
		if _, err := fallback.Get(); err == nil {
			return fallback.Name()
		}
	}
	return ""
}

// DeleteKey removes the encryption key from all storage backends. Succeeds
// if at least one backend deletion worked.
func DeleteKey() error {
	keyFilePath, err := DefaultKeyFilePath()
	if err != nil {
		log.Debug("could not determine key file path for deletion", "error", err)
		keyFilePath = ""
	}
	primary := &keychainBackend{}
	fallback := &fileBackend{path: keyFilePath}

	primaryErr := primary.Delete()
	fallbackErr := fallback.Delete()

	if primaryErr != nil && fallbackErr != nil {
		return fmt.Errorf("deleting key from all backends: %w",
			errors.Join(
				fmt.Errorf("keychain: %w", primaryErr),
				fmt.Errorf("file: %w", fallbackErr),
			))
	}
	return nil
}
