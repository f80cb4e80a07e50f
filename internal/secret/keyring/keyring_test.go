package keyring

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testKey(mult int) []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i * mult)
	}
	return key
}

func TestEncodeDecodeKey(t *testing.T) {
	original := testKey(1)
	decoded, err := decodeKey(encodeKey(original))
	if err != nil {
		t.Fatalf("decodeKey: %v", err)
	}
	if !bytes.Equal(original, decoded) {
		t.Errorf("round-trip failed: got %v, want %v", decoded, original)
	}
}

func TestDecodeKeyInvalidBase64(t *testing.T) {
	if _, err := decodeKey("not-valid-base64!!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestDecodeKeyWrongLength(t *testing.T) {
	if _, err := decodeKey(encodeKey([]byte("too-short"))); err == nil {
		t.Error("expected error for wrong key length")
	}
}

func TestFileBackend(t *testing.T) {
	backend := &fileBackend{path: filepath.Join(t.TempDir(), "test.key")}
	key := testKey(3)

	if err := backend.Set(key); err != nil {
		t.Fatalf("Set: %v", err)
	}

	info, err := os.Stat(backend.path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("wrong permissions: got %o, want 0600", info.Mode().Perm())
	}

	retrieved, err := backend.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(key, retrieved) {
		t.Errorf("retrieved key doesn't match: got %v, want %v", retrieved, key)
	}

	if err := backend.Delete(); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(backend.path); !os.IsNotExist(err) {
		t.Error("file should be deleted")
	}
}

func TestFileBackendNotFound(t *testing.T) {
	backend := &fileBackend{path: filepath.Join(t.TempDir(), "nonexistent.key")}
	if _, err := backend.Get(); err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestFileBackendInsecurePermissions(t *testing.T) {
	backend := &fileBackend{path: filepath.Join(t.TempDir(), "exposed.key")}
	if err := backend.Set(testKey(5)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := os.Chmod(backend.path, 0644); err != nil {
		t.Fatalf("Chmod: %v", err)
	}

	_, err := backend.Get()
	if !errors.Is(err, ErrInsecurePermissions) {
		t.Errorf("expected ErrInsecurePermissions, got %v", err)
	}
}

func TestFileBackendDoesNotOverwrite(t *testing.T) {
	backend := &fileBackend{path: filepath.Join(t.TempDir(), "test.key")}
	first := testKey(2)
	if err := backend.Set(first); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A second Set must keep the existing key.
	if err := backend.Set(testKey(7)); err != nil {
		t.Fatalf("second Set: %v", err)
	}
	got, err := backend.Get()
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(first, got) {
		t.Error("Set overwrote an existing key")
	}
}

type fakeBackend struct {
	key     []byte
	getErr  error
	setErr  error
	backend string
}

func (f *fakeBackend) Get() ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.key == nil {
		return nil, errors.New("no key")
	}
	return f.key, nil
}

func (f *fakeBackend) Set(key []byte) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.key == nil {
		f.key = key
	}
	return nil
}

func (f *fakeBackend) Delete() error { f.key = nil; return nil }
func (f *fakeBackend) Name() string  { return f.backend }

func TestGetOrCreateKey_PrefersPrimary(t *testing.T) {
	primary := &fakeBackend{key: testKey(2), backend: "primary"}
	fallback := &fakeBackend{key: testKey(3), backend: "fallback"}

	key, err := getOrCreateKeyWithBackends(primary, fallback)
	if err != nil {
		t.Fatalf("getOrCreateKeyWithBackends: %v", err)
	}
	if !bytes.Equal(key, primary.key) {
		t.Error("expected the primary backend's key")
	}
}

func TestGetOrCreateKey_FallsBackToFile(t *testing.T) {
	primary := &fakeBackend{getErr: errors.New("keychain unavailable"), setErr: errors.New("keychain unavailable"), backend: "primary"}
	fallback := &fakeBackend{key: testKey(4), backend: "fallback"}

	key, err := getOrCreateKeyWithBackends(primary, fallback)
	if err != nil {
		t.Fatalf("getOrCreateKeyWithBackends: %v", err)
	}
	if !bytes.Equal(key, fallback.key) {
		t.Error("expected the fallback backend's key")
	}
}

func TestGetOrCreateKey_GeneratesWhenEmpty(t *testing.T) {
	primary := &fakeBackend{getErr: errors.New("keychain unavailable"), setErr: errors.New("keychain unavailable"), backend: "primary"}
	fallback := &fakeBackend{backend: "fallback"}

	key, err := getOrCreateKeyWithBackends(primary, fallback)
	if err != nil {
		t.Fatalf("getOrCreateKeyWithBackends: %v", err)
	}
	if len(key) != KeySize {
		t.Fatalf("expected %d-byte key, got %d", KeySize, len(key))
	}
	if !bytes.Equal(key, fallback.key) {
		t.Error("generated key was not stored in the fallback backend")
	}
}
