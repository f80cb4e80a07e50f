package secret

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testStoreKey(b byte) []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = b
	}
	return key
}

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), testStoreKey(0xAB))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return store
}

func TestFileStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)

	saved := Secret{
		Service:   ServiceGrafana,
		User:      "admin",
		Token:     "s3cret-password",
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Save(saved); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ServiceGrafana)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.User != "admin" || got.Token != "s3cret-password" {
		t.Errorf("secret did not round-trip: %+v", got)
	}
	if !got.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("created_at did not round-trip: got %v, want %v", got.CreatedAt, saved.CreatedAt)
	}
}

func TestFileStore_FileIsEncrypted(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testStoreKey(0x01))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save(Secret{Service: ServiceApp, Token: "plaintext-token"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "app.enc"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if bytes.Contains(raw, []byte("plaintext-token")) {
		t.Error("secret stored in plaintext")
	}
}

func TestFileStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(ServiceApp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStore_WrongKey(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testStoreKey(0x11))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save(Secret{Service: ServiceGrafana, User: "admin", Token: "pw"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other, err := NewFileStore(dir, testStoreKey(0x22))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	_, err = other.Get(ServiceGrafana)
	if err == nil {
		t.Fatal("expected decryption failure with wrong key")
	}
	if !strings.Contains(err.Error(), "warden grant") {
		t.Errorf("expected remediation hint, got: %v", err)
	}
}

func TestFileStore_Delete(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(Secret{Service: ServiceApp, Token: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(ServiceApp); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ServiceApp); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Deleting again is not an error.
	if err := store.Delete(ServiceApp); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestFileStore_List(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(Secret{Service: ServiceGrafana, User: "admin", Token: "pw"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Save(Secret{Service: ServiceApp, Token: "tok"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	secrets, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(secrets) != 2 {
		t.Fatalf("expected 2 secrets, got %d", len(secrets))
	}
}

func TestFileStore_ListSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, testStoreKey(0x33))
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if err := store.Save(Secret{Service: ServiceGrafana, User: "admin", Token: "pw"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.enc"), []byte("garbage"), 0600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	secrets, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(secrets) != 1 || secrets[0].Service != ServiceGrafana {
		t.Errorf("expected only the readable secret, got %+v", secrets)
	}
}

func TestNewFileStore_RejectsShortKey(t *testing.T) {
	_, err := NewFileStore(t.TempDir(), []byte("short"))
	if err == nil {
		t.Fatal("expected error for short key")
	}
	if !strings.Contains(err.Error(), "32 bytes") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseService(t *testing.T) {
	if _, err := ParseService("grafana"); err != nil {
		t.Errorf("expected grafana to parse: %v", err)
	}
	_, err := ParseService("database")
	if err == nil {
		t.Fatal("expected error for unknown service")
	}
	if !strings.Contains(err.Error(), "known services") {
		t.Errorf("expected the error to list known services, got: %v", err)
	}
}
