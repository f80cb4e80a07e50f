package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".warden", "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open with missing parent dir: %v", err)
	}
	defer store.Close()

	if _, err := store.Append(Event{Kind: KindProbe, OK: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}
}

func TestStore_AppendAndRecent(t *testing.T) {
	store := openTestStore(t)

	for _, e := range []Event{
		{Kind: KindUp, Target: "stack", OK: true, LatencyMS: 8200},
		{Kind: KindReload, Target: "prometheus", OK: true, LatencyMS: 120},
		{Kind: KindTestAlert, Target: "TestAlert", OK: false, Detail: "alert did not appear within 30s"},
	} {
		if _, err := store.Append(e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := store.Recent("", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// Newest first.
	if events[0].Kind != KindTestAlert {
		t.Errorf("expected newest event first, got %s", events[0].Kind)
	}
	if events[0].OK {
		t.Error("expected failed test-alert event")
	}
	if events[2].Kind != KindUp {
		t.Errorf("expected oldest event last, got %s", events[2].Kind)
	}
	if events[2].LatencyMS != 8200 {
		t.Errorf("expected latency 8200, got %d", events[2].LatencyMS)
	}
}

func TestStore_RecentFiltersByKind(t *testing.T) {
	store := openTestStore(t)

	kinds := []Kind{KindUp, KindBackup, KindBackup, KindDown}
	for _, k := range kinds {
		if _, err := store.Append(Event{Kind: k, OK: true}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := store.Recent(KindBackup, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 backup events, got %d", len(events))
	}
	for _, e := range events {
		if e.Kind != KindBackup {
			t.Errorf("expected backup event, got %s", e.Kind)
		}
	}
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	for i := 0; i < 5; i++ {
		if _, err := store.Append(Event{Kind: KindReload, OK: true}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	events, err := store.Recent("", 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
}

func TestStore_Get(t *testing.T) {
	store := openTestStore(t)

	created, err := store.Append(Event{Kind: KindRestore, Target: "bak_0123456789ab", OK: true})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Target != "bak_0123456789ab" {
		t.Errorf("expected target preserved, got %q", got.Target)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected created_at to round-trip")
	}

	_, err = store.Get(9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Prune(t *testing.T) {
	store := openTestStore(t)

	old := Event{Kind: KindUp, OK: true, CreatedAt: time.Now().Add(-72 * time.Hour)}
	if _, err := store.Append(old); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := store.Append(Event{Kind: KindDown, OK: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	removed, err := store.Prune(time.Now().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 pruned event, got %d", removed)
	}
	if count := store.Count(); count != 1 {
		t.Errorf("expected 1 remaining event, got %d", count)
	}
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Append(Event{Kind: KindLoadTest, Target: "http://localhost:3000", OK: true}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopening store: %v", err)
	}
	defer reopened.Close()
	if count := reopened.Count(); count != 1 {
		t.Errorf("expected persisted event after reopen, got count %d", count)
	}
}
