package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	source := filepath.Join(root, "monitoring")
	writeFiles(t, source, map[string]string{
		"prometheus.yml": "global:\n  scrape_interval: 15s\n",
		"alerts.yml":     "groups: []\n",
	})

	engine, err := NewEngine(source, filepath.Join(root, "backups"), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, source
}

func TestEngine_CreateAndList(t *testing.T) {
	engine, _ := newTestEngine(t)

	first, err := engine.Create(KindManual, "before upgrade")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(first.ID, "bak_") {
		t.Errorf("unexpected backup ID %q", first.ID)
	}
	if first.SizeBytes <= 0 {
		t.Errorf("expected positive archive size, got %d", first.SizeBytes)
	}
	if first.Kind != KindManual {
		t.Errorf("expected manual kind, got %s", first.Kind)
	}

	time.Sleep(2 * time.Millisecond)
	second, err := engine.Create(KindManual, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	list := engine.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(list))
	}
	if list[0].ID != second.ID {
		t.Errorf("expected newest backup first, got %s", list[0].ID)
	}
	if list[0].Label != "" || list[1].Label != "before upgrade" {
		t.Errorf("labels did not persist: %+v", list)
	}
}

func TestEngine_RejectsBackupDirInsideSource(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "monitoring")
	writeFiles(t, source, map[string]string{"prometheus.yml": "global: {}\n"})

	_, err := NewEngine(source, filepath.Join(source, "backups"), nil)
	if err == nil || !strings.Contains(err.Error(), "must be outside") {
		t.Errorf("expected rejection of nested backup dir, got %v", err)
	}
}

func TestEngine_RejectsMissingSource(t *testing.T) {
	root := t.TempDir()
	_, err := NewEngine(filepath.Join(root, "nope"), filepath.Join(root, "backups"), nil)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("expected missing source error, got %v", err)
	}
}

func TestEngine_Restore(t *testing.T) {
	engine, source := newTestEngine(t)

	meta, err := engine.Create(KindManual, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Drift the live config: change one file, add another.
	writeFiles(t, source, map[string]string{
		"prometheus.yml": "global:\n  scrape_interval: 60s\n",
		"extra.yml":      "added: later\n",
	})

	safety, err := engine.Restore(meta.ID)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if safety == nil || safety.Kind != KindSafety {
		t.Fatalf("expected a safety backup, got %+v", safety)
	}

	data, err := os.ReadFile(filepath.Join(source, "prometheus.yml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "15s") {
		t.Errorf("expected restored content, got %q", data)
	}
	if _, err := os.Stat(filepath.Join(source, "extra.yml")); !os.IsNotExist(err) {
		t.Error("expected drifted extra.yml to be removed by restore")
	}

	// The safety backup captures the drifted state, so restoring it brings
	// the drift back.
	if _, err := engine.Restore(safety.ID); err != nil {
		t.Fatalf("Restore safety: %v", err)
	}
	if _, err := os.Stat(filepath.Join(source, "extra.yml")); err != nil {
		t.Error("expected safety restore to bring back extra.yml")
	}
}

func TestEngine_Restore_PreservesGitDir(t *testing.T) {
	engine, source := newTestEngine(t)

	meta, err := engine.Create(KindManual, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	writeFiles(t, source, map[string]string{".git/config": "[core]\n\trepositoryformatversion = 0\n"})

	if _, err := engine.Restore(meta.ID); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := os.Stat(filepath.Join(source, ".git", "config")); err != nil {
		t.Errorf("expected .git to survive restore: %v", err)
	}
}

func TestEngine_Restore_NotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.Restore("bak_missing00000")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestEngine_Delete(t *testing.T) {
	engine, _ := newTestEngine(t)

	meta, err := engine.Create(KindManual, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := engine.Delete(meta.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(meta.Archive); !os.IsNotExist(err) {
		t.Error("expected archive file to be removed")
	}
	if _, ok := engine.Get(meta.ID); ok {
		t.Error("expected metadata to be removed")
	}
	if err := engine.Delete(meta.ID); err == nil {
		t.Error("expected error deleting unknown backup")
	}
}

func TestEngine_Prune_Keep(t *testing.T) {
	engine, _ := newTestEngine(t)

	var ids []string
	for i := 0; i < 4; i++ {
		meta, err := engine.Create(KindManual, "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, meta.ID)
		time.Sleep(2 * time.Millisecond)
	}

	removed, err := engine.Prune(2, 0)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 pruned backups, got %d", len(removed))
	}

	remaining := engine.List()
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining backups, got %d", len(remaining))
	}
	// The two newest survive.
	if remaining[0].ID != ids[3] || remaining[1].ID != ids[2] {
		t.Errorf("pruned the wrong backups: %+v", remaining)
	}
}

func TestEngine_Prune_MaxAge(t *testing.T) {
	engine, _ := newTestEngine(t)

	old, err := engine.Create(KindManual, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Age the first backup directly in the metadata map.
	meta := engine.backups[old.ID]
	meta.CreatedAt = time.Now().Add(-48 * time.Hour)
	engine.backups[old.ID] = meta

	fresh, err := engine.Create(KindManual, "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	removed, err := engine.Prune(0, 24*time.Hour)
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if len(removed) != 1 || removed[0].ID != old.ID {
		t.Fatalf("expected only the old backup pruned, got %+v", removed)
	}
	if _, ok := engine.Get(fresh.ID); !ok {
		t.Error("expected fresh backup to survive")
	}
}

func TestEngine_MetadataPersistsAcrossReopen(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "monitoring")
	backupDir := filepath.Join(root, "backups")
	writeFiles(t, source, map[string]string{"prometheus.yml": "global: {}\n"})

	engine, err := NewEngine(source, backupDir, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	meta, err := engine.Create(KindManual, "persisted")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := engine.RecordUpload(meta.ID, "warden/backups/"+meta.ID+".tar.gz"); err != nil {
		t.Fatalf("RecordUpload: %v", err)
	}

	reopened, err := NewEngine(source, backupDir, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	got, ok := reopened.Get(meta.ID)
	if !ok {
		t.Fatal("expected backup to persist across reopen")
	}
	if got.Label != "persisted" {
		t.Errorf("label did not persist: %q", got.Label)
	}
	if got.S3Key == "" {
		t.Error("expected recorded S3 key to persist")
	}
}
