package backup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/praxislabs/warden/internal/id"
)

// metadataFile is the filename for persisted backup metadata.
const metadataFile = "backups.json"

// Engine manages backup archives of a single source directory.
type Engine struct {
	source  string
	dir     string
	exclude []string
	mu      sync.Mutex
	backups map[string]Metadata
}

// NewEngine creates a backup engine archiving source into dir. exclude
// holds extra ignore patterns in gitignore syntax.
func NewEngine(source, dir string, exclude []string) (*Engine, error) {
	absSource, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolving source: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving backup dir: %w", err)
	}
	if _, err := os.Stat(absSource); os.IsNotExist(err) {
		return nil, fmt.Errorf("backup source does not exist: %s", absSource)
	}
	// A backup dir inside the source would archive itself and be wiped on
	// restore.
	if rel, err := filepath.Rel(absSource, absDir); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("backup dir %s must be outside the source %s", absDir, absSource)
	}
	if err := os.MkdirAll(absDir, 0755); err != nil {
		return nil, fmt.Errorf("creating backup dir: %w", err)
	}

	engine := &Engine{
		source:  absSource,
		dir:     absDir,
		exclude: exclude,
		backups: make(map[string]Metadata),
	}
	if err := engine.loadMetadata(); err != nil {
		return nil, fmt.Errorf("loading metadata: %w", err)
	}
	return engine, nil
}

// Create takes a new backup of the source directory.
func (e *Engine) Create(kind Kind, label string) (Metadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.createLocked(kind, label)
}

func (e *Engine) createLocked(kind Kind, label string) (Metadata, error) {
	backupID := id.Generate("bak")
	archivePath := filepath.Join(e.dir, backupID+".tar.gz")

	if err := createArchive(e.source, archivePath, e.exclude); err != nil {
		return Metadata{}, fmt.Errorf("archiving %s: %w", e.source, err)
	}

	info, err := os.Stat(archivePath)
	if err != nil {
		os.Remove(archivePath)
		return Metadata{}, fmt.Errorf("reading archive size: %w", err)
	}

	meta := Metadata{
		ID:        backupID,
		Kind:      kind,
		Label:     label,
		Source:    e.source,
		Archive:   archivePath,
		SizeBytes: info.Size(),
		CreatedAt: time.Now(),
	}
	e.backups[backupID] = meta

	if err := e.saveMetadata(); err != nil {
		os.Remove(archivePath)
		delete(e.backups, backupID)
		return Metadata{}, fmt.Errorf("saving metadata: %w", err)
	}
	return meta, nil
}

// Restore replaces the source directory's contents with a backup. A safety
// backup of the current state is taken first and returned, so the restore
// itself can be undone. A .git directory in the source survives untouched.
func (e *Engine) Restore(backupID string) (*Metadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	meta, ok := e.backups[backupID]
	if !ok {
		return nil, fmt.Errorf("backup not found: %s", backupID)
	}
	if _, err := os.Stat(meta.Archive); err != nil {
		return nil, fmt.Errorf("backup archive missing: %s", meta.Archive)
	}

	safety, err := e.createLocked(KindSafety, "pre-restore "+backupID)
	if err != nil {
		return nil, fmt.Errorf("creating safety backup: %w", err)
	}

	if err := clearDir(e.source); err != nil {
		return &safety, fmt.Errorf("clearing %s: %w", e.source, err)
	}
	if err := extractArchive(meta.Archive, e.source); err != nil {
		return &safety, fmt.Errorf("extracting backup: %w", err)
	}
	return &safety, nil
}

// clearDir removes everything inside dir except a .git directory.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Name() == ".git" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a backup archive and its metadata.
func (e *Engine) Delete(backupID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.deleteLocked(backupID)
}

func (e *Engine) deleteLocked(backupID string) error {
	meta, ok := e.backups[backupID]
	if !ok {
		return fmt.Errorf("backup not found: %s", backupID)
	}
	if err := os.Remove(meta.Archive); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing archive: %w", err)
	}
	delete(e.backups, backupID)
	return e.saveMetadata()
}

// Prune removes backups beyond keep (newest kept) and older than maxAge.
// Zero disables either criterion. Removed backups are returned.
func (e *Engine) Prune(keep int, maxAge time.Duration) ([]Metadata, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var removed []Metadata
	for _, meta := range e.pruneVictimsLocked(keep, maxAge) {
		if err := e.deleteLocked(meta.ID); err != nil {
			return removed, err
		}
		removed = append(removed, meta)
	}
	return removed, nil
}

// PruneCandidates returns the backups Prune would remove, without removing
// anything.
func (e *Engine) PruneCandidates(keep int, maxAge time.Duration) []Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pruneVictimsLocked(keep, maxAge)
}

func (e *Engine) pruneVictimsLocked(keep int, maxAge time.Duration) []Metadata {
	var victims []Metadata
	now := time.Now()
	for i, meta := range e.sortedLocked() {
		tooMany := keep > 0 && i >= keep
		tooOld := maxAge > 0 && now.Sub(meta.CreatedAt) > maxAge
		if tooMany || tooOld {
			victims = append(victims, meta)
		}
	}
	return victims
}

// List returns all backups, newest first.
func (e *Engine) List() []Metadata {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortedLocked()
}

func (e *Engine) sortedLocked() []Metadata {
	list := make([]Metadata, 0, len(e.backups))
	for _, meta := range e.backups {
		list = append(list, meta)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

// Get returns a backup by ID.
func (e *Engine) Get(backupID string) (Metadata, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	meta, ok := e.backups[backupID]
	return meta, ok
}

// RecordUpload stores the S3 key a backup was uploaded to.
func (e *Engine) RecordUpload(backupID, key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	meta, ok := e.backups[backupID]
	if !ok {
		return fmt.Errorf("backup not found: %s", backupID)
	}
	meta.S3Key = key
	e.backups[backupID] = meta
	return e.saveMetadata()
}

func (e *Engine) loadMetadata() error {
	path := filepath.Join(e.dir, metadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading metadata file: %w", err)
	}

	var list []Metadata
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("corrupted backup metadata at %s: %w\nTo reset, delete the file: rm %s", path, err, path)
	}
	for _, meta := range list {
		e.backups[meta.ID] = meta
	}
	return nil
}

func (e *Engine) saveMetadata() error {
	list := make([]Metadata, 0, len(e.backups))
	for _, meta := range e.backups {
		list = append(list, meta)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	path := filepath.Join(e.dir, metadataFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing metadata file: %w", err)
	}
	return nil
}
