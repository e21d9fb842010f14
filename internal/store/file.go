package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"luna-bot/internal/user"
)

// FileStore persists the whole snapshot as one JSON file. Saves go through a
// temp file and an atomic rename, so a crash mid-save never leaves a
// half-written primary; the previous file is rotated to backupPath first.
type FileStore struct {
	path       string
	backupPath string

	mu       sync.Mutex
	counters map[string]int64
	sets     map[string]user.StringSet
}

func NewFileStore(path, backupPath string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileStore{
		path:       path,
		backupPath: backupPath,
		counters:   make(map[string]int64),
		sets:       make(map[string]user.StringSet),
	}, nil
}

func (f *FileStore) Name() string { return "file" }

func (f *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return loadSnapshotFile(f.path)
}

func (f *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeSnapshot(snap, true)
}

// SaveFast skips the backup rotation. It is the bounded-budget path used by
// the termination-signal handler, where the full rotation is not worth the
// extra I/O.
func (f *FileStore) SaveFast(ctx context.Context, snap *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writeSnapshot(snap, false)
}

func (f *FileStore) writeSnapshot(snap *Snapshot, rotateBackup bool) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}

	if rotateBackup && f.backupPath != "" {
		if _, err := os.Stat(f.path); err == nil {
			if err := os.Rename(f.path, f.backupPath); err != nil {
				return fmt.Errorf("rotate backup: %w", err)
			}
		}
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// IncrementCounter and AddToSet keep process-lifetime bookkeeping only; the
// durable aggregates of the file backend are recomputed from the snapshot
// itself on every save.
func (f *FileStore) IncrementCounter(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[key]++
	return f.counters[key], nil
}

func (f *FileStore) AddToSet(ctx context.Context, set, member string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sets[set]
	if !ok {
		s = user.NewStringSet()
		f.sets[set] = s
	}
	s.Add(member)
	return nil
}

func (f *FileStore) Close() error { return nil }

// BackupLoader exposes the rotated backup file as the second leg of the
// recovery chain.
func (f *FileStore) BackupLoader() Loader {
	return fileLoader{path: f.backupPath}
}

// NewFileLoader reads snapshots from path without ever writing.
func NewFileLoader(path string) Loader {
	return fileLoader{path: path}
}

type fileLoader struct{ path string }

func (l fileLoader) Load(ctx context.Context) (*Snapshot, error) {
	return loadSnapshotFile(l.path)
}

func loadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// first run
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) == 0 {
		return NewSnapshot(), nil
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	snap.Normalize()
	return &snap, nil
}
