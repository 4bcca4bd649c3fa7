package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lox/holdemtable/internal/game"
)

const snapshotExt = ".json"

// FileSnapshots writes one JSON file per table into a directory.
type FileSnapshots struct {
	dir string
}

// NewFileSnapshots creates dir if it does not exist.
func NewFileSnapshots(dir string) (*FileSnapshots, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FileSnapshots{dir: dir}, nil
}

func (f *FileSnapshots) path(tableID string) (string, error) {
	if tableID == "" || strings.ContainsAny(tableID, `/\`) || tableID == "." || tableID == ".." {
		return "", fmt.Errorf("invalid table id %q", tableID)
	}
	return filepath.Join(f.dir, tableID+snapshotExt), nil
}

func (f *FileSnapshots) Save(_ context.Context, s game.Snapshot) error {
	path, err := f.path(s.TableID)
	if err != nil {
		return err
	}
	b, err := encodeSnapshot(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", s.TableID, err)
	}
	return writeFileAtomic(path, b, 0o644)
}

func (f *FileSnapshots) Load(_ context.Context, tableID string) (game.Snapshot, error) {
	path, err := f.path(tableID)
	if err != nil {
		return game.Snapshot{}, err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return game.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("read snapshot %s: %w", tableID, err)
	}
	s, err := decodeSnapshot(b)
	if err != nil {
		return game.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", tableID, err)
	}
	return s, nil
}

func (f *FileSnapshots) Delete(_ context.Context, tableID string) error {
	path, err := f.path(tableID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete snapshot %s: %w", tableID, err)
	}
	return nil
}

func (f *FileSnapshots) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, snapshotExt))
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *FileSnapshots) Close() error { return nil }

// writeFileAtomic writes to a temp file in the same directory and renames
// it over filename. Readers see the old file or the new one, never a
// partial write.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)

	// the temp name must not end in .json or List would pick it up
	tmpFile, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			tmpFile.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	tmpFile = nil

	if err := os.Chmod(tmpPath, perm); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, filename); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
