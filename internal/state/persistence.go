package state

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ducminhle1904/whale-tracker/internal/errors"
	"github.com/ducminhle1904/whale-tracker/internal/logger"
)

// FileStore writes the state as JSON with a temp file, an atomic rename and a
// .backup copy of the previous file.
type FileStore struct {
	path   string
	logger *logger.Logger
	mu     sync.Mutex
}

// NewFileStore creates a file store at path
func NewFileStore(path string, log *logger.Logger) *FileStore {
	if log == nil {
		log = logger.Nop()
	}
	return &FileStore{path: path, logger: log.With("state")}
}

// Name identifies the store in logs
func (f *FileStore) Name() string { return "file" }

// Path returns the state file path
func (f *FileStore) Path() string { return f.path }

// BackupPath returns where the previous state is kept
func (f *FileStore) BackupPath() string { return f.path + ".backup" }

// Save writes the state atomically
func (f *FileStore) Save(_ context.Context, s *PersistedState) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return errors.NewStorageError("state", "save", fmt.Errorf("failed to create state directory: %w", err))
	}

	if _, err := os.Stat(f.path); err == nil {
		if err := copyFile(f.path, f.BackupPath()); err != nil {
			f.logger.LogWarning("State Backup", "Failed to create backup: %v", err)
		}
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewStorageError("state", "save", fmt.Errorf("failed to marshal state: %w", err))
	}

	tempFile := f.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return errors.NewStorageError("state", "save", fmt.Errorf("failed to write temp state file: %w", err))
	}
	if err := os.Rename(tempFile, f.path); err != nil {
		return errors.NewStorageError("state", "save", fmt.Errorf("failed to move state file: %w", err))
	}

	f.logger.Debug("state saved to %s (cycle %d)", f.path, s.Cycle)
	return nil
}

// Load reads the state, falling back to the backup when the main file is unreadable
func (f *FileStore) Load(_ context.Context) (*PersistedState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := readState(f.path)
	if err == nil {
		return s, nil
	}
	if os.IsNotExist(err) {
		if _, statErr := os.Stat(f.BackupPath()); os.IsNotExist(statErr) {
			return nil, ErrStateNotFound
		}
	}

	f.logger.LogWarning("State Load", "primary state unusable (%v), trying backup", err)
	backup, backupErr := readState(f.BackupPath())
	if backupErr != nil {
		if os.IsNotExist(backupErr) && os.IsNotExist(err) {
			return nil, ErrStateNotFound
		}
		return nil, errors.NewStorageError("state", "load", fmt.Errorf("state and backup unusable: %v; %w", err, backupErr))
	}
	f.logger.Info("state restored from backup %s", f.BackupPath())
	return backup, nil
}

func readState(path string) (*PersistedState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s PersistedState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid state file: %w", err)
	}
	return &s, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
