package hs

import (
	"path/filepath"

	"hs-go/internal/database/sqlc"
)

// State is the derived, never persisted, state of a protected file.
type State int

const (
	// StateProtected means the original file exists.
	StateProtected State = iota + 1
	// StateMissing means the original file is gone and can be restored.
	StateMissing
)

func (s State) String() string {
	switch s {
	case StateProtected:
		return "Protected"
	case StateMissing:
		return "Missing"
	default:
		return "Unknown"
	}
}

// FileStatus pairs a protection record with its current state on disk.
type FileStatus struct {
	Record *sqlc.ProtectedFile
	State  State
	// BackupPresent is false when the artifact was deleted behind our back.
	BackupPresent bool
}

// Status reports whether a protected file's original is still present.
func (e *Engine) Status(rawPath string) (*FileStatus, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, newError("status", rawPath, ErrNotProtected, err)
	}
	record, err := e.registry.FindProtectedFile(absPath)
	if err != nil {
		return nil, newError("status", absPath, ErrRegistry, err)
	}
	if record == nil {
		return nil, newError("status", absPath, ErrNotProtected, nil)
	}
	return e.fileStatus(record)
}

// ListProtected returns every protected file with its derived state, in
// insertion order.
func (e *Engine) ListProtected() ([]*FileStatus, error) {
	records, err := e.registry.ListProtectedFiles()
	if err != nil {
		return nil, newError("list", "", ErrRegistry, err)
	}

	statuses := make([]*FileStatus, 0, len(records))
	for _, record := range records {
		status, err := e.fileStatus(record)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (e *Engine) fileStatus(record *sqlc.ProtectedFile) (*FileStatus, error) {
	present, err := e.exists(record.OriginalPath)
	if err != nil {
		return nil, newError("status", record.OriginalPath, ErrSourceNotFound, err)
	}
	backupPresent, err := e.exists(record.BackupPath)
	if err != nil {
		return nil, newError("status", record.OriginalPath, ErrBackupMissing, err)
	}

	status := &FileStatus{Record: record, State: StateMissing, BackupPresent: backupPresent}
	if present {
		status.State = StateProtected
	}
	return status, nil
}
