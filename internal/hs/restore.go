package hs

import (
	"path/filepath"
)

// RestoreResult describes a completed restore.
type RestoreResult struct {
	OriginalPath string
	BackupPath   string
	Method       RestoreMethod
}

// Restore recreates originalPath from backupPath.
// It never overwrites: if anything already occupies originalPath the call
// fails with ErrTargetExists and leaves it untouched. Missing parent
// directories are created. The record and the artifact are kept, so the file
// can be restored again later.
func (e *Engine) Restore(originalPath, backupPath string) (*RestoreResult, error) {
	absPath, err := filepath.Abs(originalPath)
	if err != nil {
		return nil, newError("restore", originalPath, ErrRestoreFailed, err)
	}

	unlock := e.locks.lock(absPath)
	defer unlock()

	ok, err := e.exists(backupPath)
	if err != nil {
		return nil, newError("restore", absPath, ErrBackupMissing, err)
	}
	if !ok {
		return nil, newError("restore", absPath, ErrBackupMissing, nil)
	}

	if err := e.fsmgr.MkdirAll(filepath.Dir(absPath)); err != nil {
		return nil, newError("restore", absPath, ErrRestoreFailed, err)
	}

	ok, err = e.exists(absPath)
	if err != nil {
		return nil, newError("restore", absPath, ErrRestoreFailed, err)
	}
	if ok {
		return nil, newError("restore", absPath, ErrTargetExists, nil)
	}

	method, err := e.linker.MaterializeRestore(backupPath, absPath)
	if err != nil {
		return nil, wrapError("restore", absPath, err, ErrRestoreFailed)
	}

	e.logger.Info("file restored", "path", absPath, "backup", backupPath, "method", method.String())
	return &RestoreResult{OriginalPath: absPath, BackupPath: backupPath, Method: method}, nil
}

// RestoreByID restores the file recorded under id.
func (e *Engine) RestoreByID(id int64) (*RestoreResult, error) {
	record, err := e.registry.GetProtectedFile(id)
	if err != nil {
		return nil, newError("restore", recordRef(id), ErrRegistry, err)
	}
	if record == nil {
		return nil, newError("restore", recordRef(id), ErrNotProtected, nil)
	}
	return e.Restore(record.OriginalPath, record.BackupPath)
}

// RestorePath restores a file by its original path using the recorded backup.
func (e *Engine) RestorePath(rawPath string) (*RestoreResult, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, newError("restore", rawPath, ErrRestoreFailed, err)
	}
	record, err := e.registry.FindProtectedFile(absPath)
	if err != nil {
		return nil, newError("restore", absPath, ErrRegistry, err)
	}
	if record == nil {
		return nil, newError("restore", absPath, ErrNotProtected, nil)
	}
	return e.Restore(record.OriginalPath, record.BackupPath)
}
