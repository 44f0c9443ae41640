package hs

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"hs-go/internal/database/sqlc"
)

// Ignorer decides whether a file found during a sweep should be left alone.
// relativePath is relative to the swept folder.
type Ignorer interface {
	Match(relativePath string) bool
}

// Options tunes the sweep behavior of an Engine.
type Options struct {
	// Ignore filters files during folder sweeps. Nil ignores nothing.
	Ignore Ignorer
	// Workers bounds how many monitored folders AutoProtect sweeps at once.
	Workers int
}

// DefaultWorkers is used when Options.Workers is not positive.
const DefaultWorkers = 2

// Engine coordinates the backup store, the link strategy and the registry to
// protect and restore files.
// It is safe for concurrent use: Protect calls for the same original path are
// serialized, calls for different paths run independently.
type Engine struct {
	registry Registry
	store    BackupStore
	linker   Linker
	fsmgr    FilesystemManager
	logger   Logger
	clock    Clock
	ignore   Ignorer
	workers  int
	locks    pathLocks
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(registry Registry, store BackupStore, linker Linker, fsmgr FilesystemManager, logger Logger, clock Clock, opts Options) *Engine {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{
		registry: registry,
		store:    store,
		linker:   linker,
		fsmgr:    fsmgr,
		logger:   logger,
		clock:    clock,
		ignore:   opts.Ignore,
		workers:  workers,
	}
}

// ProtectResult describes the outcome of a successful Protect call.
type ProtectResult struct {
	OriginalPath string
	BackupPath   string
	// AlreadyProtected is true when a record existed and nothing was done.
	AlreadyProtected bool
	Record           *sqlc.ProtectedFile
}

// Protect backs up a single regular file and registers the backup.
//
// A path that already has a record is reported as AlreadyProtected without
// re-linking or refreshing it. Otherwise the artifact is hard linked into the
// backup store first and registered second, so a record never points at an
// artifact that was not created. If registration fails the new artifact is
// removed again.
func (e *Engine) Protect(rawPath string) (*ProtectResult, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, newError("protect", rawPath, ErrSourceNotFound, err)
	}

	unlock := e.locks.lock(absPath)
	defer unlock()

	existing, err := e.registry.FindProtectedFile(absPath)
	if err != nil {
		return nil, newError("protect", absPath, ErrRegistry, err)
	}
	if existing != nil {
		e.logger.Debug("already protected", "path", absPath)
		return &ProtectResult{
			OriginalPath:     absPath,
			BackupPath:       existing.BackupPath,
			AlreadyProtected: true,
			Record:           existing,
		}, nil
	}

	info, err := e.fsmgr.Lstat(absPath)
	if err != nil {
		return nil, newError("protect", absPath, ErrSourceNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return nil, newError("protect", absPath, ErrNotRegularFile, fmt.Errorf("mode %s", info.Mode().Type()))
	}

	if err := e.store.EnsureReady(); err != nil {
		return nil, wrapError("protect", absPath, err, ErrStorageUnavailable)
	}
	backupPath, err := e.store.AllocateBackupPath(absPath)
	if err != nil {
		return nil, wrapError("protect", absPath, err, ErrStorageUnavailable)
	}

	if err := e.linker.MaterializeBackup(absPath, backupPath); err != nil {
		return nil, wrapError("protect", absPath, err, ErrLinkFailed)
	}

	record, err := e.registry.UpsertProtectedFile(absPath, backupPath, e.clock.Now())
	if err != nil {
		if rmErr := e.fsmgr.Remove(backupPath); rmErr != nil {
			e.logger.Error("orphaned backup artifact", "path", absPath, "backup", backupPath, "error", rmErr)
		}
		return nil, newError("protect", absPath, ErrRegistry, err)
	}

	e.logger.Info("file protected", "path", absPath, "backup", backupPath)
	return &ProtectResult{
		OriginalPath: absPath,
		BackupPath:   backupPath,
		Record:       record,
	}, nil
}

// RemoveProtection deletes the record with the given id.
// The backup artifact stays on disk.
func (e *Engine) RemoveProtection(id int64) error {
	removed, err := e.registry.RemoveProtectedFile(id)
	if err != nil {
		return newError("unprotect", recordRef(id), ErrRegistry, err)
	}
	if !removed {
		return newError("unprotect", recordRef(id), ErrNotProtected, nil)
	}
	e.logger.Info("protection removed", "id", id)
	return nil
}

// exists wraps FilesystemManager.Exists, treating "not found" style errors as absence.
func (e *Engine) exists(path string) (bool, error) {
	ok, err := e.fsmgr.Exists(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return ok, err
}

func recordRef(id int64) string {
	return fmt.Sprintf("#%d", id)
}
