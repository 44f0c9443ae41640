// Package link materializes backups as hard links and restores them.
package link

import (
	"errors"
	"fmt"
	"io/fs"

	"golang.org/x/sys/unix"

	"hs-go/internal/hs"
)

// Strategy creates backup artifacts by hard linking and restores them by
// linking back, copying when a link is not possible.
type Strategy struct {
	fsmgr  hs.FilesystemManager
	logger hs.Logger
}

// NewStrategy creates a Strategy operating through fsmgr.
func NewStrategy(fsmgr hs.FilesystemManager, logger hs.Logger) *Strategy {
	return &Strategy{fsmgr: fsmgr, logger: logger}
}

// MaterializeBackup hard links backupPath to originalPath. It never copies:
// an artifact on another volume would not share the original's data.
func (s *Strategy) MaterializeBackup(originalPath, backupPath string) error {
	err := s.fsmgr.Link(originalPath, backupPath)
	if err == nil {
		return nil
	}
	if IsCrossDevice(err) {
		return &hs.Error{Op: "link", Path: originalPath, Kind: hs.ErrCrossVolume, Err: err}
	}
	return &hs.Error{Op: "link", Path: originalPath, Kind: hs.ErrLinkFailed, Err: err}
}

// MaterializeRestore recreates originalPath from backupPath. The link is
// attempted first; any link failure falls back to a copy. Neither step
// replaces an existing file.
func (s *Strategy) MaterializeRestore(backupPath, originalPath string) (hs.RestoreMethod, error) {
	linkErr := s.fsmgr.Link(backupPath, originalPath)
	if linkErr == nil {
		return hs.MethodLink, nil
	}
	if errors.Is(linkErr, fs.ErrExist) {
		return 0, &hs.Error{Op: "restore", Path: originalPath, Kind: hs.ErrTargetExists, Err: linkErr}
	}

	s.logger.Debug("link restore failed, copying", "path", originalPath, "error", linkErr)
	if err := s.fsmgr.CopyFile(backupPath, originalPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return 0, &hs.Error{Op: "restore", Path: originalPath, Kind: hs.ErrTargetExists, Err: err}
		}
		return 0, &hs.Error{
			Op:   "restore",
			Path: originalPath,
			Kind: hs.ErrRestoreFailed,
			Err:  fmt.Errorf("link: %v; copy: %w", linkErr, err),
		}
	}
	return hs.MethodCopy, nil
}

// IsCrossDevice reports whether err is the kernel refusing a link between
// two filesystems.
func IsCrossDevice(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

var _ hs.Linker = (*Strategy)(nil)
