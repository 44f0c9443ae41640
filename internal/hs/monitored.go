package hs

import (
	"context"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// AddMonitoredFolder registers an existing directory for auto-protection.
func (e *Engine) AddMonitoredFolder(rawPath string) (string, error) {
	p, err := e.fsmgr.Resolve(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	if !p.IsDir() {
		return "", fmt.Errorf("path is not a directory: %s", p.String())
	}
	if err := e.registry.AddMonitoredFolder(p.String()); err != nil {
		return "", newError("monitor", p.String(), ErrRegistry, err)
	}
	e.logger.Info("folder monitored", "path", p.String())
	return p.String(), nil
}

// RemoveMonitoredFolder stops monitoring a folder. The folder does not need to
// exist any more; rawPath is matched against the stored path as given and in
// absolute form.
func (e *Engine) RemoveMonitoredFolder(rawPath string) error {
	for _, candidate := range candidatePaths(rawPath) {
		removed, err := e.registry.RemoveMonitoredFolder(candidate)
		if err != nil {
			return newError("unmonitor", candidate, ErrRegistry, err)
		}
		if removed {
			e.logger.Info("folder no longer monitored", "path", candidate)
			return nil
		}
	}
	return fmt.Errorf("folder is not monitored: %s", rawPath)
}

// ListMonitoredFolders returns the monitored folder paths in insertion order.
func (e *Engine) ListMonitoredFolders() ([]string, error) {
	folders, err := e.registry.ListMonitoredFolders()
	if err != nil {
		return nil, newError("monitor", "", ErrRegistry, err)
	}
	paths := make([]string, len(folders))
	for i, f := range folders {
		paths[i] = f.Path
	}
	return paths, nil
}

// FolderSweep is the outcome of auto-protecting one monitored folder.
type FolderSweep struct {
	Path string
	// Skipped is true when the folder no longer exists.
	Skipped bool
	Result  *SweepResult
	Err     error
}

// AutoProtect sweeps every monitored folder that currently exists.
// Folders that are gone are skipped silently; a folder that cannot be
// enumerated is reported in its FolderSweep and does not affect the others.
// At most Options.Workers folders are swept at the same time.
func (e *Engine) AutoProtect(ctx context.Context) ([]*FolderSweep, error) {
	paths, err := e.ListMonitoredFolders()
	if err != nil {
		return nil, err
	}

	sweeps := make([]*FolderSweep, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, path := range paths {
		sweep := &FolderSweep{Path: path}
		sweeps[i] = sweep

		p, err := e.fsmgr.Resolve(path)
		if err != nil || !p.IsDir() {
			sweep.Skipped = true
			e.logger.Debug("monitored folder missing, skipping", "path", path)
			continue
		}

		g.Go(func() error {
			sweep.Result, sweep.Err = e.ProtectFolder(gctx, path, nil)
			if sweep.Err != nil {
				e.logger.Warn("monitored folder sweep failed", "path", path, "error", sweep.Err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return sweeps, err
	}
	return sweeps, nil
}

// candidatePaths returns rawPath followed by its absolute form, if different.
func candidatePaths(rawPath string) []string {
	paths := []string{rawPath}
	if abs, err := filepath.Abs(rawPath); err == nil && abs != rawPath {
		paths = append(paths, abs)
	}
	return paths
}
