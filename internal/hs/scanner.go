package hs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// EventType identifies the kind of sweep progress event.
type EventType int

const (
	SweepStarted EventType = iota + 1
	FileProtected
	FileAlreadyProtected
	FileIgnored
	FileSkipped
	SweepFinished
)

var eventTypeNames = [...]string{
	SweepStarted:         "SweepStarted",
	FileProtected:        "FileProtected",
	FileAlreadyProtected: "FileAlreadyProtected",
	FileIgnored:          "FileIgnored",
	FileSkipped:          "FileSkipped",
	SweepFinished:        "SweepFinished",
}

func (t EventType) String() string {
	if t > 0 && int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "Unknown"
}

// Event reports sweep progress. Done and Total count files, not bytes.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	Path       string
	BackupPath string
	Done       int
	Total      int
	Err        error
}

// ProgressFunc receives sweep events on the sweeping goroutine.
type ProgressFunc func(Event)

// FileFailure records a file a sweep could not protect.
type FileFailure struct {
	Path string
	Err  error
}

// SweepResult summarizes a folder sweep.
type SweepResult struct {
	Root  string
	Total int
	// Protected counts files newly protected by this sweep only.
	Protected        int
	AlreadyProtected int
	Ignored          int
	Failures         []FileFailure
	// Cancelled is true when the sweep stopped before visiting every file.
	Cancelled bool
}

// ProtectFolder protects every regular file under folder.
//
// Files are discovered depth-first before any is protected. Per-file failures
// are logged, recorded in the result and do not stop the sweep; the only error
// returned is a failure to enumerate folder itself. ctx is checked between
// files, never mid-file: once it is done the sweep stops and reports what it
// got through. Files inside the backup store are never swept.
func (e *Engine) ProtectFolder(ctx context.Context, folder string, progress ProgressFunc) (*SweepResult, error) {
	if progress == nil {
		progress = func(Event) {}
	}

	root, err := e.fsmgr.Resolve(folder)
	if err != nil {
		return nil, fmt.Errorf("resolving folder: %w", err)
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}

	result := &SweepResult{Root: root.String()}
	emit := func(ev Event) {
		ev.Timestamp = e.clock.Now()
		ev.Total = result.Total
		progress(ev)
	}

	files, err := e.fsmgr.FindFiles(root, true, func(path string, err error) {
		e.logger.Warn("skipped unreadable entry", "path", path, "error", err)
		result.Failures = append(result.Failures, FileFailure{Path: path, Err: err})
	})
	if err != nil {
		return nil, fmt.Errorf("finding files: %w", err)
	}
	result.Total = len(files)

	e.logger.Info("sweep started", "root", root.String(), "files", len(files))
	emit(Event{Type: SweepStarted, Path: root.String()})

	done := 0
	for _, f := range files {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		done++

		if e.ShouldSkip(root.String(), f.String()) {
			result.Ignored++
			emit(Event{Type: FileIgnored, Path: f.String(), Done: done})
			continue
		}

		res, err := e.Protect(f.String())
		switch {
		case err != nil:
			e.logger.Warn("skipped file", "path", f.String(), "error", err)
			result.Failures = append(result.Failures, FileFailure{Path: f.String(), Err: err})
			emit(Event{Type: FileSkipped, Path: f.String(), Done: done, Err: err})
		case res.AlreadyProtected:
			result.AlreadyProtected++
			emit(Event{Type: FileAlreadyProtected, Path: f.String(), BackupPath: res.BackupPath, Done: done})
		default:
			result.Protected++
			emit(Event{Type: FileProtected, Path: f.String(), BackupPath: res.BackupPath, Done: done})
		}
	}

	emit(Event{Type: SweepFinished, Path: root.String(), Done: done})
	e.logger.Info("sweep finished",
		"root", root.String(),
		"protected", result.Protected,
		"already_protected", result.AlreadyProtected,
		"failed", len(result.Failures),
		"cancelled", result.Cancelled,
	)
	return result, nil
}

// ScanAndProtect sweeps folder and returns the number of newly protected files.
func (e *Engine) ScanAndProtect(ctx context.Context, folder string) (int, error) {
	result, err := e.ProtectFolder(ctx, folder, nil)
	if err != nil {
		return 0, err
	}
	return result.Protected, nil
}

// ShouldSkip reports whether path, found below root, must be left alone: it
// lives inside the backup store, or it matches the ignore rules.
func (e *Engine) ShouldSkip(root, path string) bool {
	if within(e.store.Root(), path) {
		return true
	}
	if e.ignore == nil {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return e.ignore.Match(rel)
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	if dir == "" {
		return false
	}
	if path == dir {
		return true
	}
	return strings.HasPrefix(path, strings.TrimSuffix(dir, string(filepath.Separator))+string(filepath.Separator))
}
