package hs

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is against any error returned by the engine.
var (
	ErrSourceNotFound     = errors.New("source file not found")
	ErrNotRegularFile     = errors.New("not a regular file")
	ErrStorageUnavailable = errors.New("backup storage unavailable")
	ErrCrossVolume        = errors.New("hard link across volumes not supported")
	ErrLinkFailed         = errors.New("link creation failed")
	ErrBackupMissing      = errors.New("backup artifact missing")
	ErrTargetExists       = errors.New("restore target already exists")
	ErrRestoreFailed      = errors.New("restore failed")
	ErrRegistry           = errors.New("registry error")
	ErrNotProtected       = errors.New("no protection record")
)

// Error records which file an operation failed on and why.
// Both Kind and the underlying cause Err are visible to errors.Is and errors.As.
type Error struct {
	Op   string // "protect", "restore", "unprotect", ...
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, path string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// KindOf returns the error kind carried by err, or nil if err did not come
// from the engine.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// wrapError attributes err to op on path. Errors that already carry a kind
// (for example from the Linker) keep it; anything else gets kind.
func wrapError(op, path string, err error, kind error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return newError(op, path, e.Kind, e.Err)
	}
	return newError(op, path, kind, err)
}
