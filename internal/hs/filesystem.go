package hs

import "io/fs"

// SkipFunc receives entries that could not be read during file discovery.
type SkipFunc func(path string, err error)

// FilesystemManager abstracts the filesystem calls made by the engine so that
// protection logic can be tested without touching the real filesystem.
type FilesystemManager interface {
	// Resolve makes rawPath absolute, stats it, and validates that it is a
	// regular file or directory (not a symlink, device, etc.).
	Resolve(rawPath string) (*Path, error)

	// Lstat returns file info without following a final symlink.
	// A missing path yields an error matching fs.ErrNotExist.
	Lstat(path string) (fs.FileInfo, error)

	// Exists reports whether anything occupies path, including a dangling symlink.
	Exists(path string) (bool, error)

	// Link creates newname as a hard link to oldname.
	Link(oldname, newname string) error

	// CopyFile copies src to a newly created dst, preserving permission bits
	// and access/modification times. dst must not exist.
	CopyFile(src, dst string) error

	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error

	// Remove deletes a single file.
	Remove(path string) error

	// FindFiles discovers regular files under root in lexical order.
	// When recursive is true, subdirectories are walked depth-first.
	// Entries that cannot be read are passed to skip and left out; only a
	// failure to read root itself is returned as an error.
	FindFiles(root *Path, recursive bool, skip SkipFunc) ([]*Path, error)
}

// Path is an absolute filesystem path with the stat info captured when it was
// resolved or discovered.
type Path struct {
	absPath string
	isDir   bool
	info    fs.FileInfo
}

// NewPath creates a Path from its components.
// This is primarily for use by FilesystemManager implementations.
func NewPath(absPath string, isDir bool, info fs.FileInfo) *Path {
	return &Path{absPath: absPath, isDir: isDir, info: info}
}

// String returns the absolute path.
func (p *Path) String() string { return p.absPath }

// IsDir returns true if this path points to a directory.
func (p *Path) IsDir() bool { return p.isDir }

// Info returns the cached file info.
func (p *Path) Info() fs.FileInfo { return p.info }
