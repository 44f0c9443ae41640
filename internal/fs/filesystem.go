package fs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"hs-go/internal/hs"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct{}

// NewOSFilesystemManager creates a new filesystem manager that operates on the real filesystem.
func NewOSFilesystemManager() *OSFilesystemManager {
	return &OSFilesystemManager{}
}

// Resolve validates a raw path and returns a Path object. Symlinks are
// followed; the target must be a regular file or a directory.
func (m *OSFilesystemManager) Resolve(rawPath string) (*hs.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode&os.ModeDevice != 0:
		return nil, fmt.Errorf("device files not supported: %s", absPath)
	case mode&os.ModeNamedPipe != 0:
		return nil, fmt.Errorf("named pipes not supported: %s", absPath)
	case mode&os.ModeSocket != 0:
		return nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	return hs.NewPath(absPath, info.IsDir(), info), nil
}

func (m *OSFilesystemManager) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

// Exists reports whether anything occupies path. A dangling symlink counts.
func (m *OSFilesystemManager) Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (m *OSFilesystemManager) Link(oldname, newname string) error {
	return os.Link(oldname, newname)
}

// CopyFile copies src into a newly created dst, then applies src's permission
// bits and timestamps. A partial dst is removed on failure.
func (m *OSFilesystemManager) CopyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("not a regular file: %s", src)
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}

	// The create mode was filtered by the umask.
	if err = os.Chmod(dst, info.Mode().Perm()); err != nil {
		return fmt.Errorf("setting mode on %s: %w", dst, err)
	}
	if err = os.Chtimes(dst, accessTime(info), info.ModTime()); err != nil {
		return fmt.Errorf("setting times on %s: %w", dst, err)
	}
	return nil
}

func (m *OSFilesystemManager) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (m *OSFilesystemManager) Remove(path string) error {
	return os.Remove(path)
}

// FindFiles discovers regular files under root in lexical order. Symlinks and
// special files are passed over. Unreadable subdirectories and entries are
// reported to skip.
func (m *OSFilesystemManager) FindFiles(root *hs.Path, recursive bool, skip hs.SkipFunc) ([]*hs.Path, error) {
	if !root.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root.String())
	}

	entries, err := os.ReadDir(root.String())
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var paths []*hs.Path
	m.collect(root.String(), entries, recursive, skip, &paths)
	return paths, nil
}

func (m *OSFilesystemManager) collect(dir string, entries []os.DirEntry, recursive bool, skip hs.SkipFunc, out *[]*hs.Path) {
	report := func(p string, err error) {
		if skip != nil {
			skip(p, err)
		}
	}

	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		switch {
		case entry.IsDir():
			if !recursive {
				continue
			}
			children, err := os.ReadDir(p)
			if err != nil {
				report(p, err)
				// ReadDir returns what it managed to read before failing.
				if len(children) == 0 {
					continue
				}
			}
			m.collect(p, children, recursive, skip, out)
		case entry.Type().IsRegular():
			info, err := entry.Info()
			if err != nil {
				report(p, err)
				continue
			}
			*out = append(*out, hs.NewPath(p, false, info))
		}
	}
}

var _ hs.FilesystemManager = (*OSFilesystemManager)(nil)
