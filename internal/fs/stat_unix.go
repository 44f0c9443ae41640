//go:build unix

package fs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// accessTime returns the last access time recorded in info, falling back to
// the modification time when the platform data is unavailable.
func accessTime(info fs.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(st.Atim.Sec, st.Atim.Nsec)
}

// SameVolume reports whether a and b live on the same device, which hard
// links require. Paths that do not exist yet are judged by their nearest
// existing ancestor.
func (m *OSFilesystemManager) SameVolume(a, b string) (bool, error) {
	da, err := device(a)
	if err != nil {
		return false, err
	}
	db, err := device(b)
	if err != nil {
		return false, err
	}
	return da == db, nil
}

func device(path string) (uint64, error) {
	p, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	for {
		var st unix.Stat_t
		err := unix.Stat(p, &st)
		if err == nil {
			return uint64(st.Dev), nil
		}
		if !errors.Is(err, unix.ENOENT) {
			return 0, &os.PathError{Op: "stat", Path: p, Err: err}
		}
		parent := filepath.Dir(p)
		if parent == p {
			return 0, fmt.Errorf("no existing ancestor for %s", path)
		}
		p = parent
	}
}
