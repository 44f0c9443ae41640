package testutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"hs-go/internal/hs"
)

// MockFile represents an inode in the mock filesystem. Hard links are modelled
// by several paths sharing the same *MockFile.
type MockFile struct {
	Content []byte
	Mode    fs.FileMode
	ModTime time.Time
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Failures can be injected per operation and path with SetError.
type MockFilesystemManager struct {
	mu     sync.Mutex
	files  map[string]*MockFile
	errors map[string]error
}

// NewMockFilesystemManager creates a new mock filesystem containing only "/".
func NewMockFilesystemManager() *MockFilesystemManager {
	m := &MockFilesystemManager{
		files:  make(map[string]*MockFile),
		errors: make(map[string]error),
	}
	m.files["/"] = &MockFile{Mode: fs.ModeDir | 0o755}
	return m
}

// AddFile adds a regular file, creating missing parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(filepath.Dir(path))
	m.files[path] = &MockFile{Content: content, Mode: 0o644, ModTime: time.Now()}
}

// AddDirectory adds a directory and its missing parents.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(path)
}

// AddSymlink adds a symlink entry. The target is not modelled.
func (m *MockFilesystemManager) AddSymlink(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(filepath.Dir(path))
	m.files[path] = &MockFile{Mode: fs.ModeSymlink | 0o777, ModTime: time.Now()}
}

// SetError makes op on path fail with err. op is one of "lstat", "link",
// "copy", "remove", "mkdir", "readdir". For "link" and "copy" path is the
// source. A nil err clears the injection.
func (m *MockFilesystemManager) SetError(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + ":" + path
	if err == nil {
		delete(m.errors, key)
		return
	}
	m.errors[key] = err
}

// ReadFile returns the content stored at path.
func (m *MockFilesystemManager) ReadFile(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[path]
	if !ok || f.Mode.IsDir() {
		return nil, false
	}
	return f.Content, true
}

// SameFile reports whether a and b are hard links to one inode.
func (m *MockFilesystemManager) SameFile(a, b string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	fa, ok1 := m.files[a]
	fb, ok2 := m.files[b]
	return ok1 && ok2 && fa == fb
}

// FilesUnder returns the regular files below dir, sorted.
func (m *MockFilesystemManager) FilesUnder(dir string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(dir, "/") + "/"
	var out []string
	for p, f := range m.files {
		if strings.HasPrefix(p, prefix) && f.Mode.IsRegular() {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*hs.Path, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("lstat", absPath); err != nil {
		return nil, err
	}
	f, ok := m.files[absPath]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: absPath, Err: fs.ErrNotExist}
	}
	if !f.Mode.IsRegular() && !f.Mode.IsDir() {
		return nil, fmt.Errorf("unsupported file type: %s", absPath)
	}
	return hs.NewPath(absPath, f.Mode.IsDir(), newMockFileInfo(absPath, f)), nil
}

func (m *MockFilesystemManager) Lstat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("lstat", path); err != nil {
		return nil, err
	}
	f, ok := m.files[path]
	if !ok {
		return nil, &fs.PathError{Op: "lstat", Path: path, Err: fs.ErrNotExist}
	}
	return newMockFileInfo(path, f), nil
}

func (m *MockFilesystemManager) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok, nil
}

func (m *MockFilesystemManager) Link(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("link", oldname); err != nil {
		return &fs.PathError{Op: "link", Path: oldname, Err: err}
	}
	src, ok := m.files[oldname]
	if !ok {
		return &fs.PathError{Op: "link", Path: oldname, Err: fs.ErrNotExist}
	}
	if src.Mode.IsDir() {
		return &fs.PathError{Op: "link", Path: oldname, Err: fs.ErrPermission}
	}
	if err := m.checkCreate("link", newname); err != nil {
		return err
	}
	m.files[newname] = src
	return nil
}

func (m *MockFilesystemManager) CopyFile(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("copy", src); err != nil {
		return &fs.PathError{Op: "copy", Path: src, Err: err}
	}
	f, ok := m.files[src]
	if !ok {
		return &fs.PathError{Op: "open", Path: src, Err: fs.ErrNotExist}
	}
	if err := m.checkCreate("open", dst); err != nil {
		return err
	}
	content := make([]byte, len(f.Content))
	copy(content, f.Content)
	m.files[dst] = &MockFile{Content: content, Mode: f.Mode, ModTime: f.ModTime}
	return nil
}

func (m *MockFilesystemManager) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("mkdir", path); err != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}
	for p := path; ; p = filepath.Dir(p) {
		if f, ok := m.files[p]; ok && !f.Mode.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: p, Err: fmt.Errorf("not a directory")}
		}
		if p == "/" || p == "." {
			break
		}
	}
	m.mkdirAll(path)
	return nil
}

func (m *MockFilesystemManager) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("remove", path); err != nil {
		return &fs.PathError{Op: "remove", Path: path, Err: err}
	}
	if _, ok := m.files[path]; !ok {
		return &fs.PathError{Op: "remove", Path: path, Err: fs.ErrNotExist}
	}
	delete(m.files, path)
	return nil
}

func (m *MockFilesystemManager) FindFiles(root *hs.Path, recursive bool, skip hs.SkipFunc) ([]*hs.Path, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.injected("readdir", root.String()); err != nil {
		return nil, err
	}
	var out []*hs.Path
	m.walk(root.String(), recursive, skip, &out)
	return out, nil
}

func (m *MockFilesystemManager) walk(dir string, recursive bool, skip hs.SkipFunc, out *[]*hs.Path) {
	for _, p := range m.children(dir) {
		f := m.files[p]
		switch {
		case f.Mode.IsDir():
			if !recursive {
				continue
			}
			if err := m.injected("readdir", p); err != nil {
				if skip != nil {
					skip(p, err)
				}
				continue
			}
			m.walk(p, recursive, skip, out)
		case f.Mode.IsRegular():
			*out = append(*out, hs.NewPath(p, false, newMockFileInfo(p, f)))
		}
	}
}

// children returns the direct entries of dir in lexical order.
func (m *MockFilesystemManager) children(dir string) []string {
	var out []string
	for p := range m.files {
		if p != dir && filepath.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (m *MockFilesystemManager) checkCreate(op, path string) error {
	if _, ok := m.files[path]; ok {
		return &fs.PathError{Op: op, Path: path, Err: fs.ErrExist}
	}
	parent, ok := m.files[filepath.Dir(path)]
	if !ok || !parent.Mode.IsDir() {
		return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
	}
	return nil
}

func (m *MockFilesystemManager) mkdirAll(path string) {
	for p := path; ; p = filepath.Dir(p) {
		if _, ok := m.files[p]; !ok {
			m.files[p] = &MockFile{Mode: fs.ModeDir | 0o755, ModTime: time.Now()}
		}
		if p == "/" || p == "." {
			return
		}
	}
}

func (m *MockFilesystemManager) injected(op, path string) error {
	return m.errors[op+":"+path]
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name string
	file *MockFile
}

func newMockFileInfo(path string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{name: filepath.Base(path), file: f}
}

func (i *mockFileInfo) Name() string       { return i.name }
func (i *mockFileInfo) Size() int64        { return int64(len(i.file.Content)) }
func (i *mockFileInfo) Mode() fs.FileMode  { return i.file.Mode }
func (i *mockFileInfo) ModTime() time.Time { return i.file.ModTime }
func (i *mockFileInfo) IsDir() bool        { return i.file.Mode.IsDir() }
func (i *mockFileInfo) Sys() any           { return i.file }

// Compile-time check
var _ hs.FilesystemManager = (*MockFilesystemManager)(nil)
