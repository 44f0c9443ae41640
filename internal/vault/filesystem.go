package vault

import (
	"fmt"
	"os"
	"path/filepath"

	"hs-go/internal/hs"
)

// maxAllocateAttempts bounds how many fresh tokens AllocateBackupPath draws
// before giving up on a name.
const maxAllocateAttempts = 8

// indexDir holds registry snapshots inside the vault root.
const indexDir = ".index"

// FileSystemVault is the backup store. Artifacts are kept flat in one
// directory, each named "<token>_<basename of the original>":
//
//	<root>/
//	  3f0c...-..._report.txt
//	  9a41...-..._report.txt   (a second file also called report.txt)
//	  .index/
//	    registry.db             (registry snapshot)
//
// The root is created lazily by EnsureReady, not by the constructor.
type FileSystemVault struct {
	root  string
	fsmgr hs.FilesystemManager
	ids   hs.IDGenerator
}

// NewFileSystemVault creates a vault rooted at root. Relative roots are made
// absolute against the working directory.
func NewFileSystemVault(root string, fsmgr hs.FilesystemManager, ids hs.IDGenerator) (*FileSystemVault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving vault root: %w", err)
	}
	return &FileSystemVault{root: abs, fsmgr: fsmgr, ids: ids}, nil
}

// Root returns the absolute vault root.
func (v *FileSystemVault) Root() string {
	return v.root
}

// EnsureReady creates the vault root if it is absent.
func (v *FileSystemVault) EnsureReady() error {
	if err := v.fsmgr.MkdirAll(v.root); err != nil {
		return fmt.Errorf("creating vault root %s: %w", v.root, err)
	}
	return nil
}

// AllocateBackupPath returns an unused artifact path for originalPath. The
// token is redrawn if the name is somehow taken.
func (v *FileSystemVault) AllocateBackupPath(originalPath string) (string, error) {
	base := filepath.Base(originalPath)
	if base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("no file name in %q", originalPath)
	}

	for i := 0; i < maxAllocateAttempts; i++ {
		candidate := filepath.Join(v.root, v.ids.New()+"_"+base)
		taken, err := v.fsmgr.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free backup name for %s after %d attempts", base, maxAllocateAttempts)
}

// ValidateSetup verifies that the vault root exists and is a directory.
func (v *FileSystemVault) ValidateSetup() error {
	p, err := v.fsmgr.Resolve(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !p.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

// SnapshotPath is where the registry snapshot is kept.
func (v *FileSystemVault) SnapshotPath() string {
	return filepath.Join(v.root, indexDir, "registry.db")
}

// SaveSnapshot replaces the registry snapshot atomically. write must create
// the file named by its argument; it is renamed into place only if write
// succeeds.
func (v *FileSystemVault) SaveSnapshot(write func(tmpPath string) error) error {
	dest := v.SnapshotPath()
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	// The writer needs a path that does not exist yet.
	if err := os.Remove(tmpPath); err != nil {
		return fmt.Errorf("failed to reserve temp path: %w", err)
	}

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if err := write(tmpPath); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

var _ hs.BackupStore = (*FileSystemVault)(nil)
