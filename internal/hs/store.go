package hs

// BackupStore manages the directory holding backup artifacts.
// It owns the naming scheme of artifacts but not their existence once created.
type BackupStore interface {
	// EnsureReady creates the backup root if it is absent. Idempotent.
	EnsureReady() error

	// AllocateBackupPath returns a path inside the backup root, derived from
	// the base name of originalPath, that does not exist yet.
	AllocateBackupPath(originalPath string) (string, error)

	// Root returns the absolute backup root directory.
	Root() string
}

// RestoreMethod identifies how a restore materialized the original file.
type RestoreMethod int

const (
	MethodLink RestoreMethod = iota + 1
	MethodCopy
)

func (m RestoreMethod) String() string {
	switch m {
	case MethodLink:
		return "link"
	case MethodCopy:
		return "copy"
	default:
		return "unknown"
	}
}

// Linker performs the physical act of creating a backup or restoring from one.
type Linker interface {
	// MaterializeBackup hard links backupPath to originalPath's data.
	// It never falls back to copying: a cross-volume failure is ErrCrossVolume,
	// any other failure is ErrLinkFailed.
	MaterializeBackup(originalPath, backupPath string) error

	// MaterializeRestore recreates originalPath from backupPath, linking when
	// possible and copying otherwise. An existing originalPath is never overwritten.
	MaterializeRestore(backupPath, originalPath string) (RestoreMethod, error)
}
