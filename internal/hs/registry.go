package hs

import (
	"time"

	"hs-go/internal/database/sqlc"
)

// Registry is the persistent original-path -> backup-path index.
// It is the only component that mutates protection records, and implementations
// must keep at most one record per original path even under concurrent upserts.
type Registry interface {
	// FindProtectedFile returns the record for an original path, or nil if there is none.
	FindProtectedFile(originalPath string) (*sqlc.ProtectedFile, error)

	// GetProtectedFile returns the record with the given id, or nil if there is none.
	GetProtectedFile(id int64) (*sqlc.ProtectedFile, error)

	// UpsertProtectedFile inserts a record, or replaces the backup path and
	// refreshes the timestamp of the existing record for originalPath.
	UpsertProtectedFile(originalPath, backupPath string, at time.Time) (*sqlc.ProtectedFile, error)

	// RemoveProtectedFile deletes a record. The backup artifact is never touched.
	// Reports whether a record was deleted.
	RemoveProtectedFile(id int64) (bool, error)

	// ListProtectedFiles returns all records in insertion order.
	ListProtectedFiles() ([]*sqlc.ProtectedFile, error)

	// AddMonitoredFolder registers a folder for auto-protection. Adding an
	// already monitored folder is a no-op.
	AddMonitoredFolder(path string) error

	// RemoveMonitoredFolder unregisters a folder. Reports whether it was registered.
	RemoveMonitoredFolder(path string) (bool, error)

	// ListMonitoredFolders returns all monitored folders in insertion order.
	ListMonitoredFolders() ([]*sqlc.MonitoredFolder, error)
}
