package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"hs-go/internal/database/migrations"
	"hs-go/internal/database/sqlc"
	"hs-go/internal/hs"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase is the protection registry backed by a single SQLite file.
// Writes are serialized through mu so that concurrent protect calls from a
// sweep and a watcher never interleave their statements.
type SQLiteDatabase struct {
	mu      sync.Mutex
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteDatabase opens the registry at path. path can be a file path or
// ":memory:". The schema is not touched; see Migrate.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing connection. The caller is
// responsible for having configured it with OpenConnection or equivalent.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{
		db:      db,
		queries: sqlc.New(db),
	}
}

// OpenConnection opens and configures a SQLite connection. It is exported
// for tools and tests that need the same PRAGMAs as the registry.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: PRAGMAs stick, and ":memory:" stays a single database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}

// Protected files

func (s *SQLiteDatabase) FindProtectedFile(originalPath string) (*sqlc.ProtectedFile, error) {
	rec, err := s.queries.GetProtectedFileByOriginalPath(context.Background(), originalPath)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding protected file by path: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteDatabase) GetProtectedFile(id int64) (*sqlc.ProtectedFile, error) {
	rec, err := s.queries.GetProtectedFileByID(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting protected file %d: %w", id, err)
	}
	return &rec, nil
}

// UpsertProtectedFile inserts a record or, when originalPath is already
// registered, repoints it at backupPath. The stored row is returned.
func (s *SQLiteDatabase) UpsertProtectedFile(originalPath, backupPath string, at time.Time) (*sqlc.ProtectedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	err = qtx.UpsertProtectedFile(ctx, sqlc.UpsertProtectedFileParams{
		OriginalPath: originalPath,
		BackupPath:   backupPath,
		ProtectedAt:  at,
	})
	if err != nil {
		return nil, fmt.Errorf("upserting protected file: %w", err)
	}
	rec, err := qtx.GetProtectedFileByOriginalPath(ctx, originalPath)
	if err != nil {
		return nil, fmt.Errorf("reading upserted record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return &rec, nil
}

// RemoveProtectedFile deletes the record and reports whether one existed.
func (s *SQLiteDatabase) RemoveProtectedFile(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.queries.DeleteProtectedFileByID(context.Background(), id)
	if err != nil {
		return false, fmt.Errorf("removing protected file %d: %w", id, err)
	}
	return n > 0, nil
}

func (s *SQLiteDatabase) ListProtectedFiles() ([]*sqlc.ProtectedFile, error) {
	recs, err := s.queries.ListProtectedFiles(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing protected files: %w", err)
	}

	result := make([]*sqlc.ProtectedFile, len(recs))
	for i := range recs {
		result[i] = &recs[i]
	}
	return result, nil
}

// Monitored folders

func (s *SQLiteDatabase) AddMonitoredFolder(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.queries.InsertMonitoredFolder(context.Background(), path); err != nil {
		return fmt.Errorf("adding monitored folder: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) RemoveMonitoredFolder(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.queries.DeleteMonitoredFolderByPath(context.Background(), path)
	if err != nil {
		return false, fmt.Errorf("removing monitored folder: %w", err)
	}
	return n > 0, nil
}

// ListMonitoredFolders returns the registered folders. A registry without the
// monitored_folders table has no folders rather than an error.
func (s *SQLiteDatabase) ListMonitoredFolders() ([]*sqlc.MonitoredFolder, error) {
	ok, err := s.HasTable("monitored_folders")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	folders, err := s.queries.ListMonitoredFolders(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing monitored folders: %w", err)
	}

	result := make([]*sqlc.MonitoredFolder, len(folders))
	for i := range folders {
		result[i] = &folders[i]
	}
	return result, nil
}

// HasTable reports whether the named table exists.
func (s *SQLiteDatabase) HasTable(name string) (bool, error) {
	n, err := s.queries.CountTablesByName(context.Background(), name)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", name, err)
	}
	return n > 0, nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation, parameters string) (*sqlc.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := sqlc.Operation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  time.Now(),
		Status:     "running",
	}
	id, err := s.queries.InsertOperation(context.Background(), sqlc.InsertOperationParams{
		Operation:  op.Operation,
		Parameters: op.Parameters,
		StartedAt:  op.StartedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	op.ID = id
	return &op, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.queries.UpdateOperationFinished(context.Background(), sqlc.UpdateOperationFinishedParams{
		FinishedAt: sql.NullTime{Time: time.Now(), Valid: true},
		Status:     status,
		ID:         id,
	})
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

// ListOperations returns up to limit operations, newest first.
func (s *SQLiteDatabase) ListOperations(limit int) ([]*sqlc.Operation, error) {
	ops, err := s.queries.ListOperations(context.Background(), int64(limit))
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}

	result := make([]*sqlc.Operation, len(ops))
	for i := range ops {
		result[i] = &ops[i]
	}
	return result, nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	id, err := s.queries.GetMaxOperationID(context.Background())
	if err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:").
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate applies pending schema migrations.
func (s *SQLiteDatabase) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo writes a consistent copy of the registry to destPath using
// VACUUM INTO. destPath must not exist.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up registry: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ hs.Registry = (*SQLiteDatabase)(nil)
