package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"hs-go/internal/config"
	"hs-go/internal/database"
	"hs-go/internal/database/sqlc"
	"hs-go/internal/fs"
	"hs-go/internal/hs"
	"hs-go/internal/link"
	"hs-go/internal/monitor"
	"hs-go/internal/vault"
)

// HSApp is the application layer between the CLI and the protection engine.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the registry lifecycle on Close.
type HSApp struct {
	cfg     *config.Config
	db      *database.SQLiteDatabase
	vault   *vault.FileSystemVault
	fsmgr   *fs.OSFilesystemManager
	engine  *hs.Engine
	logger  hs.Logger
	clock   hs.Clock
	op      *Operation
	logFile *os.File
}

// NewHSApp creates a fully wired HSApp from the given config.
// operation identifies the CLI command being run (e.g. "Protect", "AutoProtect").
// The caller must call Close when done.
func NewHSApp(cfg *config.Config, operation string) (*HSApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	slogger, logFile, err := newLogger(cfg.LogDir, opID, level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	fsmgr := fs.NewOSFilesystemManager()

	v, err := vault.NewVaultFromConfig(cfg.Vault, fsmgr, hs.UUIDGenerator{})
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	ignore, err := fs.LoadIgnoreMatcher(cfg.Scan.Ignore, cfg.BaseDir)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("loading ignore rules: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating database: %w", err)
	}

	clock := hs.RealClock{}
	engine := hs.NewEngine(db, v, link.NewStrategy(fsmgr, logger), fsmgr, logger, clock, hs.Options{
		Ignore:  ignore,
		Workers: cfg.Scan.Workers,
	})

	return &HSApp{
		cfg:     cfg,
		db:      db,
		vault:   v,
		fsmgr:   fsmgr,
		engine:  engine,
		logger:  logger,
		clock:   clock,
		op:      NewOperation(operation, ""),
		logFile: logFile,
	}, nil
}

// persistOperation saves the operation to the database, giving it an
// auto-increment ID. This should only be called for mutating commands.
func (a *HSApp) persistOperation(parameters string) error {
	if a.op.Persisted() {
		return nil
	}
	a.op.Parameters = parameters
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// IsDirectory reports whether rawPath names an existing directory.
func (a *HSApp) IsDirectory(rawPath string) (bool, error) {
	p, err := a.fsmgr.Resolve(rawPath)
	if err != nil {
		return false, fmt.Errorf("resolving path: %w", err)
	}
	return p.IsDir(), nil
}

// Protect backs up a single file.
func (a *HSApp) Protect(rawPath string) (*hs.ProtectResult, error) {
	if err := a.persistOperation(rawPath); err != nil {
		return nil, err
	}
	res, err := a.engine.Protect(rawPath)
	return res, a.op.Fail(err)
}

// StartSweep protects every file under a folder in the background.
// Progress events are delivered on the returned sweep's channel.
func (a *HSApp) StartSweep(ctx context.Context, rawPath string, buffer int) (*hs.Sweep, error) {
	if err := a.persistOperation(rawPath); err != nil {
		return nil, err
	}
	return a.engine.StartSweep(ctx, rawPath, buffer), nil
}

// ProtectFolder protects every file under a folder and waits for the sweep.
func (a *HSApp) ProtectFolder(ctx context.Context, rawPath string, progress hs.ProgressFunc) (*hs.SweepResult, error) {
	if err := a.persistOperation(rawPath); err != nil {
		return nil, err
	}
	res, err := a.engine.ProtectFolder(ctx, rawPath, progress)
	return res, a.op.Fail(err)
}

// Restore recreates originalPath from an explicit backup artifact.
func (a *HSApp) Restore(originalPath, backupPath string) (*hs.RestoreResult, error) {
	if err := a.persistOperation(originalPath); err != nil {
		return nil, err
	}
	res, err := a.engine.Restore(originalPath, backupPath)
	return res, a.op.Fail(err)
}

// RestoreByID restores the file recorded under id.
func (a *HSApp) RestoreByID(id int64) (*hs.RestoreResult, error) {
	if err := a.persistOperation(strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	res, err := a.engine.RestoreByID(id)
	return res, a.op.Fail(err)
}

// RestorePath restores a file by its original path. The path may not
// exist on disk.
func (a *HSApp) RestorePath(rawPath string) (*hs.RestoreResult, error) {
	if err := a.persistOperation(rawPath); err != nil {
		return nil, err
	}
	res, err := a.engine.RestorePath(rawPath)
	return res, a.op.Fail(err)
}

// RemoveProtection forgets the record with the given id. The backup
// artifact is left in the vault.
func (a *HSApp) RemoveProtection(id int64) error {
	if err := a.persistOperation(strconv.FormatInt(id, 10)); err != nil {
		return err
	}
	return a.op.Fail(a.engine.RemoveProtection(id))
}

// GetProtectedFile returns the record with the given id, or nil.
func (a *HSApp) GetProtectedFile(id int64) (*sqlc.ProtectedFile, error) {
	return a.db.GetProtectedFile(id)
}

// Status reports the state of a protected file.
func (a *HSApp) Status(rawPath string) (*hs.FileStatus, error) {
	return a.engine.Status(rawPath)
}

// ListProtected returns every protected file with its state.
func (a *HSApp) ListProtected() ([]*hs.FileStatus, error) {
	return a.engine.ListProtected()
}

// AddMonitoredFolder registers a folder for auto-protection and returns the
// stored path.
func (a *HSApp) AddMonitoredFolder(rawPath string) (string, error) {
	if err := a.persistOperation(rawPath); err != nil {
		return "", err
	}
	path, err := a.engine.AddMonitoredFolder(rawPath)
	return path, a.op.Fail(err)
}

// RemoveMonitoredFolder unregisters a folder.
func (a *HSApp) RemoveMonitoredFolder(rawPath string) error {
	if err := a.persistOperation(rawPath); err != nil {
		return err
	}
	return a.op.Fail(a.engine.RemoveMonitoredFolder(rawPath))
}

// ListMonitoredFolders returns the registered folders.
func (a *HSApp) ListMonitoredFolders() ([]string, error) {
	return a.engine.ListMonitoredFolders()
}

// AutoProtect sweeps every monitored folder that exists.
func (a *HSApp) AutoProtect(ctx context.Context) ([]*hs.FolderSweep, error) {
	if err := a.persistOperation(""); err != nil {
		return nil, err
	}
	sweeps, err := a.engine.AutoProtect(ctx)
	if err != nil {
		return sweeps, a.op.Fail(err)
	}
	for _, s := range sweeps {
		if s.Err != nil {
			a.op.Fail(s.Err)
		}
	}
	return sweeps, nil
}

// Watch protects new files in the monitored folders as they appear, until
// ctx is cancelled. It does not sweep first; see AutoProtect.
func (a *HSApp) Watch(ctx context.Context, report monitor.ActivityFunc) error {
	if err := a.persistOperation(""); err != nil {
		return err
	}

	folders, err := a.engine.ListMonitoredFolders()
	if err != nil {
		return a.op.Fail(err)
	}

	w, err := monitor.NewWatcher(a.engine, a.logger, a.clock)
	if err != nil {
		return a.op.Fail(err)
	}

	added := 0
	for _, folder := range folders {
		if err := w.Add(folder); err != nil {
			a.logger.Warn("not watching monitored folder", "path", folder, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		w.Close()
		return a.op.Fail(errors.New("no monitored folder could be watched"))
	}

	a.logger.Info("watching monitored folders", "folders", added, "directories", w.Watched())
	return a.op.Fail(w.Run(ctx, report))
}

// GetHistory returns the most recent operations.
func (a *HSApp) GetHistory(limit int) ([]*sqlc.Operation, error) {
	return a.db.ListOperations(limit)
}

// Check is the outcome of one doctor check. Err is nil when it passed.
type Check struct {
	Name string
	Err  error
}

// Doctor verifies the setup: the backup root is usable, the registry schema
// is current and each monitored folder can be hard linked into the vault.
func (a *HSApp) Doctor() ([]Check, error) {
	checks := []Check{
		{Name: "backup root " + a.vault.Root(), Err: a.vault.ValidateSetup()},
		{Name: "registry schema", Err: a.db.CheckMigrations()},
	}

	folders, err := a.engine.ListMonitoredFolders()
	if err != nil {
		return checks, err
	}
	for _, folder := range folders {
		c := Check{Name: "same volume " + folder}
		same, err := a.fsmgr.SameVolume(folder, a.vault.Root())
		switch {
		case err != nil:
			c.Err = err
		case !same:
			c.Err = fmt.Errorf("%s and %s are on different volumes: %w", folder, a.vault.Root(), hs.ErrCrossVolume)
		}
		checks = append(checks, c)
	}
	return checks, nil
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record and, when enabled,
// snapshots the registry into the vault.
func (a *HSApp) Close() error {
	var errs []error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
		if a.cfg.Database.Snapshot && a.cfg.Database.Type == "sqlite" {
			if err := a.snapshot(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}

// snapshot copies the registry next to the artifacts it indexes.
func (a *HSApp) snapshot() error {
	if _, err := os.Stat(a.vault.Root()); err != nil {
		// Nothing protected yet; no vault to snapshot into.
		return nil
	}
	if err := a.vault.SaveSnapshot(a.db.BackupTo); err != nil {
		return fmt.Errorf("snapshotting registry: %w", err)
	}
	a.logger.Debug("registry snapshot saved", "path", a.vault.SnapshotPath())
	return nil
}
