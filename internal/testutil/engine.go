package testutil

import (
	"testing"

	"hs-go/internal/database"
	"hs-go/internal/hs"
	"hs-go/internal/link"
	"hs-go/internal/vault"
)

// TestEngine bundles an Engine with the in-memory collaborators behind it so
// tests can arrange files and inspect the registry directly.
type TestEngine struct {
	*hs.Engine
	FS     *MockFilesystemManager
	DB     *database.SQLiteDatabase
	Vault  *vault.FileSystemVault
	Linker *link.Strategy
	Clock  *StubClock
}

// NewTestEngine creates an Engine over a mock filesystem, an in-memory
// registry and a vault at TestVaultRoot.
func NewTestEngine(t *testing.T, opts hs.Options) *TestEngine {
	t.Helper()

	fsmgr := NewMockFilesystemManager()
	te := &TestEngine{
		FS:     fsmgr,
		DB:     NewTestDatabase(t),
		Vault:  NewTestVault(fsmgr),
		Linker: link.NewStrategy(fsmgr, hs.NewNopLogger()),
		Clock:  FixedClock(),
	}
	te.Engine = te.With(te.DB, opts)
	return te
}

// With builds another Engine sharing te's collaborators but using registry.
func (te *TestEngine) With(registry hs.Registry, opts hs.Options) *hs.Engine {
	return hs.NewEngine(registry, te.Vault, te.Linker, te.FS, hs.NewNopLogger(), te.Clock, opts)
}
