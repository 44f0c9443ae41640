package testutil

import (
	"hs-go/internal/hs"
	"hs-go/internal/vault"
)

// TestVaultRoot is the backup root used by NewTestVault.
const TestVaultRoot = "/backups"

// NewTestVault creates a vault at TestVaultRoot on fsmgr. Artifact tokens are
// "id-1", "id-2", ...
func NewTestVault(fsmgr hs.FilesystemManager) *vault.FileSystemVault {
	v, err := vault.NewFileSystemVault(TestVaultRoot, fsmgr, NewStubIDGenerator())
	if err != nil {
		panic(err)
	}
	return v
}
