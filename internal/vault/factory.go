package vault

import (
	"fmt"

	"hs-go/internal/config"
	"hs-go/internal/hs"
)

// NewVaultFromConfig creates the backup store described by cfg.
func NewVaultFromConfig(cfg config.VaultConfig, fsmgr hs.FilesystemManager, ids hs.IDGenerator) (*FileSystemVault, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("vault requires root to be set")
	}
	return NewFileSystemVault(cfg.Root, fsmgr, ids)
}
