package testutil

import (
	"testing"

	"hs-go/internal/database"
)

// NewTestDatabase returns an in-memory registry migrated to the latest
// schema. It is closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("migrating registry: %v", err)
	}
	return db
}
