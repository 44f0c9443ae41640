package vault_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hs-go/internal/testutil"
	"hs-go/internal/vault"
)

// fixedIDs returns the same token on each call up to n times, then counts up.
type fixedIDs struct {
	token string
	n     int
	inner *testutil.StubIDGenerator
}

func (g *fixedIDs) New() string {
	if g.n > 0 {
		g.n--
		return g.token
	}
	return g.inner.New()
}

func TestFileSystemVault_EnsureReady(t *testing.T) {
	t.Run("creates root lazily", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		v, err := vault.NewFileSystemVault("/home/u/.hs-vault", fsmgr, testutil.NewStubIDGenerator())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if ok, _ := fsmgr.Exists("/home/u/.hs-vault"); ok {
			t.Fatal("root created before EnsureReady")
		}
		if err := v.EnsureReady(); err != nil {
			t.Fatalf("EnsureReady() error = %v", err)
		}
		if ok, _ := fsmgr.Exists("/home/u/.hs-vault"); !ok {
			t.Error("root not created by EnsureReady")
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		v, _ := vault.NewFileSystemVault("/v", fsmgr, testutil.NewStubIDGenerator())

		for i := 0; i < 2; i++ {
			if err := v.EnsureReady(); err != nil {
				t.Fatalf("EnsureReady() call %d error = %v", i+1, err)
			}
		}
	})

	t.Run("reports mkdir failure", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.SetError("mkdir", "/v", errors.New("read-only file system"))
		v, _ := vault.NewFileSystemVault("/v", fsmgr, testutil.NewStubIDGenerator())

		if err := v.EnsureReady(); err == nil {
			t.Error("EnsureReady() expected error")
		}
	})
}

func TestFileSystemVault_AllocateBackupPath(t *testing.T) {
	t.Run("token prefix and base name", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		v, _ := vault.NewFileSystemVault("/v", fsmgr, testutil.NewStubIDGenerator())

		got, err := v.AllocateBackupPath("/home/u/docs/report.txt")
		if err != nil {
			t.Fatalf("AllocateBackupPath() error = %v", err)
		}
		if got != "/v/id-1_report.txt" {
			t.Errorf("AllocateBackupPath() = %q, want %q", got, "/v/id-1_report.txt")
		}
	})

	t.Run("same base name from different folders stays distinct", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		v, _ := vault.NewFileSystemVault("/v", fsmgr, testutil.NewStubIDGenerator())

		a, _ := v.AllocateBackupPath("/a/report.txt")
		b, _ := v.AllocateBackupPath("/b/report.txt")
		if a == b {
			t.Errorf("both allocations returned %q", a)
		}
		for _, p := range []string{a, b} {
			if !strings.HasSuffix(p, "_report.txt") {
				t.Errorf("%q does not end in _report.txt", p)
			}
		}
	})

	t.Run("redraws on collision", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.AddFile("/v/dup_a.txt", []byte("taken"))
		ids := &fixedIDs{token: "dup", n: 2, inner: testutil.NewStubIDGenerator()}
		v, _ := vault.NewFileSystemVault("/v", fsmgr, ids)

		got, err := v.AllocateBackupPath("/x/a.txt")
		if err != nil {
			t.Fatalf("AllocateBackupPath() error = %v", err)
		}
		if got != "/v/id-1_a.txt" {
			t.Errorf("AllocateBackupPath() = %q, want %q", got, "/v/id-1_a.txt")
		}
		if n := ids.inner.Issued(); n != 1 {
			t.Errorf("fresh tokens drawn = %d, want 1", n)
		}
	})

	t.Run("gives up when every token collides", func(t *testing.T) {
		fsmgr := testutil.NewMockFilesystemManager()
		fsmgr.AddFile("/v/dup_a.txt", []byte("taken"))
		ids := &fixedIDs{token: "dup", n: 1000, inner: testutil.NewStubIDGenerator()}
		v, _ := vault.NewFileSystemVault("/v", fsmgr, ids)

		if _, err := v.AllocateBackupPath("/x/a.txt"); err == nil {
			t.Error("AllocateBackupPath() expected error")
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	fsmgr := testutil.NewMockFilesystemManager()
	v, _ := vault.NewFileSystemVault("/v", fsmgr, testutil.NewStubIDGenerator())

	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error before root exists")
	}

	v.EnsureReady()
	if err := v.ValidateSetup(); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	fsmgr2 := testutil.NewMockFilesystemManager()
	fsmgr2.AddFile("/file", []byte("x"))
	v2, _ := vault.NewFileSystemVault("/file", fsmgr2, testutil.NewStubIDGenerator())
	if err := v2.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error for a file root")
	}
}

func TestFileSystemVault_SaveSnapshot(t *testing.T) {
	root := t.TempDir()
	v, _ := vault.NewFileSystemVault(root, testutil.NewMockFilesystemManager(), testutil.NewStubIDGenerator())

	write := func(data string) func(string) error {
		return func(tmp string) error {
			if _, err := os.Stat(tmp); !os.IsNotExist(err) {
				t.Errorf("temp path %s already exists", tmp)
			}
			return os.WriteFile(tmp, []byte(data), 0o644)
		}
	}

	if err := v.SaveSnapshot(write("first")); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	if err := v.SaveSnapshot(write("second")); err != nil {
		t.Fatalf("SaveSnapshot() second call error = %v", err)
	}

	got, err := os.ReadFile(v.SnapshotPath())
	if err != nil {
		t.Fatalf("reading snapshot: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("snapshot = %q, want %q", got, "second")
	}

	t.Run("failed write leaves previous snapshot", func(t *testing.T) {
		err := v.SaveSnapshot(func(string) error { return errors.New("boom") })
		if err == nil {
			t.Fatal("SaveSnapshot() expected error")
		}
		got, _ := os.ReadFile(v.SnapshotPath())
		if string(got) != "second" {
			t.Errorf("snapshot = %q, want %q", got, "second")
		}
		entries, _ := os.ReadDir(filepath.Dir(v.SnapshotPath()))
		if len(entries) != 1 {
			t.Errorf("index dir has %d entries, want 1", len(entries))
		}
	})
}
