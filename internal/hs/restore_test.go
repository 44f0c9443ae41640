package hs_test

import (
	"errors"
	"testing"

	"golang.org/x/sys/unix"

	"hs-go/internal/hs"
	"hs-go/internal/testutil"
)

// protectThenDelete protects path and removes the original, returning the record.
func protectThenDelete(t *testing.T, te *testutil.TestEngine, path string, content []byte) *hs.ProtectResult {
	t.Helper()
	te.FS.AddFile(path, content)
	res, err := te.Protect(path)
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}
	if err := te.FS.Remove(path); err != nil {
		t.Fatalf("removing original: %v", err)
	}
	return res
}

func TestEngine_Restore(t *testing.T) {
	t.Run("round trip by id", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		res := protectThenDelete(t, te, "/home/u/a.txt", []byte("v1"))

		got, err := te.RestoreByID(res.Record.ID)
		if err != nil {
			t.Fatalf("RestoreByID() error = %v", err)
		}
		if got.Method != hs.MethodLink {
			t.Errorf("Method = %v, want link", got.Method)
		}
		content, ok := te.FS.ReadFile("/home/u/a.txt")
		if !ok || string(content) != "v1" {
			t.Errorf("restored content = %q, %v; want v1", content, ok)
		}
		if rec, _ := te.DB.FindProtectedFile("/home/u/a.txt"); rec == nil {
			t.Error("record removed by restore")
		}
	})

	t.Run("restore twice after repeated deletion", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		res := protectThenDelete(t, te, "/a.txt", []byte("v1"))

		for i := 0; i < 2; i++ {
			if _, err := te.RestorePath("/a.txt"); err != nil {
				t.Fatalf("RestorePath() round %d error = %v", i+1, err)
			}
			te.FS.Remove("/a.txt")
		}
		if ok, _ := te.FS.Exists(res.BackupPath); !ok {
			t.Error("artifact consumed by restore")
		}
	})

	t.Run("never overwrites", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		res := protectThenDelete(t, te, "/a.txt", []byte("old"))
		te.FS.AddFile("/a.txt", []byte("new"))

		_, err := te.Restore("/a.txt", res.BackupPath)
		if !errors.Is(err, hs.ErrTargetExists) {
			t.Fatalf("Restore() error = %v, want ErrTargetExists", err)
		}
		content, _ := te.FS.ReadFile("/a.txt")
		if string(content) != "new" {
			t.Errorf("existing file = %q, want %q", content, "new")
		}
	})

	t.Run("original still in place", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		te.FS.AddFile("/a.txt", []byte("a"))
		res, _ := te.Protect("/a.txt")

		if _, err := te.RestoreByID(res.Record.ID); !errors.Is(err, hs.ErrTargetExists) {
			t.Errorf("RestoreByID() error = %v, want ErrTargetExists", err)
		}
	})

	t.Run("missing artifact", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		res := protectThenDelete(t, te, "/a.txt", []byte("a"))
		te.FS.Remove(res.BackupPath)

		_, err := te.RestoreByID(res.Record.ID)
		if !errors.Is(err, hs.ErrBackupMissing) {
			t.Errorf("RestoreByID() error = %v, want ErrBackupMissing", err)
		}
	})

	t.Run("recreates parent directories", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		res := protectThenDelete(t, te, "/home/u/deep/dir/a.txt", []byte("a"))
		te.FS.Remove("/home/u/deep/dir")
		te.FS.Remove("/home/u/deep")

		if _, err := te.RestoreByID(res.Record.ID); err != nil {
			t.Fatalf("RestoreByID() error = %v", err)
		}
		if ok, _ := te.FS.Exists("/home/u/deep/dir/a.txt"); !ok {
			t.Error("file not restored")
		}
	})

	t.Run("copies when linking is impossible", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		res := protectThenDelete(t, te, "/a.txt", []byte("v1"))
		te.FS.SetError("link", res.BackupPath, unix.EXDEV)

		got, err := te.RestoreByID(res.Record.ID)
		if err != nil {
			t.Fatalf("RestoreByID() error = %v", err)
		}
		if got.Method != hs.MethodCopy {
			t.Errorf("Method = %v, want copy", got.Method)
		}
		if te.FS.SameFile("/a.txt", res.BackupPath) {
			t.Error("copy shares data with the artifact")
		}
	})

	t.Run("unknown id and path", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})

		if _, err := te.RestoreByID(7); !errors.Is(err, hs.ErrNotProtected) {
			t.Errorf("RestoreByID() error = %v, want ErrNotProtected", err)
		}
		if _, err := te.RestorePath("/never.txt"); !errors.Is(err, hs.ErrNotProtected) {
			t.Errorf("RestorePath() error = %v, want ErrNotProtected", err)
		}
	})
}
