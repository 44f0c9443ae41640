package hs_test

import (
	"context"
	"testing"

	"golang.org/x/sys/unix"

	"hs-go/internal/hs"
	"hs-go/internal/testutil"
)

func TestEngine_MonitoredFolders(t *testing.T) {
	t.Run("add, list, remove", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		te.FS.AddDirectory("/home/u/docs")
		te.FS.AddDirectory("/home/u/pics")

		for _, p := range []string{"/home/u/docs", "/home/u/pics", "/home/u/docs"} {
			if _, err := te.AddMonitoredFolder(p); err != nil {
				t.Fatalf("AddMonitoredFolder(%s) error = %v", p, err)
			}
		}

		got, err := te.ListMonitoredFolders()
		if err != nil {
			t.Fatalf("ListMonitoredFolders() error = %v", err)
		}
		if len(got) != 2 || got[0] != "/home/u/docs" || got[1] != "/home/u/pics" {
			t.Errorf("ListMonitoredFolders() = %v", got)
		}

		if err := te.RemoveMonitoredFolder("/home/u/docs"); err != nil {
			t.Fatalf("RemoveMonitoredFolder() error = %v", err)
		}
		got, _ = te.ListMonitoredFolders()
		if len(got) != 1 {
			t.Errorf("ListMonitoredFolders() after remove = %v", got)
		}
		if err := te.RemoveMonitoredFolder("/home/u/docs"); err == nil {
			t.Error("RemoveMonitoredFolder() of unmonitored folder expected error")
		}
	})

	t.Run("only existing directories can be added", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		te.FS.AddFile("/file.txt", []byte("x"))

		if _, err := te.AddMonitoredFolder("/missing"); err == nil {
			t.Error("AddMonitoredFolder(missing) expected error")
		}
		if _, err := te.AddMonitoredFolder("/file.txt"); err == nil {
			t.Error("AddMonitoredFolder(file) expected error")
		}
	})

	t.Run("removal works after the folder is gone", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})
		te.FS.AddDirectory("/gone")
		te.AddMonitoredFolder("/gone")
		te.FS.Remove("/gone")

		if err := te.RemoveMonitoredFolder("/gone"); err != nil {
			t.Errorf("RemoveMonitoredFolder() error = %v", err)
		}
	})
}

func TestEngine_AutoProtect(t *testing.T) {
	t.Run("sweeps existing folders and skips missing ones", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{Workers: 2})
		te.FS.AddFile("/a/1.txt", []byte("1"))
		te.FS.AddFile("/a/2.txt", []byte("2"))
		te.FS.AddFile("/b/3.txt", []byte("3"))
		te.FS.AddDirectory("/gone")
		for _, p := range []string{"/a", "/gone", "/b"} {
			if _, err := te.AddMonitoredFolder(p); err != nil {
				t.Fatal(err)
			}
		}
		te.FS.Remove("/gone")

		sweeps, err := te.AutoProtect(context.Background())
		if err != nil {
			t.Fatalf("AutoProtect() error = %v", err)
		}
		if len(sweeps) != 3 {
			t.Fatalf("got %d sweeps, want 3", len(sweeps))
		}
		if sweeps[0].Result == nil || sweeps[0].Result.Protected != 2 {
			t.Errorf("/a sweep = %+v, want 2 protected", sweeps[0])
		}
		if !sweeps[1].Skipped || sweeps[1].Err != nil {
			t.Errorf("/gone sweep = %+v, want skipped silently", sweeps[1])
		}
		if sweeps[2].Result == nil || sweeps[2].Result.Protected != 1 {
			t.Errorf("/b sweep = %+v, want 1 protected", sweeps[2])
		}
	})

	t.Run("one failing folder does not affect others", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{Workers: 1})
		te.FS.AddFile("/a/1.txt", []byte("1"))
		te.FS.AddFile("/b/2.txt", []byte("2"))
		te.AddMonitoredFolder("/a")
		te.AddMonitoredFolder("/b")
		te.FS.SetError("readdir", "/a", unix.EACCES)

		sweeps, err := te.AutoProtect(context.Background())
		if err != nil {
			t.Fatalf("AutoProtect() error = %v", err)
		}
		if sweeps[0].Err == nil {
			t.Error("/a sweep should report its enumeration failure")
		}
		if sweeps[1].Result == nil || sweeps[1].Result.Protected != 1 {
			t.Errorf("/b sweep = %+v, want 1 protected", sweeps[1])
		}
	})

	t.Run("no monitored folders", func(t *testing.T) {
		t.Parallel()
		te := testutil.NewTestEngine(t, hs.Options{})

		sweeps, err := te.AutoProtect(context.Background())
		if err != nil || len(sweeps) != 0 {
			t.Errorf("AutoProtect() = %v, %v; want nothing", sweeps, err)
		}
	})
}
