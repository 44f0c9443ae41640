package monitor_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"hs-go/internal/hs"
	"hs-go/internal/monitor"
	"hs-go/internal/testutil"
)

type fakeEngine struct {
	mu        sync.Mutex
	skipDir   string
	protected map[string]bool
	folders   []string
	calls     chan string
}

func newFakeEngine(skipDir string) *fakeEngine {
	return &fakeEngine{
		skipDir:   skipDir,
		protected: make(map[string]bool),
		calls:     make(chan string, 64),
	}
}

func (f *fakeEngine) Protect(path string) (*hs.ProtectResult, error) {
	f.mu.Lock()
	already := f.protected[path]
	f.protected[path] = true
	f.mu.Unlock()
	f.calls <- "protect:" + path
	return &hs.ProtectResult{OriginalPath: path, AlreadyProtected: already}, nil
}

func (f *fakeEngine) ProtectFolder(_ context.Context, folder string, _ hs.ProgressFunc) (*hs.SweepResult, error) {
	f.mu.Lock()
	f.folders = append(f.folders, folder)
	f.mu.Unlock()
	f.calls <- "folder:" + folder
	return &hs.SweepResult{Root: folder}, nil
}

func (f *fakeEngine) ShouldSkip(_, path string) bool {
	return f.skipDir != "" && (path == f.skipDir || strings.HasPrefix(path, f.skipDir+string(filepath.Separator)))
}

// waitFor drains calls until want shows up or the timeout expires.
func waitFor(t *testing.T, calls <-chan string, want string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-calls:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func startWatcher(t *testing.T, engine monitor.Protector, root string) *monitor.Watcher {
	t.Helper()
	w, err := monitor.NewWatcher(engine, hs.NewNopLogger(), testutil.FixedClock())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Add(root); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, nil) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return after cancel")
		}
	})
	return w
}

func TestWatcher_ProtectsNewFile(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	engine := newFakeEngine("")
	startWatcher(t, engine, root)

	path := filepath.Join(root, "new.txt")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, engine.calls, "protect:"+path)
}

func TestWatcher_SweepsNewDirectory(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	engine := newFakeEngine("")
	w := startWatcher(t, engine, root)

	dir := filepath.Join(root, "sub")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, engine.calls, "folder:"+dir)

	if got := w.Watched(); got != 2 {
		t.Errorf("Watched() = %d, want 2", got)
	}

	// Files in the new directory are picked up by its watch.
	path := filepath.Join(dir, "inner.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, engine.calls, "protect:"+path)
}

func TestWatcher_SkipsBackupStore(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	vault := filepath.Join(root, "backups")
	if err := os.MkdirAll(filepath.Join(vault, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "docs"), 0755); err != nil {
		t.Fatal(err)
	}

	engine := newFakeEngine(vault)
	w := startWatcher(t, engine, root)

	// root and docs only.
	if got := w.Watched(); got != 2 {
		t.Errorf("Watched() = %d, want 2", got)
	}

	if err := os.WriteFile(filepath.Join(vault, "artifact"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(root, "docs", "marker.txt")
	if err := os.WriteFile(marker, []byte("m"), 0644); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case got := <-engine.calls:
			if strings.Contains(got, vault) {
				t.Fatalf("backup store file was handled: %s", got)
			}
			if got == "protect:"+marker {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for marker")
		}
	}
}

func TestWatcher_AddMissingRoot(t *testing.T) {
	w, err := monitor.NewWatcher(newFakeEngine(""), hs.NewNopLogger(), testutil.FixedClock())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Add() expected error for missing folder")
	}
}
