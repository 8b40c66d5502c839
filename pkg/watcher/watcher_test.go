package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitForChange(t *testing.T, w *Watcher, timeout time.Duration) bool {
	t.Helper()
	select {
	case <-w.Changed():
		return true
	case <-time.After(timeout):
		return false
	}
}

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()
	w, err := New(path, WithDebounce(30*time.Millisecond))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, path)

	if err := os.WriteFile(path, []byte(`[{"id":1,"name":"A"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if !waitForChange(t, w, 2*time.Second) {
		t.Fatal("expected a change notification")
	}
}

// TestWatcherCoalescesBursts verifies a quick series of writes produces a
// single notification.
func TestWatcherCoalescesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, path)

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if !waitForChange(t, w, 2*time.Second) {
		t.Fatal("expected a change notification")
	}
	if waitForChange(t, w, 150*time.Millisecond) {
		t.Error("burst should produce one notification")
	}
}

func TestWatcherSeesAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, path)

	tmp := filepath.Join(dir, ".companies-tmp")
	if err := os.WriteFile(tmp, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !waitForChange(t, w, 2*time.Second) {
		t.Fatal("expected a change notification after rename")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.json")
	if err := os.WriteFile(path, []byte("[]"), 0644); err != nil {
		t.Fatal(err)
	}
	w := startWatcher(t, path)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if waitForChange(t, w, 150*time.Millisecond) {
		t.Error("unrelated file should not trigger a notification")
	}
}

func TestWatcherStartMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "companies.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if err := w.Start(); err == nil {
		t.Error("expected error watching a missing directory")
	}
}
