package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestIsArtifact(t *testing.T) {
	cases := map[string]bool{
		"layout.json":     true,
		"RUN.JSON":        true,
		"capture.Json":    true,
		"notes.txt":       false,
		"layout.json.tmp": false,
		"json":            false,
	}
	for path, want := range cases {
		if got := isArtifact(path); got != want {
			t.Errorf("isArtifact(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestWatcherEmitsStableFile(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "capture.json")
	if err := os.WriteFile(path, []byte(`{"id": "x"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		if ev.Path != path {
			t.Errorf("expected event for %s, got %s", path, ev.Path)
		}
		if ev.Size != int64(len(`{"id": "x"}`)) {
			t.Errorf("unexpected size %d", ev.Size)
		}
	case err := <-w.Errors():
		t.Fatalf("watcher error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stable-file event")
	}
}

func TestWatcherIgnoresNonArtifacts(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event for %s", ev.Path)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "drops")
	w, err := New(dir, 50*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("watch directory should be created: %v", err)
	}
}
