package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_PicksUpNewFile(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir, []string{"*.csv"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	got := make(chan string, 1)
	w.OnFile = func(path string) error {
		got <- path
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	// Give the watch loop a moment to start.
	time.Sleep(50 * time.Millisecond)

	path := filepath.Join(dir, "drop.csv")
	if err := os.WriteFile(path, []byte("a_b\nA B\n1\n"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case p := <-got:
		if filepath.Base(p) != "drop.csv" {
			t.Errorf("unexpected path %q", p)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("file was not picked up")
	}
}

func TestWatcher_IgnoresNonMatchingFiles(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWatcher(dir, []string{"*.csv"}, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	defer w.Close()

	got := make(chan string, 1)
	w.OnFile = func(path string) error {
		got <- path
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(50 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case p := <-got:
		t.Errorf("non-matching file delivered: %q", p)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_Matches(t *testing.T) {
	w := &Watcher{patterns: []string{"*.csv", "*.CSV"}}
	if !w.matches("/drop/in.csv") {
		t.Error("*.csv should match")
	}
	if w.matches("/drop/in.json") {
		t.Error("*.json should not match")
	}

	any := &Watcher{}
	if !any.matches("/drop/whatever.bin") {
		t.Error("empty pattern list should match everything")
	}
}
