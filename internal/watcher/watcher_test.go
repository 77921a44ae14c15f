package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "project.yaml")
	if err := os.WriteFile(path, []byte("networks: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	changed := make(chan struct{}, 16)
	w, err := New(path, func() { changed <- struct{}{} }, nil)
	if err != nil {
		t.Fatal(err)
	}
	w.SetDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// other files are ignored
	if err = os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-changed:
		t.Fatal("change reported for another file")
	case <-time.After(200 * time.Millisecond):
	}

	// several writes in a row are reported at least once
	for i := 0; i < 3; i++ {
		if err = os.WriteFile(path, []byte("networks: []\n# edit\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("change not reported")
	}

	cancel()
	if err = <-done; err != context.Canceled {
		t.Fatalf("Watch() = %v, want context.Canceled", err)
	}
}
