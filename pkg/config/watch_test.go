package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchPushesReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cid_type: small\nmax_cid: 15\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	defer close(done)

	updates, err := Watch(path, done)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("cid_type: large\nmax_cid: 100\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg, ok := <-updates:
		if !ok {
			t.Fatal("updates channel closed before delivering a reload")
		}
		if cfg.CIDType != "large" || cfg.MaxCID != 100 {
			t.Errorf("reloaded config = %+v, want cid_type=large max_cid=100", cfg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a config reload after a file write")
	}
}

func TestWatchStopsOnDoneClose(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("cid_type: small\nmax_cid: 15\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	updates, err := Watch(path, done)
	if err != nil {
		t.Fatal(err)
	}
	close(done)

	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("expected the updates channel to close after done is closed")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for updates channel to close")
	}
}

func TestWatchRejectsMissingFile(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	if _, err := Watch("/nonexistent/path/config.yaml", done); err == nil {
		t.Fatal("expected an error watching a nonexistent file")
	}
}
