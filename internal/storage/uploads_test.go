package storage

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"fliplister/internal/config"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(&config.StorageConfig{
		Dir:           t.TempDir(),
		BaseURL:       "/uploads",
		RetentionDays: 7,
	}, slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})))
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestManager_SaveAndDelete(t *testing.T) {
	m := newTestManager(t)

	url, err := m.Save("photo.JPG", strings.NewReader("fake image bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/") {
		t.Fatalf("unexpected url %q", url)
	}
	if strings.Contains(url, "photo") {
		t.Errorf("original file name must not leak into url: %q", url)
	}
	if !strings.HasSuffix(url, ".jpg") {
		t.Errorf("extension should be preserved lowercase: %q", url)
	}

	rel, ok := m.relPath(url)
	if !ok {
		t.Fatalf("relPath rejected own url %q", url)
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), rel)); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	if err := m.Delete(url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(m.Dir(), rel)); !os.IsNotExist(err) {
		t.Errorf("file should be gone after delete")
	}
}

func TestManager_RejectsUnknownExtension(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Save("malware.exe", strings.NewReader("nope")); err == nil {
		t.Fatal("expected error for disallowed extension")
	}
}

func TestManager_RelPathBlocksTraversal(t *testing.T) {
	m := newTestManager(t)

	if _, ok := m.relPath("/uploads/../etc/passwd"); ok {
		t.Error("traversal path should be rejected")
	}
	if _, ok := m.relPath("/elsewhere/a.jpg"); ok {
		t.Error("foreign prefix should be rejected")
	}
}

func TestManager_SweepRemovesExpired(t *testing.T) {
	m := newTestManager(t)

	url, err := m.Save("old.png", strings.NewReader("stale"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	rel, _ := m.relPath(url)
	full := filepath.Join(m.Dir(), rel)

	old := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(full, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := m.Sweep()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Error("expired file should be removed")
	}
}
