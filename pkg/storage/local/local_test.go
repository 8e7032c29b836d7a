package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreFileCopiesAndNamesResult(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()

	src := filepath.Join(srcDir, "backup.db")
	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	backend := New(dstDir)
	uri, err := backend.StoreFile(context.Background(), src, "renamed.db")
	if err != nil {
		t.Fatalf("StoreFile: %v", err)
	}
	if uri != filepath.Join(dstDir, "renamed.db") {
		t.Fatalf("unexpected uri: %s", uri)
	}
	if _, err := os.Stat(uri); err != nil {
		t.Fatalf("expected copied file to exist: %v", err)
	}
}

func TestStoreFileMissingSource(t *testing.T) {
	backend := New(t.TempDir())
	if _, err := backend.StoreFile(context.Background(), "/nonexistent/file.db", ""); err == nil {
		t.Fatal("expected error for missing source file")
	}
}
