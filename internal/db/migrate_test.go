package db

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestDiscoverMigrations_OrderAndFiltering(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"0002_add_indexes.sql",
		"0001_create_community_annotations.sql",
		"notes.txt",
		"abc_not_numeric.sql",
		"nounderscore.sql",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := discoverMigrations(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("discoverMigrations: %v", err)
	}

	if len(files) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(files))
	}
	if files[0].version != 1 || files[0].name != "0001_create_community_annotations.sql" {
		t.Errorf("unexpected first migration: %+v", files[0])
	}
	if files[1].version != 2 || files[1].name != "0002_add_indexes.sql" {
		t.Errorf("unexpected second migration: %+v", files[1])
	}
}

func TestDiscoverMigrations_MissingDir(t *testing.T) {
	if _, err := discoverMigrations("/nonexistent/migrations", zap.NewNop()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
