package migrations

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLatestVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_init.up.sql",
		"000001_init.down.sql",
		"000012_shot_index.up.sql",
		"README.md",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "000099_dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	if got := LatestVersion(dir); got != 12 {
		t.Errorf("LatestVersion = %d, want 12", got)
	}
	if got := LatestVersion(filepath.Join(dir, "missing")); got != 0 {
		t.Errorf("missing dir = %d, want 0", got)
	}
}

func TestRepositoryMigrations(t *testing.T) {
	if got := LatestVersion(filepath.Join("..", "..", DefaultDir)); got < 1 {
		t.Errorf("expected at least one migration in %s", DefaultDir)
	}
}

func TestRunNeedsURL(t *testing.T) {
	if err := Run("", ""); err == nil {
		t.Error("expected an error for an empty URL")
	}
}
