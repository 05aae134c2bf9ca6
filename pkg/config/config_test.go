package config

import (
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Prefix != "" || cfg.RepoHost != "" {
		t.Fatalf("expected zero-value default config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := Path(t.TempDir())
	cfg := &Config{Prefix: "/srv/home/me/.lilith", RepoBranch: "latest", FullDeps: true}

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Prefix != cfg.Prefix || loaded.RepoBranch != cfg.RepoBranch || loaded.FullDeps != cfg.FullDeps {
		t.Fatalf("round-tripped config = %+v, want %+v", loaded, cfg)
	}
}
