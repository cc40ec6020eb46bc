package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != Default().Listen {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("default config not written: %v", err)
	}

	// Second load reads the file it just wrote.
	again, err := Load(path)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if *again != *cfg {
		t.Errorf("reloaded config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: \"0.0.0.0:9000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.HolidayFeedURL == "" || cfg.DBPath == "" {
		t.Errorf("defaults not filled: %+v", cfg)
	}
}
