package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "consultai" {
		t.Errorf("expected Name=consultai, got %s", cfg.Name)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected Backend=sqlite, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Path == "" {
		t.Error("expected a default storage path")
	}
	if cfg.LLM.Model != "gemini-2.0-flash" {
		t.Errorf("expected Model=gemini-2.0-flash, got %s", cfg.LLM.Model)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CONSULTAI_BACKEND", "")
	t.Setenv("CONSULTAI_DB_PATH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("expected default backend, got %s", cfg.Storage.Backend)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CONSULTAI_BACKEND", "")
	t.Setenv("CONSULTAI_DB_PATH", "")

	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Storage.Backend = BackendMemory
	cfg.LLM.APIKey = "test-key"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Storage.Backend != BackendMemory {
		t.Errorf("expected Backend=memory, got %s", loaded.Storage.Backend)
	}
	if loaded.LLM.APIKey != "test-key" {
		t.Errorf("expected APIKey=test-key, got %s", loaded.LLM.APIKey)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("CONSULTAI_BACKEND", "memory")
	t.Setenv("CONSULTAI_DB_PATH", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("expected APIKey=env-key, got %s", cfg.LLM.APIKey)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("expected Backend=memory, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.Path != "/tmp/override.db" {
		t.Errorf("expected overridden path, got %s", cfg.Storage.Path)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	cfg.Storage.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown backend")
	}

	cfg.Storage.Backend = BackendSQLite
	cfg.Storage.Path = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sqlite without a path")
	}

	cfg = DefaultConfig()
	cfg.LLM.Model = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty model")
	}

	cfg = DefaultConfig()
	cfg.Storage.Backend = BackendMemory
	cfg.Storage.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory backend needs no path: %v", err)
	}
}
