package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Editor.ChunkThresholdBytes != 8*1024*1024 {
		t.Errorf("ChunkThresholdBytes = %d", s.Editor.ChunkThresholdBytes)
	}
	if s.Recovery.Interval.Std() != 2*time.Second {
		t.Errorf("Recovery.Interval = %s", s.Recovery.Interval)
	}
	if s.Watch.Debounce.Std() != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %s", s.Watch.Debounce)
	}
	if s.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q", s.Logging.Level)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	content := `
[editor]
chunk_threshold_bytes = 1024
tab_width = 8
auto_save_idle = "30s"

[recovery]
interval = "5s"

[watch]
debounce = "750ms"

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Editor.ChunkThresholdBytes != 1024 {
		t.Errorf("ChunkThresholdBytes = %d", s.Editor.ChunkThresholdBytes)
	}
	if s.Editor.TabWidth != 8 {
		t.Errorf("TabWidth = %d", s.Editor.TabWidth)
	}
	if s.Editor.AutoSaveIdle.Std() != 30*time.Second {
		t.Errorf("AutoSaveIdle = %s", s.Editor.AutoSaveIdle)
	}
	if s.Recovery.Interval.Std() != 5*time.Second {
		t.Errorf("Recovery.Interval = %s", s.Recovery.Interval)
	}
	if s.Watch.Debounce.Std() != 750*time.Millisecond {
		t.Errorf("Watch.Debounce = %s", s.Watch.Debounce)
	}
	if s.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", s.Logging.Level)
	}
}

func TestMissingFileIsNotAnError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err != nil {
		t.Fatalf("missing file: %v", err)
	}
}

func TestMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[editor\nbroken"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("[editor]\nchunk_threshold_bytes = 1024\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(envChunkThreshold, "4096")
	t.Setenv(envLogLevel, "error")
	t.Setenv(envWatchDebounce, "900ms")

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.Editor.ChunkThresholdBytes != 4096 {
		t.Errorf("ChunkThresholdBytes = %d, want env override 4096", s.Editor.ChunkThresholdBytes)
	}
	if s.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q", s.Logging.Level)
	}
	if s.Watch.Debounce.Std() != 900*time.Millisecond {
		t.Errorf("Watch.Debounce = %s", s.Watch.Debounce)
	}
}

func TestInvalidEnvValueFails(t *testing.T) {
	t.Setenv(envChunkThreshold, "not-a-number")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for malformed env value")
	}
}

func TestDebounceFloorEnforced(t *testing.T) {
	t.Setenv(envWatchDebounce, "50ms")
	s, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if s.Watch.Debounce.Std() != 500*time.Millisecond {
		t.Errorf("Watch.Debounce = %s, want floor of 500ms", s.Watch.Debounce)
	}
}

func TestValidateRejectsNonPositive(t *testing.T) {
	t.Setenv(envTabWidth, "0")
	if _, err := Load(""); err == nil {
		t.Fatal("expected tab_width validation error")
	}
}
