// Package config loads the editing engine's settings from layered
// sources: compiled defaults, then an optional TOML settings file, then
// SCRIBE_-prefixed environment variables, each layer overriding the one
// below it. Only the settings the engine itself consumes live here:
// the chunked-mode threshold, tab width and auto-save idle delay, the
// recovery directory and cadence, the filesystem-watch debounce, and
// logging. Key bindings and UI theming belong to the outer program.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration that decodes from TOML/env strings like
// "500ms" or "2s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// Settings is the engine configuration after all layers are applied.
type Settings struct {
	// Editor holds buffer-level settings.
	Editor EditorSettings `toml:"editor"`
	// Recovery holds crash-recovery settings.
	Recovery RecoverySettings `toml:"recovery"`
	// Watch holds filesystem-watch settings.
	Watch WatchSettings `toml:"watch"`
	// Logging holds log output settings.
	Logging LoggingSettings `toml:"logging"`
}

// EditorSettings configures buffer behavior.
type EditorSettings struct {
	// ChunkThresholdBytes is the file size above which Open uses chunked
	// (lazy) mode instead of loading the whole file.
	ChunkThresholdBytes int64 `toml:"chunk_threshold_bytes"`
	// TabWidth is the default tab display width.
	TabWidth int `toml:"tab_width"`
	// AutoSaveIdle is how long the editor must sit idle with unsaved
	// changes before an auto-save fires. Zero disables auto-save.
	AutoSaveIdle Duration `toml:"auto_save_idle"`
}

// RecoverySettings configures the snapshot subsystem.
type RecoverySettings struct {
	// Dir is the recovery directory; empty selects the per-user default
	// under the state home.
	Dir string `toml:"dir"`
	// Interval is the snapshot cadence for buffers with pending writes.
	Interval Duration `toml:"interval"`
}

// WatchSettings configures the filesystem watcher feeding auto-revert.
type WatchSettings struct {
	// Debounce is the quiet window before a change notice fires. Values
	// below 500ms are raised to it: shorter windows double-fire on
	// filesystems with coarse mtime granularity.
	Debounce Duration `toml:"debounce"`
}

// LoggingSettings configures the process logger.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level"`
}

// Default returns the compiled-in baseline.
func Default() Settings {
	return Settings{
		Editor: EditorSettings{
			ChunkThresholdBytes: 8 * 1024 * 1024,
			TabWidth:            4,
		},
		Recovery: RecoverySettings{
			Dir:      defaultRecoveryDir(),
			Interval: Duration(2 * time.Second),
		},
		Watch: WatchSettings{
			Debounce: Duration(500 * time.Millisecond),
		},
		Logging: LoggingSettings{
			Level: "info",
		},
	}
}

func defaultRecoveryDir() string {
	base, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "scribe-recovery")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribe", "recovery")
	}
	return filepath.Join(base, ".local", "share", "scribe", "recovery")
}

// Load builds Settings from defaults, then the TOML file at path (a
// missing file is not an error), then the environment.
func Load(path string) (Settings, error) {
	s := Default()
	if err := applyFile(&s, path); err != nil {
		return s, err
	}
	if err := applyEnv(&s); err != nil {
		return s, err
	}
	return s.validate()
}

func applyFile(s *Settings, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading settings file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	return nil
}

// Environment overrides, one variable per leaf setting.
const (
	envChunkThreshold = "SCRIBE_CHUNK_THRESHOLD_BYTES"
	envTabWidth       = "SCRIBE_TAB_WIDTH"
	envAutoSaveIdle   = "SCRIBE_AUTO_SAVE_IDLE"
	envRecoveryDir    = "SCRIBE_RECOVERY_DIR"
	envRecoveryEvery  = "SCRIBE_RECOVERY_INTERVAL"
	envWatchDebounce  = "SCRIBE_WATCH_DEBOUNCE"
	envLogLevel       = "SCRIBE_LOG_LEVEL"
)

func applyEnv(s *Settings) error {
	if v, ok := os.LookupEnv(envChunkThreshold); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envChunkThreshold, err)
		}
		s.Editor.ChunkThresholdBytes = n
	}
	if v, ok := os.LookupEnv(envTabWidth); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envTabWidth, err)
		}
		s.Editor.TabWidth = n
	}
	if v, ok := os.LookupEnv(envRecoveryDir); ok {
		s.Recovery.Dir = v
	}
	if v, ok := os.LookupEnv(envLogLevel); ok {
		s.Logging.Level = v
	}
	for _, d := range []struct {
		env string
		dst *Duration
	}{
		{envAutoSaveIdle, &s.Editor.AutoSaveIdle},
		{envRecoveryEvery, &s.Recovery.Interval},
		{envWatchDebounce, &s.Watch.Debounce},
	} {
		v, ok := os.LookupEnv(d.env)
		if !ok {
			continue
		}
		dur, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", d.env, err)
		}
		*d.dst = Duration(dur)
	}
	return nil
}

func (s Settings) validate() (Settings, error) {
	if s.Editor.ChunkThresholdBytes <= 0 {
		return s, fmt.Errorf("chunk_threshold_bytes must be positive, got %d", s.Editor.ChunkThresholdBytes)
	}
	if s.Editor.TabWidth <= 0 {
		return s, fmt.Errorf("tab_width must be positive, got %d", s.Editor.TabWidth)
	}
	if s.Recovery.Interval <= 0 {
		return s, fmt.Errorf("recovery interval must be positive, got %s", s.Recovery.Interval)
	}
	if s.Watch.Debounce < Duration(500*time.Millisecond) {
		s.Watch.Debounce = Duration(500 * time.Millisecond)
	}
	return s, nil
}
