package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ManifestFileName is the file every plugin directory must contain.
const ManifestFileName = "plugin.toml"

// Capability names one class of editor influence a plugin may request.
type Capability string

const (
	// CapBufferWrite allows insert_text, delete_range, and replace_range
	// commands.
	CapBufferWrite Capability = "buffer_write"
	// CapOverlays allows add_overlay, remove_overlay, and clear_overlays.
	CapOverlays Capability = "overlays"
	// CapStatus allows set_status messages.
	CapStatus Capability = "status"
	// CapPopups allows show_popup and hide_popup.
	CapPopups Capability = "popups"
)

var knownCapabilities = map[Capability]bool{
	CapBufferWrite: true,
	CapOverlays:    true,
	CapStatus:      true,
	CapPopups:      true,
}

// Manifest is the declarative half of a plugin: identity, entry point,
// the hooks it subscribes to, and the capabilities it requests.
type Manifest struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
	Author      string `toml:"author"`

	// Entry is the Lua file executed at load, relative to the plugin
	// directory. Defaults to init.lua.
	Entry string `toml:"entry"`

	// Hooks lists the hook names this plugin handles. Each must have a
	// matching global function in the entry script: hook "after_insert"
	// calls function on_after_insert(payload).
	Hooks []string `toml:"hooks"`

	// Capabilities lists the command classes the plugin may use.
	Capabilities []Capability `toml:"capabilities"`

	dir string
}

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// LoadManifest reads and validates the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.dir = dir
	if m.Entry == "" {
		m.Entry = "init.lua"
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if !nameRe.MatchString(m.Name) {
		return fmt.Errorf("invalid plugin name %q", m.Name)
	}
	if m.Version == "" {
		return fmt.Errorf("plugin %s: version required", m.Name)
	}
	for _, c := range m.Capabilities {
		if !knownCapabilities[c] {
			return fmt.Errorf("plugin %s: unknown capability %q", m.Name, c)
		}
	}
	if filepath.IsAbs(m.Entry) || containsDotDot(m.Entry) {
		return fmt.Errorf("plugin %s: entry must be a plain relative path, got %q", m.Name, m.Entry)
	}
	return nil
}

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.dir, m.Entry)
}

// Dir returns the plugin directory.
func (m *Manifest) Dir() string { return m.dir }

// Allows reports whether the manifest declares cap.
func (m *Manifest) Allows(cap Capability) bool {
	for _, c := range m.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

func containsDotDot(p string) bool {
	for _, seg := range strings.FieldsFunc(p, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}
