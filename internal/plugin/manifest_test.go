package plugin

import (
	"os"
	"path/filepath"
	"testing"
)

func writePlugin(t *testing.T, manifest, script string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(manifest), 0o600); err != nil {
		t.Fatal(err)
	}
	if script != "" {
		if err := os.WriteFile(filepath.Join(dir, "init.lua"), []byte(script), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadManifest(t *testing.T) {
	dir := writePlugin(t, `
name = "autobrackets"
version = "0.3.1"
description = "closes brackets as you type"
hooks = ["after_insert"]
capabilities = ["buffer_write", "status"]
`, "")

	m, err := LoadManifest(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "autobrackets" || m.Version != "0.3.1" {
		t.Errorf("identity = %s %s", m.Name, m.Version)
	}
	if m.Entry != "init.lua" {
		t.Errorf("Entry = %q, want default init.lua", m.Entry)
	}
	if !m.Allows(CapBufferWrite) || !m.Allows(CapStatus) {
		t.Error("declared capabilities not granted")
	}
	if m.Allows(CapPopups) {
		t.Error("undeclared capability granted")
	}
}

func TestLoadManifestRejections(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{"bad name", "name = \"Bad Name!\"\nversion = \"1.0.0\"\n"},
		{"missing version", "name = \"ok\"\n"},
		{"unknown capability", "name = \"ok\"\nversion = \"1.0.0\"\ncapabilities = [\"root_shell\"]\n"},
		{"entry escape", "name = \"ok\"\nversion = \"1.0.0\"\nentry = \"../../outside.lua\"\n"},
		{"not toml", "{\"name\": \"json\"}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writePlugin(t, tt.manifest, "")
			if _, err := LoadManifest(dir); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := LoadManifest(t.TempDir()); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}
