package overrides

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "overrides.toml", `
[[override]]
id = 100
name = "U.N.オーエンは彼女なのか？"
link = "https://open.spotify.com/track/owen"

[[override]]
id = 200
link = " spotify:track:septet "
`)

	table, err := Load(path, zap.NewNop())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", table.Len())
	}

	owen, ok := table.Lookup(100)
	if !ok || owen.Name != "U.N.オーエンは彼女なのか？" || owen.Link != "https://open.spotify.com/track/owen" {
		t.Errorf("unexpected entry for 100: %#v, %v", owen, ok)
	}
	septet, ok := table.Lookup(200)
	if !ok || septet.Link != "spotify:track:septet" || septet.Name != "" {
		t.Errorf("expected trimmed link without name, got %#v", septet)
	}
	if _, ok := table.Lookup(300); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestLoadJSONForms(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"Array", `[{"id": 100, "link": "spotify:track:owen"}]`},
		{"Wrapper", "\xEF\xBB\xBF" + `{"overrides": [{"id": 100, "link": "spotify:track:owen"}]}`},
		{"Map", `{"100": "spotify:track:owen"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Load(writeFile(t, "overrides.json", tt.contents), nil)
			if err != nil {
				t.Fatalf("Load returned error: %v", err)
			}
			link, ok := table.Lookup(100)
			if !ok || link.Link != "spotify:track:owen" {
				t.Errorf("unexpected lookup result %#v, %v", link, ok)
			}
		})
	}
}

func TestLoadMissingAndEmpty(t *testing.T) {
	table, err := Load("", nil)
	if err != nil || table.Len() != 0 {
		t.Fatalf("expected empty table for empty path, got %v, %v", table, err)
	}

	table, err = Load(filepath.Join(t.TempDir(), "absent.toml"), zap.NewNop())
	if err != nil || table.Len() != 0 {
		t.Fatalf("expected empty table for missing file, got %v, %v", table, err)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{"Broken TOML", "o.toml", "[[override]\nid = 1"},
		{"Missing link", "o.toml", "[[override]]\nid = 1\n"},
		{"Zero id", "o.json", `[{"id": 0, "link": "x"}]`},
		{"Bad map key", "o.json", `{"abc": "x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.file, tt.contents), nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNilTable(t *testing.T) {
	var table *Table
	if _, ok := table.Lookup(1); ok {
		t.Error("expected nil table to miss")
	}
	if table.Len() != 0 {
		t.Error("expected nil table to be empty")
	}
}
