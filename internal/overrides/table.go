// Package overrides loads the curated table of links for well-known originals.
package overrides

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"tohoinfo/internal/core"
)

// Entry pins a TouhouDB song id to a curated link. Name is optional and is
// shown when an arrangement resolves through the entry.
type Entry struct {
	ID   int64  `json:"id" toml:"id"`
	Name string `json:"name,omitempty" toml:"name,omitempty"`
	Link string `json:"link" toml:"link"`
}

// Table is an immutable id to link mapping. The zero value and a nil *Table are empty.
type Table struct {
	entries map[int64]core.OverrideLink
}

var _ core.OverrideTable = (*Table)(nil)

// New builds a table from entries. Later entries win over earlier ones with the same id.
func New(entries []Entry) (*Table, error) {
	table := &Table{entries: make(map[int64]core.OverrideLink, len(entries))}
	for i, entry := range entries {
		link := strings.TrimSpace(entry.Link)
		if entry.ID <= 0 {
			return nil, fmt.Errorf("override %d: invalid id %d", i, entry.ID)
		}
		if link == "" {
			return nil, fmt.Errorf("override %d (id %d): link is required", i, entry.ID)
		}
		table.entries[entry.ID] = core.OverrideLink{Name: strings.TrimSpace(entry.Name), Link: link}
	}
	return table, nil
}

// Load reads a TOML (".toml") or JSON override file. An empty path or a missing
// file yields an empty table.
func Load(path string, logger *zap.Logger) (*Table, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return &Table{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("Override file not found, continuing without overrides", zap.String("path", path))
			return &Table{}, nil
		}
		return nil, fmt.Errorf("read overrides: %w", err)
	}

	var entries []Entry
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		entries, err = parseTOML(data)
	} else {
		entries, err = parseJSON(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse overrides %s: %w", path, err)
	}

	table, err := New(entries)
	if err != nil {
		return nil, fmt.Errorf("load overrides %s: %w", path, err)
	}
	logger.Info("Loaded override table", zap.String("path", path), zap.Int("count", table.Len()))
	return table, nil
}

// Lookup returns the curated link for a song id.
func (t *Table) Lookup(id int64) (core.OverrideLink, bool) {
	if t == nil {
		return core.OverrideLink{}, false
	}
	link, ok := t.entries[id]
	return link, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func parseTOML(data []byte) ([]Entry, error) {
	var doc struct {
		Override []Entry `toml:"override"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Override, nil
}

// parseJSON accepts an array of entries, {"overrides": [...]}, or a plain
// {"<id>": "<link>"} object.
func parseJSON(data []byte) ([]Entry, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var wrapper struct {
		Overrides []Entry `json:"overrides"`
	}
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Overrides != nil {
		return wrapper.Overrides, nil
	}

	var links map[string]string
	if err := json.Unmarshal(data, &links); err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(links))
	for key, link := range links {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid song id %q: %w", key, err)
		}
		entries = append(entries, Entry{ID: id, Link: link})
	}
	return entries, nil
}
