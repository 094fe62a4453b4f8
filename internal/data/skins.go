package data

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SkinEntry is one selectable skin.
type SkinEntry struct {
	Name string `yaml:"name"`
	Note string `yaml:"note"`
}

// SkinTable is the set of skins a player may request with a "<skin>"
// name prefix. Lookups ignore case.
type SkinTable struct {
	skins map[string]*SkinEntry
}

// LoadSkinTable loads skins.yaml.
func LoadSkinTable(path string) (*SkinTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read skin list: %w", err)
	}
	return ParseSkinTable(raw)
}

// ParseSkinTable builds a table from YAML bytes.
func ParseSkinTable(raw []byte) (*SkinTable, error) {
	var doc struct {
		Skins []SkinEntry `yaml:"skins"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse skin list: %w", err)
	}
	t := &SkinTable{skins: make(map[string]*SkinEntry, len(doc.Skins))}
	for i := range doc.Skins {
		e := &doc.Skins[i]
		if e.Name == "" {
			return nil, fmt.Errorf("skin list: entry %d has no name", i)
		}
		t.skins[strings.ToLower(e.Name)] = e
	}
	return t, nil
}

// Lookup returns the canonical skin name, or false when the skin is unknown.
func (t *SkinTable) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	e, ok := t.skins[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return e.Name, true
}

// Count returns the total number of skins loaded.
func (t *SkinTable) Count() int {
	if t == nil {
		return 0
	}
	return len(t.skins)
}
