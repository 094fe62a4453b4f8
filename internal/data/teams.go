package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Team is one side in the teams gamemode.
type Team struct {
	Name  string `yaml:"name"`
	Color uint32 `yaml:"color"`
}

// TeamPalette is the ordered list of teams.
type TeamPalette struct {
	Teams []Team
}

// DefaultTeams is used when no palette file is configured.
func DefaultTeams() *TeamPalette {
	return &TeamPalette{Teams: []Team{
		{Name: "Red", Color: 0xFF0000},
		{Name: "Green", Color: 0x00FF00},
		{Name: "Blue", Color: 0x0000FF},
	}}
}

// LoadTeamPalette loads teams.yaml.
func LoadTeamPalette(path string) (*TeamPalette, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read team palette: %w", err)
	}
	return ParseTeamPalette(raw)
}

// ParseTeamPalette builds a palette from YAML bytes.
func ParseTeamPalette(raw []byte) (*TeamPalette, error) {
	var doc struct {
		Teams []Team `yaml:"teams"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse team palette: %w", err)
	}
	if len(doc.Teams) < 2 {
		return nil, fmt.Errorf("team palette: need at least 2 teams, got %d", len(doc.Teams))
	}
	for i, t := range doc.Teams {
		if t.Color > 0xFFFFFF {
			return nil, fmt.Errorf("team palette: team %d color %#x out of range", i, t.Color)
		}
	}
	return &TeamPalette{Teams: doc.Teams}, nil
}

func (p *TeamPalette) Count() int { return len(p.Teams) }
