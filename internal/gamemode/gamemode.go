// Package gamemode holds the world policies: how players join and spawn,
// how they are ranked and how fast their cells decay.
package gamemode

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/data"
	"github.com/cellarena/server/internal/scripting"
	"github.com/cellarena/server/internal/world"
)

// Gamemode ids sent to legacy clients with the world bounds.
const (
	IDFFA   uint32 = 0
	IDTeams uint32 = 1
)

// New builds the configured gamemode. A non-nil engine wraps it with the
// script hooks.
func New(cfg config.GamemodeConfig, skins *data.SkinTable, teams *data.TeamPalette, engine *scripting.Engine) (world.Gamemode, error) {
	var gm world.Gamemode
	switch strings.ToLower(cfg.Mode) {
	case "", "ffa":
		gm = NewFFA(skins)
	case "teams":
		if teams == nil {
			teams = data.DefaultTeams()
		}
		gm = NewTeams(skins, teams)
	default:
		return nil, fmt.Errorf("unknown gamemode %q", cfg.Mode)
	}
	if engine != nil {
		gm = NewScripted(gm, engine)
	}
	return gm, nil
}

// ParseName splits a requested name into display name and skin. A
// "<skin>" prefix selects a skin when the world allows it and the skin is
// known; the prefix is stripped either way. The name is cut to the
// configured length.
func ParseName(raw string, cfg *config.WorldConfig, skins *data.SkinTable) (name, skin string) {
	name = raw
	if cfg.PlayerAllowSkinInName && strings.HasPrefix(name, "<") {
		if end := strings.IndexByte(name, '>'); end > 0 {
			if s, ok := skins.Lookup(name[1:end]); ok {
				skin = s
			}
			name = name[end+1:]
		}
	}
	if limit := cfg.PlayerMaxNameLength; limit > 0 && utf8.RuneCountInString(name) > limit {
		name = string([]rune(name)[:limit])
	}
	return name, skin
}

// canJoin is shared by every mode: the world takes players up to its limit.
func canJoin(w *world.World) bool {
	limit := w.Config().MaxPlayers
	return limit <= 0 || len(w.Players()) < limit
}
