package gamemode

import (
	"github.com/cellarena/server/internal/scripting"
	"github.com/cellarena/server/internal/world"
)

// Scripted runs an inner gamemode with Lua hooks for name filtering and
// decay.
type Scripted struct {
	world.Gamemode
	engine *scripting.Engine
}

func NewScripted(inner world.Gamemode, engine *scripting.Engine) *Scripted {
	return &Scripted{Gamemode: inner, engine: engine}
}

func (s *Scripted) OnPlayerSpawnRequest(w *world.World, p *world.Player, name string) {
	s.Gamemode.OnPlayerSpawnRequest(w, p, s.engine.FilterName(name))
}

func (s *Scripted) DecayMult(w *world.World, c *world.Cell) float64 {
	in := scripting.DecayInput{
		Size: c.Size(),
		Team: world.NoTeam,
		Tick: w.Tick(),
		Base: s.Gamemode.DecayMult(w, c),
	}
	if c.Owner != nil {
		in.OwnerCells = len(c.Owner.Cells)
		in.Team = c.Owner.Team
	}
	return s.engine.DecayMult(in)
}
