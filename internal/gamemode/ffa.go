package gamemode

import (
	"github.com/cellarena/server/internal/data"
	"github.com/cellarena/server/internal/world"
)

// FFA is every player for themselves, ranked by mass.
type FFA struct {
	skins *data.SkinTable
}

func NewFFA(skins *data.SkinTable) *FFA {
	return &FFA{skins: skins}
}

func (m *FFA) ID() uint32                                          { return IDFFA }
func (m *FFA) Name() string                                        { return "FFA" }
func (m *FFA) OnPlayerJoin(*world.World, *world.Player)            {}
func (m *FFA) CanJoinWorld(w *world.World) bool                    { return canJoin(w) }
func (m *FFA) OnNewCell(*world.World, *world.Cell)                 {}
func (m *FFA) OnCellRemove(*world.World, *world.Cell)              {}
func (m *FFA) CompileLeaderboard(w *world.World) world.Leaderboard { return w.RankedLeaderboard() }

func (m *FFA) OnPlayerSpawnRequest(w *world.World, p *world.Player, name string) {
	if p.State == world.StatePlaying {
		return
	}
	p.CellName, p.CellSkin = ParseName(name, w.Config(), m.skins)
	p.CellColor = w.RandomColor()
	world.DefaultSpawn(w, p)
}

func (m *FFA) DecayMult(w *world.World, _ *world.Cell) float64 {
	return w.Config().PlayerDecayMult
}
