package gamemode

import (
	"github.com/cellarena/server/internal/data"
	"github.com/cellarena/server/internal/world"
)

// colorJitter is how far each channel of a member's color may stray from
// the team color.
const colorJitter = 24

// Teams splits players into fixed teams that cannot eat each other. The
// leaderboard is a pie of each team's share of the total mass.
type Teams struct {
	FFA
	palette *data.TeamPalette
}

func NewTeams(skins *data.SkinTable, palette *data.TeamPalette) *Teams {
	return &Teams{FFA: FFA{skins: skins}, palette: palette}
}

func (m *Teams) ID() uint32   { return IDTeams }
func (m *Teams) Name() string { return "Teams" }

// OnPlayerJoin puts the player on the smallest team, lowest index first.
func (m *Teams) OnPlayerJoin(w *world.World, p *world.Player) {
	counts := make([]int, m.palette.Count())
	for _, q := range w.Players() {
		if q != p && q.Team >= 0 && q.Team < len(counts) {
			counts[q.Team]++
		}
	}
	best := 0
	for i, n := range counts {
		if n < counts[best] {
			best = i
		}
	}
	p.Team = best
}

func (m *Teams) OnPlayerSpawnRequest(w *world.World, p *world.Player, name string) {
	if p.State == world.StatePlaying {
		return
	}
	p.CellName, p.CellSkin = ParseName(name, w.Config(), m.skins)
	p.CellColor = m.memberColor(w, p.Team)
	world.DefaultSpawn(w, p)
}

func (m *Teams) memberColor(w *world.World, team int) uint32 {
	if team < 0 || team >= m.palette.Count() {
		return w.RandomColor()
	}
	base := m.palette.Teams[team].Color
	rng := w.Rand()
	var out uint32
	for shift := 16; shift >= 0; shift -= 8 {
		ch := int(base>>shift&0xFF) + rng.Intn(2*colorJitter+1) - colorJitter
		ch = max(0, min(255, ch))
		out |= uint32(ch) << shift
	}
	return out
}

func (m *Teams) CompileLeaderboard(w *world.World) world.Leaderboard {
	mass := make([]float64, m.palette.Count())
	total := 0.0
	for _, p := range w.Players() {
		if p.State != world.StatePlaying || p.Team < 0 || p.Team >= len(mass) {
			continue
		}
		mass[p.Team] += p.Score
		total += p.Score
	}
	lb := world.Leaderboard{Kind: world.LeaderboardPie, Slices: make([]world.PieSlice, len(mass))}
	for i, t := range m.palette.Teams {
		weight := 1 / float64(len(mass))
		if total > 0 {
			weight = mass[i] / total
		}
		lb.Slices[i] = world.PieSlice{Weight: float32(weight), Color: t.Color}
	}
	return lb
}
