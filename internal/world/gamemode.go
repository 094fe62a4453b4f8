package world

// Gamemode is the pluggable policy a world consults for joining, spawning,
// ranking and decay. Every method runs on the game loop goroutine.
type Gamemode interface {
	ID() uint32
	Name() string
	OnPlayerJoin(w *World, p *Player)
	OnPlayerSpawnRequest(w *World, p *Player, name string)
	CompileLeaderboard(w *World) Leaderboard
	CanJoinWorld(w *World) bool
	OnNewCell(w *World, c *Cell)
	OnCellRemove(w *World, c *Cell)
	DecayMult(w *World, c *Cell) float64
}

// LeaderboardKind selects how a leaderboard is drawn.
type LeaderboardKind uint8

const (
	LeaderboardText LeaderboardKind = iota
	LeaderboardFFA
	LeaderboardPie
)

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	PlayerID uint32
	Name     string
	Score    float64
}

// PieSlice is one team's share of the total mass.
type PieSlice struct {
	Weight float32
	Color  uint32
}

// Leaderboard is the compiled ranking for one world. Only the field matching
// Kind is populated.
type Leaderboard struct {
	Kind    LeaderboardKind
	Lines   []string
	Entries []LeaderboardEntry
	Slices  []PieSlice
}

// RankedLeaderboard builds an FFA board from the current standings.
func (w *World) RankedLeaderboard() Leaderboard {
	standings := w.Standings()
	lb := Leaderboard{Kind: LeaderboardFFA, Entries: make([]LeaderboardEntry, 0, len(standings))}
	for _, p := range standings {
		lb.Entries = append(lb.Entries, LeaderboardEntry{PlayerID: p.ID, Name: p.CellName, Score: p.Score})
	}
	return lb
}

// Leaderboard returns the last compiled leaderboard and whether it was
// compiled during the current tick.
func (w *World) Leaderboard() (Leaderboard, bool) {
	return w.leaderboard, w.leaderboardFresh
}

// DefaultSpawn is the stock spawn policy: pick a safe point, reuse ejected
// mass when possible and give the player a cell of playerSpawnSize.
func DefaultSpawn(w *World, p *Player) *Cell {
	size := w.cfg.PlayerSpawnSize
	return w.SpawnPlayer(p, w.PlayerSpawn(size), size)
}
