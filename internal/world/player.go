package world

import (
	"math"
	"sort"
)

// State is a player's coarse lifecycle state.
type State uint8

const (
	StateIdle State = iota
	StatePlaying
	StateSpectating
	StateRoaming
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateSpectating:
		return "spectating"
	case StateRoaming:
		return "roaming"
	}
	return "unknown"
}

// NoTeam marks a player outside any team.
const NoTeam = -1

// ViewArea is the rectangle a player observes: center, half extents and the
// zoom scale sent to the client.
type ViewArea struct {
	X, Y  float64
	W, H  float64
	Scale float64
}

// Input is the staged per-tick input of one player. Network code fills it
// through the Stage methods; the input phase consumes it.
type Input struct {
	MouseX, MouseY float64

	SplitAttempts int
	EjectAttempts int
	lastEjectTick uint64
	ejectedOnce   bool

	PressingQ  bool
	processedQ bool

	SpawnRequested    bool
	SpawnName         string
	SpectateRequested bool
}

type seen struct {
	cell    *Cell
	version uint64
}

// Player is one participant. It may own zero or more player cells.
// Accessed only from the game loop goroutine.
type Player struct {
	ID        uint32
	SessionID uint64
	Team      int
	State     State

	// Cell appearance chosen at spawn.
	CellName  string
	CellSkin  string
	CellColor uint32

	Cells []*Cell
	View  ViewArea
	Input Input

	Score     float64 // total mass while playing
	MaxScore  float64 // best score of the current life
	JoinTick  uint64
	SpawnTick uint64

	Disconnected   bool
	DisconnectTick uint64
	removed        bool

	newCells    []uint32
	visible     map[uint32]seen
	lastVisible map[uint32]seen
}

// AddPlayer creates a player in the Idle state and hands it to the gamemode.
func (w *World) AddPlayer(sessionID uint64) *Player {
	w.nextPlayerID++
	p := &Player{
		ID:        w.nextPlayerID,
		SessionID: sessionID,
		Team:      NoTeam,
		JoinTick:  w.tick,
		View: ViewArea{
			X: w.border.X, Y: w.border.Y, Scale: 1,
			W: 1920 / 2 * w.cfg.PlayerViewScaleMult,
			H: 1080 / 2 * w.cfg.PlayerViewScaleMult,
		},
		visible:     make(map[uint32]seen, 64),
		lastVisible: make(map[uint32]seen, 64),
	}
	p.Input.MouseX, p.Input.MouseY = w.border.X, w.border.Y
	w.players = append(w.players, p)
	w.gm.OnPlayerJoin(w, p)
	return p
}

// RemovePlayer destroys p and every cell it owns.
func (w *World) RemovePlayer(p *Player) {
	if p.removed {
		return
	}
	wasPlaying := p.State == StatePlaying
	p.State = StateIdle
	p.removed = true
	for _, c := range p.Cells {
		w.RemoveCell(c)
	}
	for i, q := range w.players {
		if q == p {
			w.players = append(w.players[:i], w.players[i+1:]...)
			break
		}
	}
	if w.largest == p {
		w.largest = nil
	}
	w.emitPlayerLeft(p, wasPlaying)
}

// Disconnect marks p as gone. Its cells stay in the world until the
// existence check disposes of them.
func (w *World) Disconnect(p *Player) {
	if p.Disconnected {
		return
	}
	p.Disconnected = true
	p.DisconnectTick = w.tick
}

// Player returns the live player with the given id, or nil.
func (w *World) Player(id uint32) *Player {
	for _, p := range w.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Removed reports whether the player has been destroyed.
func (p *Player) Removed() bool { return p.removed }

// StageMouse records the latest mouse target.
func (p *Player) StageMouse(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return
	}
	p.Input.MouseX, p.Input.MouseY = x, y
}

func (p *Player) StageSplit(n int) {
	p.Input.SplitAttempts = min(p.Input.SplitAttempts+n, 255)
}

func (p *Player) StageEject(n int) {
	p.Input.EjectAttempts = min(p.Input.EjectAttempts+n, 255)
}

func (p *Player) StageQ(pressed bool) { p.Input.PressingQ = pressed }

func (p *Player) StageSpawn(name string) {
	p.Input.SpawnRequested = true
	p.Input.SpawnName = name
}

func (p *Player) StageSpectate() { p.Input.SpectateRequested = true }

// TakeNewCells returns ids of cells gained since the last call.
func (p *Player) TakeNewCells() []uint32 {
	if len(p.newCells) == 0 {
		return nil
	}
	ids := p.newCells
	p.newCells = nil
	return ids
}

func (p *Player) setState(s State) {
	p.State = s
}

// checkExistence disposes of disconnected players: at once when they are
// not playing, otherwise after the dispose delay.
func (w *World) checkExistence(p *Player) {
	if !p.Disconnected {
		return
	}
	if p.State != StatePlaying {
		w.RemovePlayer(p)
		return
	}
	if w.tick-p.DisconnectTick >= w.cfg.PlayerDisposeDelay {
		w.RemovePlayer(p)
	}
}

// ApplyInput consumes p's staged input.
func (w *World) ApplyInput(p *Player) {
	w.checkExistence(p)
	if p.removed {
		return
	}
	in := &p.Input

	if in.SpawnRequested {
		in.SpawnRequested = false
		if p.State != StatePlaying && !p.Disconnected {
			w.gm.OnPlayerSpawnRequest(w, p, in.SpawnName)
		}
		in.SpawnName = ""
	}
	if in.SpectateRequested {
		in.SpectateRequested = false
		if p.State != StatePlaying {
			w.spectate(p)
		}
	}
	if in.PressingQ {
		if !in.processedQ {
			w.toggleRoam(p)
		}
		in.processedQ = true
	} else {
		in.processedQ = false
	}

	if p.State == StatePlaying {
		n := min(in.SplitAttempts, w.cfg.PlayerSplitCap)
		for i := 0; i < n; i++ {
			w.splitPlayer(p)
		}
		if in.EjectAttempts > 0 && (!in.ejectedOnce || w.tick-in.lastEjectTick >= w.cfg.PlayerEjectDelay) {
			w.ejectFromPlayer(p)
			in.lastEjectTick = w.tick
			in.ejectedOnce = true
			in.EjectAttempts--
		}
	} else {
		in.EjectAttempts = 0
	}
	in.SplitAttempts = 0
}

func (w *World) spectate(p *Player) {
	if w.largest != nil && w.largest != p {
		p.setState(StateSpectating)
		return
	}
	p.setState(StateRoaming)
}

func (w *World) toggleRoam(p *Player) {
	switch p.State {
	case StateSpectating:
		p.setState(StateRoaming)
	case StateRoaming:
		if w.largest != nil && w.largest != p {
			p.setState(StateSpectating)
		}
	}
}

// playerDied runs when a playing player loses its last cell.
func (w *World) playerDied(p *Player) {
	p.setState(StateIdle)
	w.emitPlayerDied(p)
	p.Score = 0
	p.MaxScore = 0
}

// updateScores refreshes every player's score and picks the largest
// playing player.
func (w *World) updateScores() {
	w.largest = nil
	for _, p := range w.players {
		if p.State != StatePlaying {
			p.Score = 0
			continue
		}
		score := 0.0
		for _, c := range p.Cells {
			score += c.Mass()
		}
		p.Score = score
		if score > p.MaxScore {
			p.MaxScore = score
		}
		if w.largest == nil || score > w.largest.Score {
			w.largest = p
		}
	}
}

// updateViewArea recomputes the rectangle p observes.
func (w *World) updateViewArea(p *Player) {
	mult := w.cfg.PlayerViewScaleMult
	switch p.State {
	case StatePlaying:
		if len(p.Cells) == 0 {
			return
		}
		var x, y, total float64
		for _, c := range p.Cells {
			x += c.x
			y += c.y
			total += c.size
		}
		n := float64(len(p.Cells))
		s := math.Pow(math.Min(64/total, 1), 0.4)
		p.View = ViewArea{X: x / n, Y: y / n, Scale: s, W: 1920 / s / 2 * mult, H: 1080 / s / 2 * mult}
	case StateSpectating:
		if w.largest == nil || w.largest == p {
			p.setState(StateRoaming)
			w.updateViewArea(p)
			return
		}
		p.View = w.largest.View
	case StateRoaming:
		s := w.cfg.PlayerRoamViewScale
		p.View.Scale = s
		p.View.W = 1920 / s / 2 * mult
		p.View.H = 1080 / s / 2 * mult
		dx := p.Input.MouseX - p.View.X
		dy := p.Input.MouseY - p.View.Y
		d := math.Hypot(dx, dy)
		step := math.Min(d, w.cfg.PlayerRoamSpeed)
		if step < 1 {
			return
		}
		b := w.border
		p.View.X = math.Max(b.Left(), math.Min(p.View.X+dx/d*step, b.Right()))
		p.View.Y = math.Max(b.Top(), math.Min(p.View.Y+dy/d*step, b.Bottom()))
	}
}

// Standings returns the playing players ordered by score, highest first.
func (w *World) Standings() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		if p.State == StatePlaying {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
