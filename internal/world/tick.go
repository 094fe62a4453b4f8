package world

import "time"

// The phase methods below are driven by the system runner in this order:
// BeginTick, RunDeferred, Populate, ApplyInput (every player), Motion,
// Collide, ClampBorder, MaintainIndex, UpdateViews, ClearDirty.

// BeginTick advances the tick counter.
func (w *World) BeginTick() {
	w.tick++
	w.leaderboardFresh = false
}

// ApplyAllInput runs ApplyInput for every player in join order.
func (w *World) ApplyAllInput() {
	for i := 0; i < len(w.players); {
		p := w.players[i]
		w.ApplyInput(p)
		if !p.removed {
			i++
		}
	}
}

// MaintainIndex finalizes removals and pushes every changed rectangle into
// the index.
func (w *World) MaintainIndex() {
	w.finalizeRemovals()
	w.syncIndex()
}

// UpdateViews recomputes scores, the largest player and every view area,
// and compiles the leaderboard when it is due.
func (w *World) UpdateViews() {
	w.updateScores()
	// Spectators copy the view of the largest player, so playing views go
	// first.
	for _, p := range w.players {
		if p.State == StatePlaying {
			w.updateViewArea(p)
		}
	}
	for _, p := range w.players {
		if p.State != StatePlaying {
			w.updateViewArea(p)
		}
	}
	if n := w.cfg.LeaderboardInterval; n > 0 && w.tick%n == 0 {
		w.leaderboard = w.gm.CompileLeaderboard(w)
		w.leaderboardFresh = true
	}
}

// ClearDirty resets the dirty flags of every live cell.
func (w *World) ClearDirty() {
	for _, c := range w.list {
		c.dirty = 0
	}
}

// Step runs one whole tick without transport: every phase in order, with a
// visibility sync for each player into its own change set.
func (w *World) Step(changes map[uint32]*ChangeSet) {
	w.BeginTick()
	w.RunDeferred()
	w.Populate()
	w.ApplyAllInput()
	w.Motion()
	w.Collide()
	w.ClampBorder()
	w.MaintainIndex()
	w.UpdateViews()
	for _, p := range w.players {
		cs := changes[p.ID]
		if cs == nil {
			cs = &ChangeSet{}
			if changes != nil {
				changes[p.ID] = cs
			}
		}
		w.SyncVisibility(p, cs)
	}
	w.ClearDirty()
}

// Stats is a snapshot of world counters.
type Stats struct {
	Tick        uint64
	Players     int
	Playing     int
	Spectating  int
	Cells       int
	Pellets     int
	Viruses     int
	Ejected     int
	Mothercells int
	PlayerCells int
	IndexNodes  int
	IndexDepth  int
	Pending     int
	TickTime    time.Duration
}

// SetTickTime records how long the last tick took.
func (w *World) SetTickTime(d time.Duration) { w.lastTickTime = d }

// Stats returns a snapshot of the world counters.
func (w *World) Stats() Stats {
	st := Stats{
		Tick:        w.tick,
		Players:     len(w.players),
		Cells:       len(w.list),
		Pellets:     w.pelletCount,
		Viruses:     w.virusCount,
		Ejected:     len(w.ejected),
		Mothercells: w.mothercellCount,
		PlayerCells: w.playerCellCount,
		Pending:     w.sched.Len(),
		TickTime:    w.lastTickTime,
	}
	for _, p := range w.players {
		switch p.State {
		case StatePlaying:
			st.Playing++
		case StateSpectating, StateRoaming:
			st.Spectating++
		}
	}
	is := w.finder.Stats()
	st.IndexNodes, st.IndexDepth = is.Nodes, is.MaxDepth
	return st
}
