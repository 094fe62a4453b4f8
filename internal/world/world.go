package world

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/core/event"
	"github.com/cellarena/server/internal/spatial"
	"go.uber.org/zap"
)

// World owns every cell, the spatial index over them and the players
// playing in it.
// Accessed only from the game loop goroutine, no locks.
type World struct {
	cfg  config.WorldConfig
	log  *zap.Logger
	rng  *rand.Rand
	gm   Gamemode
	bus  *event.Bus
	tick uint64

	border spatial.Rect
	finder *spatial.Tree

	nextID   uint32
	cells    map[uint32]*Cell
	list     []*Cell // live cells in spawn order
	boosting []*Cell
	ejected  []*Cell
	removed  []*Cell // marked during this tick, finalized at index maintenance

	pelletCount     int
	virusCount      int
	mothercellCount int
	playerCellCount int

	nextPlayerID uint32
	players      []*Player
	largest      *Player

	leaderboard      Leaderboard
	leaderboardFresh bool

	sched schedule

	// scratch reused by the collision phase
	pairs    map[uint64]struct{}
	rigid    []*Cell
	eats     []*Cell
	siblings []*Cell

	lastTickTime time.Duration
}

// Option configures a World at construction.
type Option func(*World)

// WithRand replaces the world's random source.
func WithRand(r *rand.Rand) Option { return func(w *World) { w.rng = r } }

// WithBus makes the world publish player lifecycle events.
func WithBus(b *event.Bus) Option { return func(w *World) { w.bus = b } }

// New creates an empty world. gm must not be nil.
func New(cfg config.WorldConfig, gm Gamemode, log *zap.Logger, opts ...Option) *World {
	if gm == nil {
		panic("world: nil gamemode")
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	border := spatial.Rect{X: cfg.MapX, Y: cfg.MapY, W: cfg.MapW, H: cfg.MapH}
	w := &World{
		cfg:    cfg,
		log:    log,
		rng:    rand.New(rand.NewSource(seed)),
		gm:     gm,
		border: border,
		finder: spatial.New(border, cfg.FinderMaxItems, cfg.FinderMaxLevel),
		cells:  make(map[uint32]*Cell, cfg.PelletCount+256),
		list:   make([]*Cell, 0, cfg.PelletCount+256),
		pairs:  make(map[uint64]struct{}, 256),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *World) Config() *config.WorldConfig { return &w.cfg }
func (w *World) Log() *zap.Logger            { return w.log }
func (w *World) Rand() *rand.Rand            { return w.rng }
func (w *World) Gamemode() Gamemode          { return w.gm }
func (w *World) Tick() uint64                { return w.tick }
func (w *World) Border() spatial.Rect        { return w.border }
func (w *World) Largest() *Player            { return w.largest }
func (w *World) Players() []*Player          { return w.players }

// Cell returns the live cell with the given id, or nil.
func (w *World) Cell(id uint32) *Cell {
	c := w.cells[id]
	if c == nil || !c.Exists() {
		return nil
	}
	return c
}

// Cells returns the live cell list in spawn order. The slice is owned by
// the world.
func (w *World) Cells() []*Cell { return w.list }

func (w *World) PelletCount() int     { return w.pelletCount }
func (w *World) VirusCount() int      { return w.virusCount }
func (w *World) MothercellCount() int { return w.mothercellCount }
func (w *World) PlayerCellCount() int { return w.playerCellCount }
func (w *World) EjectedCount() int    { return len(w.ejected) }

// AddCell registers c with the world and the index and runs its spawn hooks.
func (w *World) AddCell(c *Cell) {
	if c.exists {
		panic(fmt.Sprintf("world: cell %d added twice", c.ID))
	}
	w.nextID++
	c.ID = w.nextID
	c.BirthTick = w.tick
	c.exists = true
	w.cells[c.ID] = c
	w.list = append(w.list, c)
	w.finder.Insert(c.ID, c.Rect())
	c.indexStale = false
	c.behavior().onSpawned(w, c)
	w.gm.OnNewCell(w, c)
}

// RemoveCell marks c for removal. It keeps occupying the index until the
// index maintenance phase finalizes it.
func (w *World) RemoveCell(c *Cell) {
	if !c.exists || c.removing {
		return
	}
	c.removing = true
	w.removed = append(w.removed, c)
}

// finalizeRemovals runs removal hooks and drops every marked cell from the
// index and the cell list.
func (w *World) finalizeRemovals() {
	if len(w.removed) == 0 {
		return
	}
	for i := 0; i < len(w.removed); i++ {
		c := w.removed[i]
		w.gm.OnCellRemove(w, c)
		c.behavior().onRemoved(w, c)
		w.finder.Remove(c.ID)
		delete(w.cells, c.ID)
		c.exists = false
		if c.boosting {
			c.boosting = false
			w.boosting = removeCell(w.boosting, c)
		}
	}
	kept := w.list[:0]
	for _, c := range w.list {
		if c.exists {
			kept = append(kept, c)
		}
	}
	clear(w.list[len(kept):])
	w.list = kept
	clear(w.removed)
	w.removed = w.removed[:0]
}

// syncIndex pushes the rectangle of every moved or resized cell into the
// index.
func (w *World) syncIndex() {
	for _, c := range w.list {
		if !c.indexStale {
			continue
		}
		w.finder.Update(c.ID, c.Rect())
		c.indexStale = false
	}
}

// SetBoosting adds c to the boosting list.
func (w *World) SetBoosting(c *Cell) {
	if c.boosting {
		return
	}
	c.boosting = true
	w.boosting = append(w.boosting, c)
}

// Search visits every live cell whose bounding rectangle intersects r.
func (w *World) Search(r spatial.Rect, visit func(c *Cell)) {
	w.finder.Search(r, func(id spatial.ID) {
		if c := w.cells[id]; c != nil && c.Exists() {
			visit(c)
		}
	})
}

// IsSafeSpawn reports whether no cell that avoids spawning intersects r.
func (w *World) IsSafeSpawn(r spatial.Rect) bool {
	return !w.finder.ContainsAny(r, func(id spatial.ID) bool {
		c := w.cells[id]
		return c != nil && c.Exists() && c.behavior().avoidWhenSpawning
	})
}

// IndexStats exposes the shape of the spatial index.
func (w *World) IndexStats() spatial.Stats { return w.finder.Stats() }

func (w *World) emit(fn func(b *event.Bus)) {
	if w.bus != nil {
		fn(w.bus)
	}
}
