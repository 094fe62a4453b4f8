package world

import (
	"math"

	"github.com/cellarena/server/internal/spatial"
)

const (
	virusColor      = 0x33FF33
	mothercellColor = 0xCE6363
)

// RandomColor picks one of the bright cell colors: one channel saturated, one
// dimmed and one random.
func (w *World) RandomColor() uint32 {
	v := uint32(w.rng.Intn(0x100))
	switch w.rng.Intn(6) {
	case 0:
		return v<<16 | 0xFF<<8 | 0x10
	case 1:
		return v<<16 | 0x10<<8 | 0xFF
	case 2:
		return 0xFF<<16 | v<<8 | 0x10
	case 3:
		return 0x10<<16 | v<<8 | 0xFF
	case 4:
		return 0x10<<16 | 0xFF<<8 | v
	default:
		return 0xFF<<16 | 0x10<<8 | v
	}
}

// RandomPos returns a uniformly random position at which a cell of the
// given size lies inside the border.
func (w *World) RandomPos(size float64) (x, y float64) {
	b := w.border
	spanX := math.Max(2*b.W-2*size, 0)
	spanY := math.Max(2*b.H-2*size, 0)
	return b.Left() + size + w.rng.Float64()*spanX, b.Top() + size + w.rng.Float64()*spanY
}

// SafeSpawnPos looks for a random position no spawn-avoiding cell covers,
// falling back to any random position.
func (w *World) SafeSpawnPos(size float64) (x, y float64) {
	for tries := w.cfg.SafeSpawnTries; tries > 0; tries-- {
		x, y = w.RandomPos(size)
		if w.IsSafeSpawn(spatial.Rect{X: x, Y: y, W: size, H: size}) {
			return x, y
		}
	}
	return w.RandomPos(size)
}

// SpawnPoint is where and how a new player cell appears.
type SpawnPoint struct {
	X, Y  float64
	Color uint32 // 0 when the caller picks the color
}

// PlayerSpawn picks a spawn point for a player cell of the given size. With
// the configured chance it reuses an ejected mass cell that sits in a safe
// spot, taking its position and color and removing it.
func (w *World) PlayerSpawn(size float64) SpawnPoint {
	if len(w.ejected) > 0 && w.rng.Float64() < w.cfg.SafeSpawnFromEjected {
		for tries := w.cfg.SafeSpawnTries; tries > 0; tries-- {
			c := w.ejected[w.rng.Intn(len(w.ejected))]
			if !c.Exists() {
				continue
			}
			if w.IsSafeSpawn(spatial.Rect{X: c.x, Y: c.y, W: size, H: size}) {
				w.RemoveCell(c)
				return SpawnPoint{X: c.x, Y: c.y, Color: c.color}
			}
		}
	}
	x, y := w.SafeSpawnPos(size)
	return SpawnPoint{X: x, Y: y}
}

// SpawnPlayer gives p its first cell and moves it to the Playing state.
func (w *World) SpawnPlayer(p *Player, at SpawnPoint, size float64) *Cell {
	color := at.Color
	if color == 0 {
		color = p.CellColor
	}
	if color == 0 {
		color = w.RandomColor()
	}
	c := newCell(KindPlayerCell, at.X, at.Y, size, color)
	c.Owner = p
	c.SetName(p.CellName)
	c.SetSkin(p.CellSkin)
	w.AddCell(c)
	p.setState(StatePlaying)
	p.SpawnTick = w.tick
	p.MaxScore = c.Mass()
	p.View.X, p.View.Y = at.X, at.Y
	w.emitPlayerSpawned(p)
	return c
}

// SpawnPellet adds a world pellet at the given position.
func (w *World) SpawnPellet(x, y float64) *Cell {
	c := newCell(KindPellet, x, y, w.cfg.PelletMinSize, w.RandomColor())
	w.AddCell(c)
	return c
}

// SpawnVirus adds a virus at the given position.
func (w *World) SpawnVirus(x, y float64) *Cell {
	c := newCell(KindVirus, x, y, w.cfg.VirusSize, virusColor)
	w.AddCell(c)
	return c
}

// SpawnMothercell adds a mothercell at the given position.
func (w *World) SpawnMothercell(x, y float64) *Cell {
	c := newCell(KindMothercell, x, y, w.cfg.MothercellSize, mothercellColor)
	w.AddCell(c)
	return c
}

// Populate tops up world pellets, viruses and mothercells to their targets.
func (w *World) Populate() {
	for w.pelletCount < w.cfg.PelletCount {
		x, y := w.RandomPos(w.cfg.PelletMinSize)
		w.SpawnPellet(x, y)
	}
	for w.virusCount < w.cfg.VirusMinCount {
		x, y := w.SafeSpawnPos(w.cfg.VirusSize)
		w.SpawnVirus(x, y)
	}
	for w.mothercellCount < w.cfg.MothercellCount {
		x, y := w.SafeSpawnPos(w.cfg.MothercellSize)
		w.SpawnMothercell(x, y)
	}
}
