package world

import (
	"fmt"
	"math"

	"github.com/cellarena/server/internal/spatial"
)

// Kind is the closed set of entity variants. The numeric values are the
// wire type ids.
type Kind uint8

const (
	KindPlayerCell Kind = iota
	KindPellet
	KindVirus
	KindEjectedMass
	KindMothercell
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindPlayerCell:
		return "PlayerCell"
	case KindPellet:
		return "Pellet"
	case KindVirus:
		return "Virus"
	case KindEjectedMass:
		return "EjectedMass"
	case KindMothercell:
		return "Mothercell"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Dirty flags, one per transmittable field.
type Dirty uint8

const (
	DirtyPosition Dirty = 1 << iota
	DirtySize
	DirtyColor
	DirtyName
	DirtySkin
)

// Boost is a decaying directional velocity: unit direction (DX, DY) and the
// remaining distance D.
type Boost struct {
	DX, DY float64
	D      float64
}

// Cell is one simulated circular entity. Size is the radius.
type Cell struct {
	ID        uint32
	Kind      Kind
	BirthTick uint64
	Owner     *Player // player cells only

	// EatenBy is the id of the entity that consumed this one; set once.
	EatenBy uint32

	x, y  float64
	size  float64
	color uint32
	name  string
	skin  string

	boost    Boost
	boosting bool

	dirty   Dirty
	version uint64

	exists     bool // registered in the world
	removing   bool // marked for removal at index maintenance
	indexStale bool

	// variant state
	fedTimes    int
	splitAngle  float64
	creator     uint32 // pellet: spawning mothercell id, 0 for world pellets
	pelletCount int    // mothercell: live pellets it emitted
	activeQueue float64
	passQueue   float64
}

func newCell(kind Kind, x, y, size float64, color uint32) *Cell {
	c := &Cell{Kind: kind, color: color}
	c.SetPosition(x, y)
	c.SetSize(size)
	return c
}

func (c *Cell) X() float64          { return c.x }
func (c *Cell) Y() float64          { return c.y }
func (c *Cell) Size() float64       { return c.size }
func (c *Cell) SquareSize() float64 { return c.size * c.size }
func (c *Cell) Mass() float64       { return c.size * c.size / 100 }
func (c *Cell) Color() uint32       { return c.color }
func (c *Cell) Name() string        { return c.name }
func (c *Cell) Skin() string        { return c.skin }
func (c *Cell) Boost() Boost        { return c.boost }
func (c *Cell) IsBoosting() bool    { return c.boosting }
func (c *Cell) Dirty() Dirty        { return c.dirty }
func (c *Cell) Version() uint64     { return c.version }
func (c *Cell) Exists() bool        { return c.exists && !c.removing }
func (c *Cell) FedTimes() int       { return c.fedTimes }

// Age returns how many ticks the cell has existed at tick now.
func (c *Cell) Age(now uint64) uint64 {
	if now < c.BirthTick {
		return 0
	}
	return now - c.BirthTick
}

// Rect is the bounding rectangle used by the spatial index.
func (c *Cell) Rect() spatial.Rect {
	return spatial.Rect{X: c.x, Y: c.y, W: c.size, H: c.size}
}

func (c *Cell) touch(d Dirty) {
	c.dirty |= d
	c.version++
	if d&(DirtyPosition|DirtySize) != 0 {
		c.indexStale = true
	}
}

// SetPosition moves the cell. NaN coordinates are an invariant violation.
func (c *Cell) SetPosition(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		panic(fmt.Sprintf("world: cell %d position (%v, %v)", c.ID, x, y))
	}
	if x == c.x && y == c.y && c.version > 0 {
		return
	}
	c.x, c.y = x, y
	c.touch(DirtyPosition)
}

// SetSize sets the radius. Non-positive or NaN sizes are invariant violations.
func (c *Cell) SetSize(size float64) {
	if math.IsNaN(size) || size <= 0 {
		panic(fmt.Sprintf("world: cell %d size %v", c.ID, size))
	}
	if size == c.size {
		return
	}
	c.size = size
	c.touch(DirtySize)
}

func (c *Cell) SetSquareSize(v float64) { c.SetSize(math.Sqrt(v)) }
func (c *Cell) SetMass(m float64)       { c.SetSize(math.Sqrt(100 * m)) }

func (c *Cell) SetColor(color uint32) {
	if color == c.color {
		return
	}
	c.color = color
	c.touch(DirtyColor)
}

func (c *Cell) SetName(name string) {
	if name == c.name {
		return
	}
	c.name = name
	c.touch(DirtyName)
}

func (c *Cell) SetSkin(skin string) {
	if skin == c.skin {
		return
	}
	c.skin = skin
	c.touch(DirtySkin)
}

// SetBoost replaces the boost vector. The caller registers the cell as
// boosting through World.SetBoosting.
func (c *Cell) SetBoost(b Boost) { c.boost = b }

// ClearDirty resets all dirty flags; the version counter keeps counting.
func (c *Cell) ClearDirty() { c.dirty = 0 }

// Spiked reports whether clients should render the cell with spikes.
func (c *Cell) Spiked() bool { return c.Kind == KindVirus || c.Kind == KindMothercell }
