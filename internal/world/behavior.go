package world

import "math"

// EatResult is one side's opinion of a pair interaction.
type EatResult uint8

const (
	EatNone EatResult = iota
	EatRigid
	Eat         // self eats other
	EatInverted // other eats self
)

func (r EatResult) String() string {
	switch r {
	case EatNone:
		return "None"
	case EatRigid:
		return "Rigid"
	case Eat:
		return "Eat"
	case EatInverted:
		return "EatInverted"
	default:
		return "EatResult(?)"
	}
}

type behavior struct {
	avoidWhenSpawning bool
	eatResult         func(w *World, self, other *Cell) EatResult
	whenAte           func(w *World, self, eaten *Cell)
	whenEatenBy       func(w *World, self, eater *Cell)
	onSpawned         func(w *World, c *Cell)
	onRemoved         func(w *World, c *Cell)
}

// Filled in init so the table can reference world operations that
// themselves dispatch through it.
var behaviors [kindCount]behavior

func init() {
	behaviors = [kindCount]behavior{
		KindPlayerCell: {
			avoidWhenSpawning: true,
			eatResult:         playerCellEatResult,
			whenAte:           defaultWhenAte,
			whenEatenBy:       defaultWhenEatenBy,
			onSpawned:         playerCellSpawned,
			onRemoved:         playerCellRemoved,
		},
		KindPellet: {
			eatResult:   func(*World, *Cell, *Cell) EatResult { return EatNone },
			whenAte:     defaultWhenAte,
			whenEatenBy: defaultWhenEatenBy,
			onSpawned:   pelletSpawned,
			onRemoved:   pelletRemoved,
		},
		KindVirus: {
			avoidWhenSpawning: true,
			eatResult:         virusEatResult,
			whenAte:           virusWhenAte,
			whenEatenBy:       poppingWhenEatenBy,
			onSpawned:         func(w *World, _ *Cell) { w.virusCount++ },
			onRemoved:         func(w *World, _ *Cell) { w.virusCount-- },
		},
		KindEjectedMass: {
			eatResult:   ejectedEatResult,
			whenAte:     defaultWhenAte,
			whenEatenBy: defaultWhenEatenBy,
			onSpawned:   func(w *World, c *Cell) { w.ejected = append(w.ejected, c) },
			onRemoved:   func(w *World, c *Cell) { w.ejected = removeCell(w.ejected, c) },
		},
		KindMothercell: {
			avoidWhenSpawning: true,
			eatResult:         func(*World, *Cell, *Cell) EatResult { return EatNone },
			whenAte:           defaultWhenAte,
			whenEatenBy:       poppingWhenEatenBy,
			onSpawned:         mothercellSpawned,
			onRemoved:         func(w *World, _ *Cell) { w.mothercellCount-- },
		},
	}
}

func (c *Cell) behavior() *behavior { return &behaviors[c.Kind] }

// EatResultOf reports how self regards other.
func (w *World) EatResultOf(self, other *Cell) EatResult {
	return self.behavior().eatResult(w, self, other)
}

// Interaction is the outcome of resolving an overlapping pair.
type Interaction struct {
	Rigid bool
	Eater *Cell
	Eaten *Cell
}

// None reports whether the pair ignores each other.
func (in Interaction) None() bool { return !in.Rigid && in.Eater == nil }

// Resolve consults both sides of a pair. When both claim to eat, the larger
// cell wins (lower id on a tie); otherwise any Rigid opinion makes the pair
// rigid.
func (w *World) Resolve(a, b *Cell) Interaction {
	ra := w.EatResultOf(a, b)
	rb := w.EatResultOf(b, a)
	aEats := ra == Eat || rb == EatInverted
	bEats := rb == Eat || ra == EatInverted
	switch {
	case aEats && bEats:
		if b.size > a.size || (b.size == a.size && b.ID < a.ID) {
			return Interaction{Eater: b, Eaten: a}
		}
		return Interaction{Eater: a, Eaten: b}
	case aEats:
		return Interaction{Eater: a, Eaten: b}
	case bEats:
		return Interaction{Eater: b, Eaten: a}
	case ra == EatRigid || rb == EatRigid:
		return Interaction{Rigid: true}
	}
	return Interaction{}
}

func (w *World) sizeRuleEats(self, other *Cell) EatResult {
	if self.size > other.size*w.cfg.EatMult {
		return Eat
	}
	return EatNone
}

func playerCellEatResult(w *World, self, other *Cell) EatResult {
	if other.Kind == KindPlayerCell {
		if other.Owner == self.Owner {
			return EatNone
		}
		if self.Owner.Team != NoTeam && other.Owner.Team == self.Owner.Team {
			return EatNone
		}
	}
	return w.sizeRuleEats(self, other)
}

func (w *World) virusAcceptsFood() bool {
	return w.virusCount < w.cfg.VirusMaxCount
}

func virusEatResult(w *World, self, other *Cell) EatResult {
	switch other.Kind {
	case KindPellet:
		return w.sizeRuleEats(self, other)
	case KindEjectedMass:
		if w.virusAcceptsFood() {
			return Eat
		}
	}
	return EatNone
}

func ejectedEatResult(w *World, self, other *Cell) EatResult {
	switch other.Kind {
	case KindVirus:
		if w.virusAcceptsFood() {
			return EatInverted
		}
	case KindEjectedMass:
		if self.boosting || other.boosting {
			return EatRigid
		}
	}
	return EatNone
}

// defaultWhenAte conserves area: the eater gains the eaten cell's squared size.
func defaultWhenAte(_ *World, self, eaten *Cell) {
	self.SetSquareSize(self.SquareSize() + eaten.SquareSize())
}

func defaultWhenEatenBy(_ *World, self, eater *Cell) {
	if self.EatenBy == 0 {
		self.EatenBy = eater.ID
	}
}

func poppingWhenEatenBy(w *World, self, eater *Cell) {
	defaultWhenEatenBy(w, self, eater)
	if eater.Kind == KindPlayerCell {
		w.popPlayerCell(eater)
	}
}

func virusWhenAte(w *World, self, eaten *Cell) {
	// Only ejected mass counts as feeding.
	if eaten.Kind != KindEjectedMass {
		defaultWhenAte(w, self, eaten)
		return
	}
	if w.cfg.VirusPushing {
		d := self.boost.D + w.cfg.VirusPushBoost
		self.boost.DX = (self.boost.DX*self.boost.D + eaten.boost.DX*w.cfg.VirusPushBoost) / d
		self.boost.DY = (self.boost.DY*self.boost.D + eaten.boost.DY*w.cfg.VirusPushBoost) / d
		norm := math.Hypot(self.boost.DX, self.boost.DY)
		if norm > 0 {
			self.boost.DX /= norm
			self.boost.DY /= norm
		}
		self.boost.D = d
		w.SetBoosting(self)
		return
	}
	self.splitAngle = math.Atan2(eaten.boost.DX, eaten.boost.DY)
	self.fedTimes++
	if self.fedTimes >= w.cfg.VirusFeedTimes {
		self.fedTimes = 0
		self.SetSize(w.cfg.VirusSize)
		w.splitVirus(self)
		return
	}
	defaultWhenAte(w, self, eaten)
}

func playerCellSpawned(w *World, c *Cell) {
	c.Owner.Cells = append(c.Owner.Cells, c)
	c.Owner.newCells = append(c.Owner.newCells, c.ID)
	w.playerCellCount++
}

func playerCellRemoved(w *World, c *Cell) {
	p := c.Owner
	p.Cells = removeCell(p.Cells, c)
	w.playerCellCount--
	if len(p.Cells) == 0 && p.State == StatePlaying {
		w.playerDied(p)
	}
}

func pelletSpawned(w *World, c *Cell) {
	if m := w.cells[c.creator]; c.creator != 0 && m != nil {
		m.pelletCount++
	} else {
		c.creator = 0
		w.pelletCount++
	}
	w.schedulePelletGrowth(c)
}

func pelletRemoved(w *World, c *Cell) {
	if c.creator == 0 {
		w.pelletCount--
		return
	}
	if m := w.cells[c.creator]; m != nil {
		m.pelletCount--
	}
}

func mothercellSpawned(w *World, c *Cell) {
	w.mothercellCount++
	w.scheduleMothercellPulse(c)
}

func removeCell(list []*Cell, c *Cell) []*Cell {
	for i, v := range list {
		if v == c {
			copy(list[i:], list[i+1:])
			list[len(list)-1] = nil
			return list[:len(list)-1]
		}
	}
	return list
}
