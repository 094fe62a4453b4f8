package world

import "math"

func pairKey(a, b uint32) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(a)<<32 | uint64(b)
}

// Collide finds every overlapping pair once, resolves rigid pairs and then
// eats in discovery order. Eaten cells are marked for removal.
func (w *World) Collide() {
	clear(w.pairs)
	w.rigid = w.rigid[:0]
	w.eats = w.eats[:0]
	w.siblings = w.siblings[:0]

	for _, c := range w.list {
		if c.Kind == KindPellet || !c.Exists() {
			continue
		}
		w.finder.Search(c.Rect(), func(id uint32) {
			if id == c.ID {
				return
			}
			o := w.cells[id]
			if o == nil || !o.Exists() {
				return
			}
			dx, dy := o.x-c.x, o.y-c.y
			r := c.size + o.size
			if dx*dx+dy*dy >= r*r {
				return
			}
			key := pairKey(c.ID, o.ID)
			if _, dup := w.pairs[key]; dup {
				return
			}
			w.pairs[key] = struct{}{}

			if c.Kind == KindPlayerCell && o.Kind == KindPlayerCell && c.Owner == o.Owner {
				w.siblings = append(w.siblings, c, o)
				return
			}
			in := w.Resolve(c, o)
			switch {
			case in.Rigid:
				w.rigid = append(w.rigid, c, o)
			case in.Eater != nil:
				w.eats = append(w.eats, in.Eater, in.Eaten)
			}
		})
	}

	for i := 0; i < len(w.siblings); i += 2 {
		w.resolveSiblings(w.siblings[i], w.siblings[i+1])
	}
	for i := 0; i < len(w.rigid); i += 2 {
		a, b := w.rigid[i], w.rigid[i+1]
		if a.Kind == KindEjectedMass && b.Kind == KindEjectedMass {
			w.SetBoosting(a)
			w.SetBoosting(b)
		}
		w.resolveRigid(a, b)
	}
	for i := 0; i < len(w.eats); i += 2 {
		w.resolveEat(w.eats[i], w.eats[i+1])
	}
}

// canMerge reports whether a player cell is old enough to rejoin its
// siblings.
func (w *World) canMerge(c *Cell) bool {
	delay := float64(w.cfg.PlayerNoCollideDelay)
	if w.cfg.PlayerMergeTime > 0 {
		tps := w.cfg.TicksPerSecond
		initial := math.Round(tps * w.cfg.PlayerMergeTime)
		increase := math.Round(tps * c.size * w.cfg.PlayerMergeTimeIncrease)
		delay = math.Max(delay, initial+increase)
	}
	return float64(c.Age(w.tick)) >= delay
}

// resolveSiblings handles two overlapping cells of the same player: they
// pass through each other right after a split, push apart until both may
// merge, and then the larger absorbs the smaller.
func (w *World) resolveSiblings(a, b *Cell) {
	noCollide := w.cfg.PlayerNoCollideDelay
	if a.Age(w.tick) < noCollide || b.Age(w.tick) < noCollide {
		return
	}
	if w.canMerge(a) && w.canMerge(b) {
		if b.size > a.size || (b.size == a.size && b.ID < a.ID) {
			a, b = b, a
		}
		w.eats = append(w.eats, a, b)
		return
	}
	w.rigid = append(w.rigid, a, b)
}

// resolveRigid pushes a and b apart, each moving in proportion to the
// other's area.
func (w *World) resolveRigid(a, b *Cell) {
	if !a.Exists() || !b.Exists() {
		return
	}
	dx, dy := b.x-a.x, b.y-a.y
	d := math.Hypot(dx, dy)
	m := a.size + b.size - d
	if m <= 0 {
		return
	}
	if d == 0 {
		dx, dy = 1, 0
	} else {
		dx /= d
		dy /= d
	}
	total := a.SquareSize() + b.SquareSize()
	aShare := b.SquareSize() / total
	bShare := a.SquareSize() / total
	a.SetPosition(a.x-dx*m*aShare, a.y-dy*m*aShare)
	b.SetPosition(b.x+dx*m*bShare, b.y+dy*m*bShare)
}

// resolveEat lets eater consume eaten once the overlap is deep enough.
func (w *World) resolveEat(eater, eaten *Cell) {
	if !eater.Exists() || !eaten.Exists() {
		return
	}
	d := math.Hypot(eaten.x-eater.x, eaten.y-eater.y)
	if d > eater.size-eaten.size/w.cfg.EatOverlapDiv {
		return
	}
	eater.behavior().whenAte(w, eater, eaten)
	eaten.behavior().whenEatenBy(w, eaten, eater)
	w.RemoveCell(eaten)
}
