package world

import "math"

// boostCell advances c along its boost and reports whether it keeps
// boosting.
func (w *World) boostCell(c *Cell) bool {
	step := math.Min(c.boost.D*w.cfg.BoostDecay, w.cfg.BoostMaxStep)
	c.SetPosition(c.x+c.boost.DX*step, c.y+c.boost.DY*step)
	c.boost.D -= step
	return c.boost.D >= w.cfg.BoostMinimum
}

// Motion moves boosting cells, then steers, decays and auto-splits player
// cells, and finally syncs the index so the collision phase sees the new
// positions.
func (w *World) Motion() {
	for i := 0; i < len(w.boosting); {
		c := w.boosting[i]
		if !c.Exists() || w.boostCell(c) {
			i++
			continue
		}
		c.boosting = false
		c.boost.D = 0
		w.boosting = append(w.boosting[:i], w.boosting[i+1:]...)
	}

	for _, p := range w.players {
		n := len(p.Cells)
		for i := 0; i < n; i++ {
			c := p.Cells[i]
			if !c.Exists() {
				continue
			}
			if !p.Disconnected {
				w.movePlayerCell(c, p.Input.MouseX, p.Input.MouseY)
			}
			w.decayPlayerCell(c)
			w.autoSplitPlayerCell(c)
		}
	}
	w.syncIndex()
}

// MoveSpeed is how far a player cell of the given size travels per tick.
func (w *World) MoveSpeed(size float64) float64 {
	return 88 * math.Pow(size, -0.4396754) * w.cfg.PlayerMoveMult
}

func (w *World) movePlayerCell(c *Cell, tx, ty float64) {
	dx, dy := tx-c.x, ty-c.y
	d := math.Hypot(dx, dy)
	if d < 1 {
		return
	}
	m := math.Min(w.MoveSpeed(c.size), d)
	c.SetPosition(c.x+dx/d*m, c.y+dy/d*m)
}

func (w *World) decayPlayerCell(c *Cell) {
	size := c.size - c.size*w.gm.DecayMult(w, c)/50
	c.SetSize(math.Max(size, w.cfg.PlayerMinSize))
}

func (w *World) autoSplitPlayerCell(c *Cell) {
	limit := w.cfg.PlayerMaxSize * w.cfg.PlayerMaxSize
	cellsLeft := 1 + w.cfg.PlayerMaxCells - len(c.Owner.Cells)
	overflow := int(math.Ceil(c.SquareSize() / limit))
	if overflow <= 1 || cellsLeft <= 0 {
		return
	}
	times := min(overflow, cellsLeft)
	size := math.Min(math.Sqrt(c.SquareSize()/float64(times)), w.cfg.PlayerMaxSize)
	for i := 1; i < times; i++ {
		angle := w.rng.Float64() * 2 * math.Pi
		w.launchPlayerCell(c, size, Boost{DX: math.Sin(angle), DY: math.Cos(angle), D: w.cfg.PlayerSplitBoost})
	}
	c.SetSize(size)
}

// launchPlayerCell carves a boosting cell of the given size out of c.
func (w *World) launchPlayerCell(c *Cell, size float64, b Boost) *Cell {
	c.SetSquareSize(c.SquareSize() - size*size)
	x := c.x + w.cfg.PlayerSplitDistance*b.DX
	y := c.y + w.cfg.PlayerSplitDistance*b.DY
	n := newCell(KindPlayerCell, x, y, size, c.color)
	n.Owner = c.Owner
	n.SetName(c.name)
	n.SetSkin(c.skin)
	n.boost = b
	w.AddCell(n)
	w.SetBoosting(n)
	return n
}

// direction returns the unit vector from c towards the player's mouse, or
// (1, 0) when the mouse sits on the cell.
func direction(c *Cell, tx, ty float64) (dx, dy float64) {
	dx, dy = tx-c.x, ty-c.y
	d := math.Hypot(dx, dy)
	if d < 1 {
		return 1, 0
	}
	return dx / d, dy / d
}

func (w *World) splitPlayer(p *Player) {
	n := len(p.Cells)
	for i := 0; i < n; i++ {
		if len(p.Cells) >= w.cfg.PlayerMaxCells {
			return
		}
		c := p.Cells[i]
		if !c.Exists() || c.size < w.cfg.PlayerMinSplitSize {
			continue
		}
		dx, dy := direction(c, p.Input.MouseX, p.Input.MouseY)
		w.launchPlayerCell(c, c.size/math.Sqrt2, Boost{DX: dx, DY: dy, D: w.cfg.PlayerSplitBoost})
	}
}

func (w *World) ejectFromPlayer(p *Player) {
	loss := w.cfg.EjectingLoss * w.cfg.EjectingLoss
	spread := w.cfg.EjectDispersion
	n := len(p.Cells)
	for i := 0; i < n; i++ {
		c := p.Cells[i]
		if !c.Exists() || c.size < w.cfg.PlayerMinEjectSize {
			continue
		}
		dx, dy := direction(c, p.Input.MouseX, p.Input.MouseY)
		e := newCell(KindEjectedMass, c.x+dx*c.size, c.y+dy*c.size, w.cfg.EjectedSize, c.color)
		a := math.Atan2(dx, dy) - spread + w.rng.Float64()*2*spread
		e.boost = Boost{DX: math.Sin(a), DY: math.Cos(a), D: w.cfg.EjectedCellBoost}
		w.AddCell(e)
		w.SetBoosting(e)
		c.SetSquareSize(c.SquareSize() - loss)
	}
}

// popPlayerCell bursts c into several cells after it ate a virus or a
// mothercell. Pops ignore the split cap and the minimum split size.
func (w *World) popPlayerCell(c *Cell) {
	for _, mass := range w.distributeCellMass(c) {
		angle := w.rng.Float64() * 2 * math.Pi
		w.launchPlayerCell(c, math.Sqrt(mass*100), Boost{DX: math.Sin(angle), DY: math.Cos(angle), D: w.cfg.PlayerSplitBoost})
	}
}

// distributeCellMass returns the masses of the pieces a pop launches from c.
// The remainder stays in c.
func (w *World) distributeCellMass(c *Cell) []float64 {
	cellsLeft := w.cfg.PlayerMaxCells - len(c.Owner.Cells)
	if cellsLeft <= 0 {
		return nil
	}
	splitMin := w.cfg.PlayerMinSplitSize * w.cfg.PlayerMinSplitSize / 100
	mass := c.Mass()

	fill := func(n int, each float64) []float64 {
		out := make([]float64, n)
		for i := range out {
			out[i] = each
		}
		return out
	}

	if w.cfg.VirusMonoPops {
		n := min(int(mass/splitMin), cellsLeft)
		return fill(n, mass/float64(n+1))
	}
	if mass/float64(cellsLeft) < splitMin {
		n := 2
		each := mass / float64(n+1)
		for each >= splitMin && n*2 <= cellsLeft {
			n *= 2
			each = mass / float64(n+1)
		}
		return fill(min(n, cellsLeft), each)
	}

	var splits []float64
	next := mass / 2
	left := mass / 2
	for cellsLeft > 0 {
		if next/float64(cellsLeft) < splitMin {
			break
		}
		for next >= left && cellsLeft > 1 {
			next /= 2
		}
		splits = append(splits, next)
		left -= next
		cellsLeft--
	}
	if cellsLeft > 0 {
		splits = append(splits, fill(cellsLeft, left/float64(cellsLeft))...)
	}
	return splits
}

// splitVirus launches virusSplitCount boosting viruses around the angle the
// last feeding came from.
func (w *World) splitVirus(v *Cell) {
	n := max(w.cfg.VirusSplitCount, 1)
	const spread = math.Pi / 8
	for i := 0; i < n; i++ {
		angle := v.splitAngle
		if n > 1 {
			angle += spread * (float64(i) - float64(n-1)/2)
		}
		c := newCell(KindVirus, v.x, v.y, w.cfg.VirusSize, virusColor)
		c.boost = Boost{DX: math.Sin(angle), DY: math.Cos(angle), D: w.cfg.VirusSplitBoost}
		w.AddCell(c)
		w.SetBoosting(c)
	}
}

// mothercellTick runs the active and passive pellet emission of m.
func (w *World) mothercellTick(m *Cell) {
	pellet := w.cfg.PelletMinSize
	minSquare := w.cfg.MothercellSize*w.cfg.MothercellSize + pellet*pellet
	m.activeQueue += w.cfg.MothercellActiveSpeed
	m.passQueue += w.rng.Float64() * w.cfg.MothercellPassiveChance

	for ; m.activeQueue > 0; m.activeQueue-- {
		if m.SquareSize() > minSquare {
			w.emitPellet(m)
			m.SetSquareSize(m.SquareSize() - pellet*pellet)
		} else if m.size > w.cfg.MothercellSize {
			m.SetSize(w.cfg.MothercellSize)
		}
	}
	for ; m.passQueue > 0; m.passQueue-- {
		if m.pelletCount < w.cfg.MothercellMaxPellets {
			w.emitPellet(m)
		}
	}
}

func (w *World) emitPellet(m *Cell) {
	angle := w.rng.Float64() * 2 * math.Pi
	sin, cos := math.Sin(angle), math.Cos(angle)
	c := newCell(KindPellet, m.x+m.size*sin, m.y+m.size*cos, w.cfg.PelletMinSize, w.RandomColor())
	c.creator = m.ID
	d := w.cfg.MothercellPelletBoost
	c.boost = Boost{DX: sin, DY: cos, D: d/2 + w.rng.Float64()*d/2}
	w.AddCell(c)
	w.SetBoosting(c)
}

// ClampBorder keeps every cell's center within the border, shrunk by half
// its radius. Boosts pointing outward are reflected.
func (w *World) ClampBorder() {
	b := w.border
	for _, c := range w.list {
		if c.Exists() {
			w.bounceCell(c, b.Left(), b.Right(), b.Top(), b.Bottom())
		}
	}
}

func (w *World) bounceCell(c *Cell, left, right, top, bottom float64) {
	r := c.size / 2
	x, y := c.x, c.y
	if x <= left+r {
		x = left + r
		c.boost.DX = math.Abs(c.boost.DX)
	}
	if x >= right-r {
		x = right - r
		c.boost.DX = -math.Abs(c.boost.DX)
	}
	if y <= top+r {
		y = top + r
		c.boost.DY = math.Abs(c.boost.DY)
	}
	if y >= bottom-r {
		y = bottom - r
		c.boost.DY = -math.Abs(c.boost.DY)
	}
	c.SetPosition(x, y)
}
