package world

import "container/heap"

type deferred struct {
	tick   uint64
	seq    uint64
	cellID uint32
	fn     func(w *World, c *Cell)
}

// schedule is a min-heap of deferred per-cell callbacks ordered by tick and
// then by insertion order.
type schedule struct {
	items []deferred
	seq   uint64
}

func (s *schedule) Len() int { return len(s.items) }

func (s *schedule) Less(i, j int) bool {
	a, b := s.items[i], s.items[j]
	if a.tick != b.tick {
		return a.tick < b.tick
	}
	return a.seq < b.seq
}

func (s *schedule) Swap(i, j int) { s.items[i], s.items[j] = s.items[j], s.items[i] }

func (s *schedule) Push(x any) { s.items = append(s.items, x.(deferred)) }

func (s *schedule) Pop() any {
	last := len(s.items) - 1
	d := s.items[last]
	s.items[last] = deferred{}
	s.items = s.items[:last]
	return d
}

// After runs fn for c once ticks ticks have passed. Callbacks for cells
// removed in the meantime are dropped.
func (w *World) After(ticks uint64, c *Cell, fn func(w *World, c *Cell)) {
	if ticks == 0 {
		ticks = 1
	}
	w.sched.seq++
	heap.Push(&w.sched, deferred{tick: w.tick + ticks, seq: w.sched.seq, cellID: c.ID, fn: fn})
}

// Pending returns the number of queued callbacks.
func (w *World) Pending() int { return w.sched.Len() }

// RunDeferred drains every callback due at or before the current tick.
func (w *World) RunDeferred() {
	for w.sched.Len() > 0 && w.sched.items[0].tick <= w.tick {
		d := heap.Pop(&w.sched).(deferred)
		c := w.cells[d.cellID]
		if c == nil || !c.Exists() {
			continue
		}
		d.fn(w, c)
	}
}

func (w *World) schedulePelletGrowth(c *Cell) {
	if c.size >= w.cfg.PelletMaxSize {
		return
	}
	w.After(w.cfg.PelletGrowTicks, c, growPellet)
}

func growPellet(w *World, c *Cell) {
	if c.size >= w.cfg.PelletMaxSize {
		return
	}
	c.SetMass(c.Mass() + 1)
	if c.size > w.cfg.PelletMaxSize {
		c.SetSize(w.cfg.PelletMaxSize)
	}
	w.schedulePelletGrowth(c)
}

func (w *World) scheduleMothercellPulse(c *Cell) {
	w.After(w.cfg.MothercellPulseTicks, c, pulseMothercell)
}

func pulseMothercell(w *World, c *Cell) {
	w.mothercellTick(c)
	w.scheduleMothercellPulse(c)
}
