package world

import (
	"sort"

	"github.com/cellarena/server/internal/spatial"
)

// CellUpdate names a visible cell and the fields that changed.
type CellUpdate struct {
	Cell   *Cell
	Fields Dirty
}

// EatPair records that Eaten disappeared into Eater.
type EatPair struct {
	Eater uint32
	Eaten uint32
}

// ChangeSet is what one viewer must learn about this tick. Every list is
// ordered by cell id.
type ChangeSet struct {
	Add    []*Cell
	Update []CellUpdate
	Eat    []EatPair
	Delete []uint32
}

// Empty reports whether the change set carries nothing.
func (cs *ChangeSet) Empty() bool {
	return len(cs.Add) == 0 && len(cs.Update) == 0 && len(cs.Eat) == 0 && len(cs.Delete) == 0
}

func (cs *ChangeSet) reset() {
	clear(cs.Add)
	cs.Add = cs.Add[:0]
	clear(cs.Update)
	cs.Update = cs.Update[:0]
	cs.Eat = cs.Eat[:0]
	cs.Delete = cs.Delete[:0]
}

const allFields = DirtyPosition | DirtySize | DirtyColor | DirtyName | DirtySkin

// SyncVisibility rebuilds p's visible set from its view area and owned cells
// and diffs it against the previous one into cs. A cell counts as updated
// when its version moved since p last saw it, so a second call without
// mutations in between yields an empty change set.
func (w *World) SyncVisibility(p *Player, cs *ChangeSet) {
	cs.reset()
	p.lastVisible, p.visible = p.visible, p.lastVisible
	clear(p.visible)

	for _, c := range p.Cells {
		if c.Exists() {
			p.visible[c.ID] = seen{cell: c, version: c.version}
		}
	}
	view := spatial.Rect{X: p.View.X, Y: p.View.Y, W: p.View.W, H: p.View.H}
	w.Search(view, func(c *Cell) {
		p.visible[c.ID] = seen{cell: c, version: c.version}
	})

	for id, now := range p.visible {
		before, ok := p.lastVisible[id]
		switch {
		case !ok:
			cs.Add = append(cs.Add, now.cell)
		case before.version != now.version:
			fields := now.cell.dirty
			if fields == 0 {
				fields = allFields
			}
			cs.Update = append(cs.Update, CellUpdate{Cell: now.cell, Fields: fields})
		}
	}
	for id, before := range p.lastVisible {
		if _, ok := p.visible[id]; ok {
			continue
		}
		if eater := before.cell.EatenBy; eater != 0 {
			cs.Eat = append(cs.Eat, EatPair{Eater: eater, Eaten: id})
			continue
		}
		cs.Delete = append(cs.Delete, id)
	}

	sort.Slice(cs.Add, func(i, j int) bool { return cs.Add[i].ID < cs.Add[j].ID })
	sort.Slice(cs.Update, func(i, j int) bool { return cs.Update[i].Cell.ID < cs.Update[j].Cell.ID })
	sort.Slice(cs.Eat, func(i, j int) bool { return cs.Eat[i].Eaten < cs.Eat[j].Eaten })
	sort.Slice(cs.Delete, func(i, j int) bool { return cs.Delete[i] < cs.Delete[j] })
}

// Visible reports whether p saw the cell with the given id in its last sync.
func (p *Player) Visible(id uint32) bool {
	_, ok := p.visible[id]
	return ok
}

// VisibleCount returns the size of p's current visible set.
func (p *Player) VisibleCount() int { return len(p.visible) }
