package spatial

import (
	"fmt"
	"math"
)

// Rect is an axis-aligned rectangle described by its center and half extents.
type Rect struct {
	X, Y float64
	W, H float64
}

func (r Rect) Left() float64   { return r.X - r.W }
func (r Rect) Right() float64  { return r.X + r.W }
func (r Rect) Top() float64    { return r.Y - r.H }
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Intersects reports whether r and o overlap (touching edges count).
func (r Rect) Intersects(o Rect) bool {
	return r.Left() <= o.Right() && r.Right() >= o.Left() &&
		r.Top() <= o.Bottom() && r.Bottom() >= o.Top()
}

// Contains reports whether o lies fully inside r.
func (r Rect) Contains(o Rect) bool {
	return o.Left() >= r.Left() && o.Right() <= r.Right() &&
		o.Top() >= r.Top() && o.Bottom() <= r.Bottom()
}

// quadrants splits r into top-left, top-right, bottom-left, bottom-right.
func (r Rect) quadrants() [4]Rect {
	hw, hh := r.W/2, r.H/2
	return [4]Rect{
		{X: r.X - hw, Y: r.Y - hh, W: hw, H: hh},
		{X: r.X + hw, Y: r.Y - hh, W: hw, H: hh},
		{X: r.X - hw, Y: r.Y + hh, W: hw, H: hh},
		{X: r.X + hw, Y: r.Y + hh, W: hw, H: hh},
	}
}

func (r Rect) valid() bool {
	if math.IsNaN(r.X) || math.IsNaN(r.Y) || math.IsNaN(r.W) || math.IsNaN(r.H) {
		return false
	}
	return r.W >= 0 && r.H >= 0
}

func mustValid(r Rect) {
	if !r.valid() {
		panic(fmt.Sprintf("spatial: invalid rect %+v", r))
	}
}
