package system

import (
	"time"

	coresys "github.com/cellarena/server/internal/core/system"
	"github.com/cellarena/server/internal/world"
)

// worldStep runs one world phase method.
type worldStep struct {
	phase coresys.Phase
	run   func()
}

func (s worldStep) Phase() coresys.Phase   { return s.phase }
func (s worldStep) Update(_ time.Duration) { s.run() }

// WorldSteps returns the simulation phases between input draining and
// output, in order.
func WorldSteps(w *world.World) []coresys.System {
	return []coresys.System{
		worldStep{coresys.PhaseDeferred, func() {
			w.BeginTick()
			w.RunDeferred()
		}},
		worldStep{coresys.PhasePopulate, w.Populate},
		worldStep{coresys.PhaseInput, w.ApplyAllInput},
		worldStep{coresys.PhaseMotion, w.Motion},
		worldStep{coresys.PhaseCollision, w.Collide},
		worldStep{coresys.PhaseBorder, w.ClampBorder},
		worldStep{coresys.PhaseIndex, w.MaintainIndex},
	}
}
