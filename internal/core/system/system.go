package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseDrain      Phase = iota // 0: bus dispatch, sessions, mailboxes
	PhaseDeferred                // 1: tick counter, scheduled callbacks
	PhasePopulate                // 2: pellets, viruses, mothercells
	PhaseInput                   // 3: apply staged player input
	PhaseMotion                  // 4: boost, movement, decay, autosplit
	PhaseCollision               // 5: broad and narrow phase, eat marking
	PhaseBorder                  // 6: clamp to the world border
	PhaseIndex                   // 7: index sync, removal of eaten cells
	PhaseOutput                  // 8: views, visibility, encode, flush
	PhaseCleanup                 // 9: clear dirty flags, persistence
)

var phaseNames = [...]string{
	"drain", "deferred", "populate", "input", "motion",
	"collision", "border", "index", "output", "cleanup",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// System is one step of the tick pipeline.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
