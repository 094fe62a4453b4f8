package system

import (
	"sort"
	"time"
)

const phaseCount = int(PhaseCleanup) + 1

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order. The time spent in each phase during the last
// tick is kept for overrun reports.
type Runner struct {
	systems []System
	spent   [phaseCount]time.Duration
	now     func() time.Time
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
		now:     time.Now,
	}
}

// Register inserts s after every system of the same or an earlier phase.
func (r *Runner) Register(s System) {
	i := sort.Search(len(r.systems), func(i int) bool {
		return r.systems[i].Phase() > s.Phase()
	})
	r.systems = append(r.systems, nil)
	copy(r.systems[i+1:], r.systems[i:])
	r.systems[i] = s
}

// Tick runs every system once. Panics propagate to the caller.
func (r *Runner) Tick(dt time.Duration) {
	r.spent = [phaseCount]time.Duration{}
	for _, s := range r.systems {
		start := r.now()
		s.Update(dt)
		if p := s.Phase(); p >= 0 && int(p) < phaseCount {
			r.spent[p] += r.now().Sub(start)
		}
	}
}

// TickPhase runs only the systems of one phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

// Phases lists the registered phases in execution order, one entry per
// system.
func (r *Runner) Phases() []Phase {
	out := make([]Phase, len(r.systems))
	for i, s := range r.systems {
		out[i] = s.Phase()
	}
	return out
}

// Spent returns the time the last Tick spent in phase p.
func (r *Runner) Spent(p Phase) time.Duration {
	if p < 0 || int(p) >= phaseCount {
		return 0
	}
	return r.spent[p]
}

// Slowest returns the phase that took longest during the last Tick.
func (r *Runner) Slowest() (Phase, time.Duration) {
	var best Phase
	for p := range r.spent {
		if r.spent[p] > r.spent[best] {
			best = Phase(p)
		}
	}
	return best, r.spent[best]
}
