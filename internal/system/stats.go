package system

import (
	"time"

	"github.com/cellarena/server/internal/core/event"
	coresys "github.com/cellarena/server/internal/core/system"
	"github.com/cellarena/server/internal/persist"
	"github.com/cellarena/server/internal/world"
	"go.uber.org/zap"
)

// RunRecorder accepts finished lives and world samples without blocking.
type RunRecorder interface {
	RecordRun(persist.PlayerRun)
	RecordStats(persist.WorldStat)
}

// StatsSystem samples the world counters every StatsUpdateDelay ticks and
// forwards deaths from the bus to the recorder. Phase 9 (Cleanup), ahead
// of CleanupSystem.
type StatsSystem struct {
	world *world.World
	rec   RunRecorder
	log   *zap.Logger
}

func NewStatsSystem(w *world.World, bus *event.Bus, rec RunRecorder, log *zap.Logger) *StatsSystem {
	s := &StatsSystem{world: w, rec: rec, log: log}
	mode := w.Gamemode().Name()
	event.Subscribe(bus, func(e event.PlayerDied) {
		rec.RecordRun(persist.PlayerRun{
			Name:      e.Name,
			Skin:      e.Skin,
			Gamemode:  mode,
			MaxMass:   e.MaxMass,
			SpawnTick: e.SpawnTick,
			DeathTick: e.DeathTick,
		})
	})
	event.Subscribe(bus, func(e event.PlayerSpawned) {
		log.Debug("player spawned", zap.Uint32("player", e.PlayerID), zap.String("name", e.Name))
	})
	event.Subscribe(bus, func(e event.PlayerLeft) {
		log.Debug("player left",
			zap.Uint32("player", e.PlayerID),
			zap.Bool("playing", e.WasPlaying),
			zap.Float64("score", e.Score),
		)
	})
	return s
}

func (s *StatsSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *StatsSystem) Update(_ time.Duration) {
	n := s.world.Config().StatsUpdateDelay
	if n == 0 || s.world.Tick()%n != 0 {
		return
	}
	st := s.world.Stats()
	s.rec.RecordStats(persist.WorldStat{
		Tick:       st.Tick,
		Players:    st.Players,
		Playing:    st.Playing,
		Spectating: st.Spectating,
		Cells:      st.Cells,
		Pellets:    st.Pellets,
		Viruses:    st.Viruses,
		TickTime:   st.TickTime,
	})
}
