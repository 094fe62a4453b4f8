package system

import (
	"time"

	coresys "github.com/cellarena/server/internal/core/system"
	"github.com/cellarena/server/internal/net"
	"github.com/cellarena/server/internal/protocol"
	"github.com/cellarena/server/internal/world"
	"go.uber.org/zap"
)

// OutputSystem recomputes every view, diffs each player's visible set and
// hands the encoded frames to the session's writer. Phase 8 (Output).
type OutputSystem struct {
	store      *net.SessionStore
	world      *world.World
	relay      *Relay
	serverName string
	startTime  int64
	now        func() time.Time
	log        *zap.Logger

	cs  world.ChangeSet
	box protocol.Outbox
}

func NewOutputSystem(
	store *net.SessionStore,
	w *world.World,
	relay *Relay,
	serverName string,
	startTime int64,
	log *zap.Logger,
) *OutputSystem {
	return &OutputSystem{
		store:      store,
		world:      w,
		relay:      relay,
		serverName: serverName,
		startTime:  startTime,
		now:        time.Now,
		log:        log,
	}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	s.world.UpdateViews()
	lb, fresh := s.world.Leaderboard()

	var stats *protocol.Stats
	s.store.ForEach(func(sess *net.Session) {
		if sess.IsClosed() {
			return
		}
		p := s.world.Player(sess.PlayerID)
		if p == nil {
			return
		}
		box := &s.box
		box.Clear()

		if s.relay.joined[sess.ID] {
			box.Reset = true
			box.Bounds = boundsOf(s.world, s.serverName)
		}
		box.OwnedCells = append(box.OwnedCells, p.TakeNewCells()...)
		if p.State == world.StateSpectating || p.State == world.StateRoaming {
			box.Camera = &protocol.Camera{
				X:     float32(p.View.X),
				Y:     float32(p.View.Y),
				Scale: float32(p.View.Scale),
			}
		}

		s.world.SyncVisibility(p, &s.cs)
		changes := &protocol.CellChanges{}
		appendChanges(changes, &s.cs)
		box.Cells = changes

		if fresh {
			box.Leaderboard = viewerLeaderboard(lb, p.ID)
		}
		box.Chat = append(box.Chat, s.relay.chat...)
		if s.relay.stats[sess.ID] {
			if stats == nil {
				stats = s.statsSnapshot()
			}
			box.Stats = stats
		}

		sess.Send(sess.Codec().Encode(box)...)
		sess.FlushOutput()
	})
}

func (s *OutputSystem) statsSnapshot() *protocol.Stats {
	st := s.world.Stats()
	return &protocol.Stats{
		Mode:         s.world.Gamemode().Name(),
		Update:       float64(st.TickTime) / float64(time.Millisecond),
		PlayersTotal: st.Players,
		PlayersAlive: st.Playing,
		PlayersSpect: st.Spectating,
		PlayersLimit: s.world.Config().MaxPlayers,
		Uptime:       s.now().Unix() - s.startTime,
		Name:         s.serverName,
	}
}

// CleanupSystem clears dirty flags and the relay's per-tick state.
// Phase 9 (Cleanup).
type CleanupSystem struct {
	world *world.World
	relay *Relay
}

func NewCleanupSystem(w *world.World, relay *Relay) *CleanupSystem {
	return &CleanupSystem{world: w, relay: relay}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.world.ClearDirty()
	s.relay.endTick()
}
