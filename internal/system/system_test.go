package system

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/core/event"
	coresys "github.com/cellarena/server/internal/core/system"
	"github.com/cellarena/server/internal/gamemode"
	"github.com/cellarena/server/internal/net"
	"github.com/cellarena/server/internal/persist"
	"github.com/cellarena/server/internal/protocol"
	"github.com/cellarena/server/internal/world"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

type memConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
	mu     sync.Mutex
	code   int
	reason string
}

func newMemConn() *memConn {
	return &memConn{in: make(chan []byte, 16), out: make(chan []byte, 64), closed: make(chan struct{})}
}

func (c *memConn) ReadMessage() ([]byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	case <-c.closed:
		return nil, errors.New("closed")
	}
}

func (c *memConn) WriteMessage(b []byte) error {
	select {
	case c.out <- b:
		return nil
	case <-c.closed:
		return errors.New("closed")
	}
}

func (c *memConn) Close(code int, reason string) error {
	c.once.Do(func() {
		c.mu.Lock()
		c.code, c.reason = code, reason
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

func (c *memConn) RemoteAddr() string { return "mem" }

func (c *memConn) closeCode() (int, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code, c.reason
}

type chanSource chan *net.Session

func (s chanSource) NewSessions() <-chan *net.Session { return s }

type memRecorder struct {
	runs  []persist.PlayerRun
	stats []persist.WorldStat
}

func (r *memRecorder) RecordRun(run persist.PlayerRun)  { r.runs = append(r.runs, run) }
func (r *memRecorder) RecordStats(st persist.WorldStat) { r.stats = append(r.stats, st) }

type harness struct {
	t      *testing.T
	world  *world.World
	bus    *event.Bus
	store  *net.SessionStore
	source chanSource
	rec    *memRecorder
	runner *coresys.Runner
	nextID uint64
}

func newHarness(t *testing.T, mutate func(*config.WorldConfig)) *harness {
	t.Helper()
	log := zaptest.NewLogger(t)
	cfg := config.DefaultWorld()
	cfg.Seed = 3
	cfg.PelletCount = 20
	cfg.VirusMinCount = 0
	cfg.MapW, cfg.MapH = 1000, 1000
	if mutate != nil {
		mutate(&cfg)
	}
	gm, err := gamemode.New(config.GamemodeConfig{Mode: "ffa"}, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		t:      t,
		bus:    event.NewBus(),
		store:  net.NewSessionStore(),
		source: make(chanSource, 8),
		rec:    &memRecorder{},
		runner: coresys.NewRunner(),
	}
	h.world = world.New(cfg, gm, log, world.WithBus(h.bus))
	relay := NewRelay()
	h.runner.Register(NewInputSystem(h.source, h.store, h.world, h.bus, relay, true, log))
	for _, s := range WorldSteps(h.world) {
		h.runner.Register(s)
	}
	h.runner.Register(NewOutputSystem(h.store, h.world, relay, "test arena", time.Now().Unix(), log))
	h.runner.Register(NewStatsSystem(h.world, h.bus, h.rec, log))
	h.runner.Register(NewCleanupSystem(h.world, relay))
	return h
}

// connect opens a session, sends the handshake frames and waits until the
// session is announced.
func (h *harness) connect(handshake ...[]byte) (*net.Session, *memConn) {
	h.t.Helper()
	h.nextID++
	conn := newMemConn()
	cfg := config.Defaults().Network
	sess := net.NewSession(conn, h.nextID, cfg, zaptest.NewLogger(h.t))
	sess.Start(func(s *net.Session) { h.source <- s }, nil)
	for _, f := range handshake {
		conn.in <- f
	}
	waitFor(h.t, func() bool { return len(h.source) > 0 })
	return sess, conn
}

func (h *harness) tick() { h.runner.Tick(40 * time.Millisecond) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func readFrame(t *testing.T, conn *memConn) []byte {
	t.Helper()
	select {
	case f := <-conn.out:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame")
		return nil
	}
}

func TestLegacyJoinAndSpawn(t *testing.T) {
	h := newHarness(t, nil)
	sess, conn := h.connect([]byte{254, 6, 0, 0, 0})
	conn.in <- []byte{255, 1, 0, 0, 0}
	conn.in <- []byte{0, 'b', 'o', 'b', 0}
	waitFor(t, func() bool { return sess.Mailbox.Len() == 1 })

	h.tick()
	if h.store.Count() != 1 {
		t.Fatalf("store holds %d sessions", h.store.Count())
	}
	p := h.world.Player(sess.PlayerID)
	if p == nil || p.State != world.StatePlaying || p.CellName != "bob" {
		t.Fatalf("player after first tick: %+v", p)
	}

	var tags []byte
	for i := 0; i < 4; i++ {
		tags = append(tags, readFrame(t, conn)[0])
	}
	want := []byte{18, 64, 32, 16}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("frame tags %v, want prefix %v", tags, want)
		}
	}

	// Later ticks carry no reset.
	h.tick()
	var resets, cells int
	for {
		select {
		case f := <-conn.out:
			switch f[0] {
			case 18:
				resets++
			case 16:
				cells++
			}
			continue
		case <-time.After(200 * time.Millisecond):
		}
		break
	}
	if resets != 0 || cells != 1 {
		t.Fatalf("after join: %d resets, %d cell frames", resets, cells)
	}
}

func TestModernChatAndStats(t *testing.T) {
	h := newHarness(t, nil)
	sess, conn := h.connect([]byte{1, 3, 0, 0, 0})
	h.tick()
	first, err := protocol.DecodeModernFrame(readFrame(t, conn))
	if err != nil {
		t.Fatal(err)
	}
	if !first.Reset || first.Bounds == nil || first.Bounds.ServerName != "test arena" {
		t.Fatalf("join frame %+v", first)
	}
	if first.Bounds.Right-first.Bounds.Left != 2000 {
		t.Errorf("bounds width %v", first.Bounds.Right-first.Bounds.Left)
	}

	sess.Mailbox.Push(protocol.Chat{Text: "  hello  "}, protocol.StatsRequest{})
	h.tick()
	box, err := protocol.DecodeModernFrame(readFrame(t, conn))
	if err != nil {
		t.Fatal(err)
	}
	if box.Reset {
		t.Error("reset repeated after join")
	}
	if len(box.Chat) != 1 || box.Chat[0].Text != "hello" || box.Chat[0].Name != "An unnamed cell" {
		t.Fatalf("chat %+v", box.Chat)
	}
	if box.Stats == nil || box.Stats.Mode != "FFA" || box.Stats.PlayersTotal != 1 || box.Stats.Name != "test arena" {
		t.Fatalf("stats %+v", box.Stats)
	}
}

func TestServerFullRejects(t *testing.T) {
	h := newHarness(t, func(c *config.WorldConfig) { c.MaxPlayers = 1 })
	_, _ = h.connect([]byte{1, 3, 0, 0, 0})
	h.tick()
	second, conn := h.connect([]byte{1, 3, 0, 0, 0})
	h.tick()

	if !second.IsClosed() {
		t.Fatal("second session should be closed")
	}
	code, reason := conn.closeCode()
	if code != websocket.CloseTryAgainLater || reason != "Server full" {
		t.Errorf("close %d %q", code, reason)
	}
	if h.store.Count() != 1 || len(h.world.Players()) != 1 {
		t.Errorf("store %d players %d", h.store.Count(), len(h.world.Players()))
	}
}

func TestDisconnectRemovesSession(t *testing.T) {
	h := newHarness(t, nil)
	sess, conn := h.connect([]byte{1, 3, 0, 0, 0})
	h.tick()
	id := sess.PlayerID

	conn.Close(websocket.CloseNormalClosure, "")
	waitFor(t, sess.IsClosed)
	h.tick()
	if h.store.Count() != 0 {
		t.Fatal("closed session still stored")
	}
	if p := h.world.Player(id); p != nil && !p.Disconnected {
		t.Error("player not marked disconnected")
	}
}

func TestDrainPhaseDeliversPendingEvents(t *testing.T) {
	h := newHarness(t, nil)
	sess, conn := h.connect([]byte{1, 3, 0, 0, 0})
	h.tick()
	event.Emit(h.bus, event.PlayerDied{Name: "last", MaxMass: 10, SpawnTick: 1, DeathTick: 2})
	conn.Close(websocket.CloseGoingAway, "Server shutting down")
	waitFor(t, sess.IsClosed)

	h.runner.TickPhase(coresys.PhaseDrain, 0)
	if len(h.rec.runs) != 1 || h.rec.runs[0].Name != "last" {
		t.Fatalf("runs %+v", h.rec.runs)
	}
	if h.store.Count() != 0 {
		t.Error("closed session still stored")
	}
	if len(h.rec.stats) != 0 {
		t.Error("drain alone should not record stats")
	}
}

func TestStatsSystemRecords(t *testing.T) {
	h := newHarness(t, func(c *config.WorldConfig) { c.StatsUpdateDelay = 2 })
	event.Emit(h.bus, event.PlayerDied{Name: "ghost", MaxMass: 42, SpawnTick: 1, DeathTick: 9})
	h.tick()
	h.tick()

	if len(h.rec.runs) != 1 || h.rec.runs[0].Name != "ghost" || h.rec.runs[0].Gamemode != "FFA" {
		t.Fatalf("runs %+v", h.rec.runs)
	}
	if len(h.rec.stats) != 1 || h.rec.stats[0].Tick != 2 || h.rec.stats[0].Pellets != 20 {
		t.Fatalf("stats %+v", h.rec.stats)
	}
}

func TestFieldsOf(t *testing.T) {
	got := fieldsOf(world.DirtySkin | world.DirtyPosition)
	if got != protocol.FieldSkin|protocol.FieldPosition {
		t.Errorf("skin+position -> %#x", got)
	}
	if fieldsOf(world.DirtyName) != protocol.FieldName {
		t.Error("name bit")
	}
}

func TestViewerLeaderboard(t *testing.T) {
	lb := world.Leaderboard{Kind: world.LeaderboardFFA}
	for i := uint32(1); i <= 12; i++ {
		lb.Entries = append(lb.Entries, world.LeaderboardEntry{PlayerID: i, Name: "p"})
	}
	out := viewerLeaderboard(lb, 3)
	if len(out.Entries) != leaderboardSize {
		t.Fatalf("entries %d", len(out.Entries))
	}
	for i, e := range out.Entries {
		if e.Self != (i == 2) {
			t.Errorf("entry %d self=%v", i, e.Self)
		}
	}
	if viewerLeaderboard(lb, 12).Entries[9].Self {
		t.Error("a viewer outside the top entries is not flagged")
	}
}
