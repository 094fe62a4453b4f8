package system

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cellarena/server/internal/core/event"
	coresys "github.com/cellarena/server/internal/core/system"
	"github.com/cellarena/server/internal/net"
	"github.com/cellarena/server/internal/protocol"
	"github.com/cellarena/server/internal/world"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxChatLength caps a relayed chat line, in runes.
const maxChatLength = 128

// SessionSource yields sessions whose protocol has been negotiated.
type SessionSource interface {
	NewSessions() <-chan *net.Session
}

// InputSystem dispatches last tick's events, admits new sessions as
// players, marks closed sessions disconnected and drains every mailbox
// into the players' staged input. Phase 0 (Drain).
type InputSystem struct {
	source      SessionSource
	store       *net.SessionStore
	world       *world.World
	bus         *event.Bus
	relay       *Relay
	chatEnabled bool
	log         *zap.Logger

	cmds   []protocol.Command
	closed []*net.Session
}

func NewInputSystem(
	source SessionSource,
	store *net.SessionStore,
	w *world.World,
	bus *event.Bus,
	relay *Relay,
	chatEnabled bool,
	log *zap.Logger,
) *InputSystem {
	return &InputSystem{
		source:      source,
		store:       store,
		world:       w,
		bus:         bus,
		relay:       relay,
		chatEnabled: chatEnabled,
		log:         log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseDrain }

func (s *InputSystem) Update(_ time.Duration) {
	if s.bus != nil {
		s.bus.SwapBuffers()
		s.bus.DispatchAll()
	}

	// Accept new sessions
	for {
		select {
		case sess := <-s.source.NewSessions():
			s.join(sess)
		default:
			goto doneNew
		}
	}
doneNew:

	s.closed = s.closed[:0]
	s.store.ForEach(func(sess *net.Session) {
		p := s.world.Player(sess.PlayerID)
		if sess.IsClosed() {
			s.closed = append(s.closed, sess)
			if p != nil {
				s.world.Disconnect(p)
			}
			return
		}
		if p == nil {
			// The world disposed of the player; nothing left to drive.
			sess.Close(websocket.CloseNormalClosure, "")
			s.closed = append(s.closed, sess)
			return
		}
		s.cmds = sess.Mailbox.Drain(s.cmds[:0])
		for _, cmd := range s.cmds {
			s.apply(sess, p, cmd)
		}
	})
	for _, sess := range s.closed {
		s.log.Info("client disconnected", zap.Uint64("session", sess.ID))
		s.store.Remove(sess.ID)
	}
	clear(s.cmds)
}

func (s *InputSystem) join(sess *net.Session) {
	if sess.IsClosed() {
		return
	}
	if !s.world.Gamemode().CanJoinWorld(s.world) {
		s.log.Info("world full, rejecting", zap.Uint64("session", sess.ID))
		sess.Close(websocket.CloseTryAgainLater, "Server full")
		return
	}
	p := s.world.AddPlayer(sess.ID)
	sess.PlayerID = p.ID
	s.store.Add(sess)
	s.relay.markJoined(sess.ID)
	s.log.Debug("player joined",
		zap.Uint64("session", sess.ID),
		zap.Uint32("player", p.ID),
		zap.String("protocol", sess.Codec().Family()),
	)
}

func (s *InputSystem) apply(sess *net.Session, p *world.Player, cmd protocol.Command) {
	switch c := cmd.(type) {
	case protocol.Mouse:
		p.StageMouse(c.X, c.Y)
	case protocol.Spawn:
		p.StageSpawn(c.Name)
	case protocol.Spectate:
		p.StageSpectate()
	case protocol.Split:
		p.StageSplit(c.Count)
	case protocol.Eject:
		p.StageEject(c.Count)
	case protocol.QKey:
		p.StageQ(c.Pressed)
	case protocol.StatsRequest:
		s.relay.requestStats(sess.ID)
	case protocol.Chat:
		s.chat(p, c.Text)
	}
}

func (s *InputSystem) chat(p *world.Player, text string) {
	if !s.chatEnabled {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if utf8.RuneCountInString(text) > maxChatLength {
		text = string([]rune(text)[:maxChatLength])
	}
	name := p.CellName
	if name == "" {
		name = "An unnamed cell"
	}
	s.relay.Chat(protocol.ChatMessage{Color: p.CellColor, Name: name, Text: text})
}
