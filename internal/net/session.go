package net

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Session represents a single client connection. Network I/O runs in
// dedicated goroutines; game state is accessed only from the game loop.
type Session struct {
	ID   uint64
	IP   string
	conn Conn

	// codec is set by the reader before the session is announced to the
	// game loop and never changes afterwards.
	codec protocol.Codec

	Mailbox  *Mailbox
	OutQueue chan []byte // writer goroutine reads from here

	// PlayerID is the world player bound to this session (game loop only).
	PlayerID uint32

	outBuf [][]byte // buffered frames, flushed once per tick (game loop only)

	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// Per-second frame rate limiter (reader goroutine only, no lock needed)
	framesPerSec int
	frameCount   int
	frameResetAt int64

	onReady func(*Session)
	onClose func(*Session)

	log *zap.Logger
}

func NewSession(conn Conn, id uint64, cfg config.NetworkConfig, log *zap.Logger) *Session {
	return &Session{
		ID:           id,
		IP:           conn.RemoteAddr(),
		conn:         conn,
		Mailbox:      NewMailbox(cfg.MailboxSize),
		OutQueue:     make(chan []byte, cfg.OutQueueSize),
		closeCh:      make(chan struct{}),
		framesPerSec: cfg.FramesPerSec,
		log:          log.With(zap.Uint64("session", id)),
	}
}

// Start launches the reader and writer goroutines. onReady runs on the
// reader goroutine once the protocol is negotiated; onClose runs once when
// the session closes. Either may be nil.
func (s *Session) Start(onReady, onClose func(*Session)) {
	s.onReady, s.onClose = onReady, onClose
	go s.readLoop()
	go s.writeLoop()
}

// Codec returns the negotiated codec.
func (s *Session) Codec() protocol.Codec { return s.codec }

// Send buffers frames for sending. They reach the socket after FlushOutput.
// Called only from the game loop goroutine.
func (s *Session) Send(frames ...[]byte) {
	if s.closed.Load() {
		return
	}
	s.outBuf = append(s.outBuf, frames...)
}

// FlushOutput drains the output buffer to OutQueue for the writeLoop goroutine.
// Non-blocking: if OutQueue is full, the session is disconnected (backpressure).
func (s *Session) FlushOutput() {
	for _, data := range s.outBuf {
		select {
		case s.OutQueue <- data:
		default:
			s.log.Warn("output queue full, dropping slow connection")
			s.Close(websocket.ClosePolicyViolation, "Too slow")
			clear(s.outBuf)
			s.outBuf = s.outBuf[:0]
			return
		}
	}
	clear(s.outBuf)
	s.outBuf = s.outBuf[:0]
}

// Close shuts the session down with a close code and reason. Only the first
// call has any effect.
func (s *Session) Close(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.closeCh)
		s.conn.Close(code, reason)
		if reason != "" {
			s.log.Debug("session closed", zap.Int("code", code), zap.String("reason", reason))
		}
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// fail closes the session for a decode error.
func (s *Session) fail(err error) {
	var pe *protocol.Error
	if errors.As(err, &pe) {
		s.log.Debug("protocol violation", zap.String("reason", pe.Reason))
		s.Close(pe.Code, pe.Reason)
		return
	}
	s.log.Warn("decode failed", zap.Error(err))
	s.Close(websocket.CloseInternalServerErr, "")
}

// overRate counts one frame against the per-second budget.
func (s *Session) overRate() bool {
	if s.framesPerSec <= 0 {
		return false
	}
	now := time.Now().Unix()
	if now != s.frameResetAt {
		s.frameCount = 0
		s.frameResetAt = now
	}
	s.frameCount++
	return s.frameCount > s.framesPerSec
}

// readLoop runs in its own goroutine. The first frame negotiates the
// protocol; every later frame is decoded into commands for the mailbox.
func (s *Session) readLoop() {
	defer s.Close(websocket.CloseNormalClosure, "")

	var cmds []protocol.Command
	for {
		frame, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				s.log.Debug("read error", zap.Error(err))
			}
			return
		}
		if s.overRate() {
			s.log.Warn("frame rate exceeded", zap.Int("fps", s.frameCount))
			s.Close(websocket.ClosePolicyViolation, "Too many messages")
			return
		}

		if s.codec == nil {
			codec, err := protocol.Negotiate(frame, s.log)
			if err != nil {
				s.fail(err)
				return
			}
			s.codec = codec
			s.log.Debug("protocol negotiated",
				zap.String("family", codec.Family()),
				zap.Uint32("version", codec.Version()),
			)
			if s.onReady != nil {
				s.onReady(s)
			}
			continue
		}

		cmds, err = s.codec.Decode(frame, cmds[:0])
		if err != nil {
			s.fail(err)
			return
		}
		staged := cmds[:0]
		for _, c := range cmds {
			if _, ok := c.(protocol.Ping); ok {
				s.sendNow(s.codec.Pong())
				continue
			}
			staged = append(staged, c)
		}
		if len(staged) > 0 && !s.Mailbox.Push(staged...) {
			s.log.Warn("mailbox overflow", zap.Int("staged", s.Mailbox.Len()))
			s.Close(websocket.ClosePolicyViolation, "Too many messages")
			return
		}
	}
}

// sendNow queues a frame from outside the game loop, dropping it when the
// queue is full.
func (s *Session) sendNow(data []byte) {
	if data == nil || s.closed.Load() {
		return
	}
	select {
	case s.OutQueue <- data:
	default:
	}
}

// writeLoop runs in its own goroutine and writes queued frames in order.
func (s *Session) writeLoop() {
	defer s.Close(websocket.CloseNormalClosure, "")

	for {
		select {
		case data := <-s.OutQueue:
			if err := s.conn.WriteMessage(data); err != nil {
				if !s.closed.Load() {
					s.log.Debug("write error", zap.Error(err))
				}
				return
			}
		case <-s.closeCh:
			return
		}
	}
}
