package net

import (
	"errors"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/cellarena/server/internal/config"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server accepts client connections and creates Sessions. Sessions reach
// the game loop through a channel once their protocol is negotiated.
type Server struct {
	cfg      config.NetworkConfig
	listener net.Listener
	httpSrv  *http.Server
	upgrader websocket.Upgrader

	nextID   atomic.Uint64
	active   atomic.Int64
	newConns chan *Session

	log     *zap.Logger
	closeCh chan struct{}
}

func NewServer(cfg config.NetworkConfig, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", cfg.BindAddress)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      cfg,
		listener: ln,
		newConns: make(chan *Session, 64),
		log:      log,
		closeCh:  make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Game clients are served from arbitrary origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	mux := http.NewServeMux()
	mux.HandleFunc(cfg.WebSocketPath, s.handleUpgrade)
	s.httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: cfg.ReadTimeout}
	return s, nil
}

// Serve blocks serving the configured transport until Shutdown.
func (s *Server) Serve() {
	if s.cfg.Transport == "tcp" {
		s.AcceptLoop()
		return
	}
	if err := s.httpSrv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("websocket server stopped", zap.Error(err))
	}
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.full() {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("upgrade failed", zap.Error(err))
		return
	}
	s.accept(NewWebSocketConn(ws, s.cfg.MaxFrameSize, s.cfg.WriteTimeout))
}

// AcceptLoop accepts raw TCP connections until the listener closes.
func (s *Server) AcceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closeCh:
				return // server shutting down
			default:
			}
			s.log.Error("accept failed", zap.Error(err))
			continue
		}
		if s.full() {
			conn.Close()
			continue
		}
		s.accept(NewTCPConn(conn, s.cfg.MaxFrameSize, s.cfg.WriteTimeout))
	}
}

func (s *Server) full() bool {
	return s.cfg.MaxConnections > 0 && s.active.Load() >= int64(s.cfg.MaxConnections)
}

func (s *Server) accept(conn Conn) {
	id := s.nextID.Add(1)
	s.active.Add(1)
	sess := NewSession(conn, id, s.cfg, s.log)
	s.log.Info("client connected", zap.Uint64("session", id), zap.String("ip", sess.IP))
	sess.Start(s.announce, func(*Session) { s.active.Add(-1) })
}

// announce hands a negotiated session to the game loop.
func (s *Server) announce(sess *Session) {
	select {
	case s.newConns <- sess:
	default:
		s.log.Warn("connection queue full, rejecting", zap.Uint64("session", sess.ID))
		sess.Close(websocket.CloseTryAgainLater, "Server busy")
	}
}

// NewSessions returns the channel of negotiated sessions.
func (s *Server) NewSessions() <-chan *Session {
	return s.newConns
}

// Active returns the number of open connections.
func (s *Server) Active() int { return int(s.active.Load()) }

// Shutdown stops accepting new connections.
func (s *Server) Shutdown() {
	close(s.closeCh)
	s.httpSrv.Close()
	s.listener.Close()
}

// Addr returns the listener's address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}
