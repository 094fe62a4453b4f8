package net

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cellarena/server/internal/config"
	"github.com/cellarena/server/internal/protocol"
	"github.com/gorilla/websocket"
	"go.uber.org/zap/zaptest"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes()[:4], []byte{3, 0, 0, 0}) {
		t.Fatalf("header % x", buf.Bytes()[:4])
	}
	got, err := ReadFrame(&buf, 16)
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("got % x, %v", got, err)
	}

	WriteFrame(&buf, make([]byte, 17))
	if _, err := ReadFrame(&buf, 16); err == nil {
		t.Fatal("oversized frame accepted")
	}
}

func TestMailbox(t *testing.T) {
	m := NewMailbox(3)
	if !m.Push(protocol.Split{Count: 1}, protocol.Eject{Count: 1}) {
		t.Fatal("push within capacity failed")
	}
	if m.Push(protocol.Spectate{}, protocol.StatsRequest{}) {
		t.Fatal("push beyond capacity must fail")
	}
	if !m.Push(protocol.Spectate{}) {
		t.Fatal("push to capacity failed")
	}
	got := m.Drain(nil)
	want := []protocol.Command{protocol.Split{Count: 1}, protocol.Eject{Count: 1}, protocol.Spectate{}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v", got)
	}
	if m.Len() != 0 || len(m.Drain(nil)) != 0 {
		t.Fatal("drain must empty the mailbox")
	}
}

// pipeConn is an in-memory Conn.
type pipeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	code   int
	reason string
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan []byte, 16), out: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *pipeConn) ReadMessage() ([]byte, error) {
	select {
	case b := <-c.in:
		return b, nil
	case <-c.closed:
		return nil, errors.New("closed")
	}
}

func (c *pipeConn) WriteMessage(b []byte) error {
	select {
	case c.out <- b:
		return nil
	case <-c.closed:
		return errors.New("closed")
	}
}

func (c *pipeConn) Close(code int, reason string) error {
	c.code, c.reason = code, reason
	close(c.closed)
	return nil
}

func (c *pipeConn) RemoteAddr() string { return "pipe" }

func testNetConfig() config.NetworkConfig {
	cfg := config.Defaults().Network
	cfg.BindAddress = "127.0.0.1:0"
	return cfg
}

func TestSessionNegotiatesAndStages(t *testing.T) {
	conn := newPipeConn()
	sess := NewSession(conn, 1, testNetConfig(), zaptest.NewLogger(t))
	ready := make(chan *Session, 1)
	sess.Start(func(s *Session) { ready <- s }, nil)

	conn.in <- []byte{1, 3, 0, 0, 0}
	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("session never became ready")
	}
	if sess.Codec().Family() != "modern" {
		t.Fatalf("family %s", sess.Codec().Family())
	}

	conn.in <- []byte{3, 10, 0, 0, 0, 20, 0, 0, 0, 0x02}
	conn.in <- []byte{2}
	select {
	case pong := <-conn.out:
		if !bytes.Equal(pong, []byte{2}) {
			t.Fatalf("pong % x", pong)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no pong")
	}
	got := sess.Mailbox.Drain(nil)
	want := []protocol.Command{protocol.Mouse{X: 10, Y: 20}, protocol.Spectate{}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("mailbox %#v", got)
	}

	conn.in <- []byte{9}
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("protocol error did not close the session")
	}
	if conn.code != protocol.CloseProtocolError || conn.reason != protocol.ReasonUnknownType {
		t.Fatalf("closed with %d %q", conn.code, conn.reason)
	}
	if !sess.IsClosed() {
		t.Error("session not marked closed")
	}
}

func TestSessionRejectsBadHandshake(t *testing.T) {
	conn := newPipeConn()
	sess := NewSession(conn, 1, testNetConfig(), zaptest.NewLogger(t))
	sess.Start(func(*Session) { t.Error("must not become ready") }, nil)
	conn.in <- []byte{254, 99, 0, 0, 0}
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("bad handshake did not close")
	}
	if conn.reason != protocol.ReasonUnsupportedVersion {
		t.Fatalf("reason %q", conn.reason)
	}
}

func TestWebSocketServer(t *testing.T) {
	srv, err := NewServer(testNetConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	go srv.Serve()
	defer srv.Shutdown()

	url := "ws://" + srv.Addr().String() + testNetConfig().WebSocketPath
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	ws.WriteMessage(websocket.BinaryMessage, []byte{254, 6, 0, 0, 0})
	var sess *Session
	select {
	case sess = <-srv.NewSessions():
	case <-time.After(2 * time.Second):
		t.Fatal("no session announced")
	}
	if sess.Codec().Family() != "legacy" || sess.Codec().Version() != 6 {
		t.Fatalf("codec %s %d", sess.Codec().Family(), sess.Codec().Version())
	}

	sess.Send([]byte{18})
	sess.FlushOutput()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := ws.ReadMessage()
	if err != nil || mt != websocket.BinaryMessage || !bytes.Equal(data, []byte{18}) {
		t.Fatalf("read %d % x %v", mt, data, err)
	}

	ws.WriteMessage(websocket.BinaryMessage, []byte{255, 0, 0, 0, 0})
	ws.WriteMessage(websocket.BinaryMessage, []byte{42})
	_, _, err = ws.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != protocol.CloseProtocolError || ce.Text != protocol.ReasonUnknownType {
		t.Fatalf("expected close 1003, got %v", err)
	}
}
