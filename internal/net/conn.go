package net

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one client transport carrying whole binary messages.
// ReadMessage is called from a single reader goroutine and WriteMessage from
// a single writer goroutine; Close may be called from anywhere.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close(code int, reason string) error
	RemoteAddr() string
}

// ErrTextMessage is returned when a WebSocket peer sends a text frame.
var ErrTextMessage = errors.New("text messages are not accepted")

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
}

// NewWebSocketConn wraps an upgraded WebSocket connection.
func NewWebSocketConn(ws *websocket.Conn, maxFrame int, writeTimeout time.Duration) Conn {
	ws.SetReadLimit(int64(maxFrame))
	return &wsConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	mt, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	if mt != websocket.BinaryMessage {
		return nil, ErrTextMessage
	}
	return data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a close frame carrying code and reason, then drops the socket.
func (c *wsConn) Close(code int, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(code, reason)
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) RemoteAddr() string { return c.ws.RemoteAddr().String() }

type tcpConn struct {
	conn         net.Conn
	maxFrame     int
	writeTimeout time.Duration
	closeOnce    sync.Once
}

// NewTCPConn wraps a raw stream connection using length-prefixed frames.
// The close code and reason have no wire representation here.
func NewTCPConn(conn net.Conn, maxFrame int, writeTimeout time.Duration) Conn {
	return &tcpConn{conn: conn, maxFrame: maxFrame, writeTimeout: writeTimeout}
}

func (c *tcpConn) ReadMessage() ([]byte, error) {
	return ReadFrame(c.conn, c.maxFrame)
}

func (c *tcpConn) WriteMessage(data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return WriteFrame(c.conn, data)
}

func (c *tcpConn) Close(int, string) error {
	var err error
	c.closeOnce.Do(func() { err = c.conn.Close() })
	return err
}

func (c *tcpConn) RemoteAddr() string { return c.conn.RemoteAddr().String() }
