package net

import (
	"sync"

	"github.com/cellarena/server/internal/protocol"
)

// Mailbox stages decoded commands between a connection's reader goroutine
// and the game loop. It is a bounded FIFO safe for one producer and one
// consumer.
type Mailbox struct {
	mu    sync.Mutex
	items []protocol.Command
	limit int
}

func NewMailbox(limit int) *Mailbox {
	if limit < 1 {
		limit = 1
	}
	return &Mailbox{items: make([]protocol.Command, 0, min(limit, 64)), limit: limit}
}

// Push stages cmds in order. It returns false, staging nothing, when they
// do not fit.
func (m *Mailbox) Push(cmds ...protocol.Command) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.items)+len(cmds) > m.limit {
		return false
	}
	m.items = append(m.items, cmds...)
	return true
}

// Drain appends every staged command to dst in arrival order and empties
// the mailbox.
func (m *Mailbox) Drain(dst []protocol.Command) []protocol.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	dst = append(dst, m.items...)
	clear(m.items)
	m.items = m.items[:0]
	return dst
}

func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
