package system

import "github.com/cellarena/server/internal/protocol"

// Relay carries per-tick traffic that does not come from the world: chat
// lines, stats requests and sessions that still need the world reset.
// Game loop only.
type Relay struct {
	chat   []protocol.ChatMessage
	stats  map[uint64]bool
	joined map[uint64]bool
}

func NewRelay() *Relay {
	return &Relay{
		stats:  make(map[uint64]bool),
		joined: make(map[uint64]bool),
	}
}

// Chat queues a line for every session this tick.
func (r *Relay) Chat(m protocol.ChatMessage) { r.chat = append(r.chat, m) }

func (r *Relay) requestStats(session uint64) { r.stats[session] = true }
func (r *Relay) markJoined(session uint64)   { r.joined[session] = true }

// endTick forgets everything delivered this tick.
func (r *Relay) endTick() {
	clear(r.chat)
	r.chat = r.chat[:0]
	clear(r.stats)
	clear(r.joined)
}
