package engine

import (
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/latency"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
)

// DefaultOutboxSize is the outbound queue capacity per connection.
const DefaultOutboxSize = 20

// Outbox is the outbound queue of one live connection. The session pump is
// its only reader; when the connection dies nobody reads it again.
type Outbox chan types.Msg

func NewOutbox(size int) Outbox {
	if size <= 0 {
		size = DefaultOutboxSize
	}
	return make(Outbox, size)
}

// Send queues msg without blocking. It reports false when the queue is
// full or there is no queue.
func (o Outbox) Send(msg types.Msg) bool {
	if o == nil {
		return false
	}
	select {
	case o <- msg:
		return true
	default:
		return false
	}
}

// Identity is who a message came from. HostID names the host connection;
// once a newer host attaches, the older one's commands are ignored.
type Identity struct {
	Host   bool
	HostID string
	PID    types.PlayerID
}

func HostIdentity() Identity { return Identity{Host: true} }

func PlayerIdentity(pid types.PlayerID) Identity { return Identity{PID: pid} }

type HostEntry struct {
	ID  string
	out Outbox
}

// PlayerEntry outlives connections: a reconnect swaps out and keeps the rest.
type PlayerEntry struct {
	Player  types.Player
	out     Outbox
	latency *latency.Tracker
}

func newPlayerEntry(p types.Player, out Outbox) *PlayerEntry {
	return &PlayerEntry{Player: p, out: out, latency: latency.NewTracker()}
}

func (p *PlayerEntry) Outbox() Outbox { return p.out }

// Latency is the player's current one-way latency estimate.
func (p *PlayerEntry) Latency() time.Duration { return p.latency.Estimate() }
