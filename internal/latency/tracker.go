// Package latency estimates a player's one-way network latency from the
// DoHeartbeat / Heartbeat / LatencyOfHeartbeat probe exchange.
package latency

import (
	"errors"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
)

// WindowSize is how many samples the rolling estimate averages.
const WindowSize = 5

// MaxPending bounds probes awaiting replies; the oldest is evicted first.
const MaxPending = 16

var ErrUnknownHeartbeat = errors.New("unknown heartbeat id")
var ErrNotReceived = errors.New("heartbeat receipt time not known")

type probe struct {
	sent    types.UnixMs
	recv    types.UnixMs
	hasRecv bool
}

// Tracker is not safe for concurrent use; it lives inside a room and is
// guarded by the registry lock.
type Tracker struct {
	samples [WindowSize]int64
	count   int
	next    int
	counter uint32
	pending map[types.HeartbeatID]probe
}

func NewTracker() *Tracker {
	return &Tracker{pending: make(map[types.HeartbeatID]probe)}
}

// Begin mints a heartbeat id and records the probe as sent at now.
func (t *Tracker) Begin(now time.Time) types.DoHeartbeat {
	sent := types.UnixMs(now.UnixMilli())
	t.counter++
	id := types.HeartbeatID(t.counter*1000 + uint32(sent%1000))

	if len(t.pending) >= MaxPending {
		t.evictOldest()
	}
	t.pending[id] = probe{sent: sent}
	return types.DoHeartbeat{HBID: id, TSent: sent}
}

// Received stores the client's receipt time for a probe.
func (t *Tracker) Received(id types.HeartbeatID, at types.UnixMs) error {
	p, ok := t.pending[id]
	if !ok {
		return ErrUnknownHeartbeat
	}
	p.recv, p.hasRecv = at, true
	t.pending[id] = p
	return nil
}

// Complete folds the client's return-latency measurement into the window
// and forgets the probe. It returns the sample that was recorded.
func (t *Tracker) Complete(id types.HeartbeatID, returnLat types.UnixMs) (time.Duration, error) {
	p, ok := t.pending[id]
	if !ok {
		return 0, ErrUnknownHeartbeat
	}
	if !p.hasRecv {
		return 0, ErrNotReceived
	}

	forward := int64(p.recv - p.sent)
	lat := max(int64(returnLat)-forward, 0)

	t.samples[t.next] = lat
	t.next = (t.next + 1) % WindowSize
	t.count = min(t.count+1, WindowSize)
	delete(t.pending, id)

	return time.Duration(lat) * time.Millisecond, nil
}

// Estimate is the mean of the recorded samples, zero before the first one.
func (t *Tracker) Estimate() time.Duration {
	if t.count == 0 {
		return 0
	}
	var sum int64
	for i := 0; i < t.count; i++ {
		sum += t.samples[i]
	}
	return time.Duration(sum/int64(t.count)) * time.Millisecond
}

func (t *Tracker) Pending() int { return len(t.pending) }

func (t *Tracker) evictOldest() {
	var (
		oldest types.HeartbeatID
		found  bool
		at     types.UnixMs
	)
	for id, p := range t.pending {
		if !found || p.sent < at {
			oldest, at, found = id, p.sent, true
		}
	}
	if found {
		delete(t.pending, oldest)
	}
}
