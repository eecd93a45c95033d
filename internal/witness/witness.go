// Package witness tells every other player about an event after a delay
// that evens out network latency: a player with latency L hears it
// max(0, window-L) after it happened, so everyone perceives it at about the
// same moment.
package witness

import (
	"sync"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// DefaultWindow is the fairness window.
const DefaultWindow = 500 * time.Millisecond

type Sender interface {
	Send(types.Msg) bool
}

// Target is one recipient as it was when the event was accepted.
type Target struct {
	To      Sender
	Latency time.Duration
}

type Scheduler struct {
	clock  clockwork.Clock
	window time.Duration
	log    *zap.Logger

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]clockwork.Timer
	stopped bool
}

func New(clock clockwork.Clock, window time.Duration, logger *zap.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		clock:   clock,
		window:  window,
		log:     logger,
		pending: make(map[uint64]clockwork.Timer),
	}
}

// Witnessed reports whether msg is relayed to the other players.
func Witnessed(msg types.Msg) bool {
	switch msg.(type) {
	case types.StartGame, types.EndGame, types.BuzzEnable, types.BuzzDisable,
		types.Buzz, types.HostReady:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Delay(latency time.Duration) time.Duration {
	return max(s.window-latency, 0)
}

// Schedule queues a Witness of msg to each target. It never blocks and
// must be called without the registry lock held.
func (s *Scheduler) Schedule(msg types.Msg, targets []Target) {
	w := types.Witness{Msg: msg}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	for _, t := range targets {
		delay := s.Delay(t.Latency)
		if delay == 0 {
			s.deliver(t.To, w)
			continue
		}

		s.nextID++
		id, to := s.nextID, t.To
		s.pending[id] = s.clock.AfterFunc(delay, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.stopped {
				return
			}
			delete(s.pending, id)
			s.deliver(to, w)
		})
	}
}

// Pending is the number of witnesses waiting on a timer.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending witness; later calls to Schedule do nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

func (s *Scheduler) deliver(to Sender, w types.Witness) {
	if !to.Send(w) {
		s.log.Warn("witness dropped", zap.String("kind", string(w.Msg.Kind())))
	}
}
