package witness

import (
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	msgs []types.Msg
	full bool
}

func (r *recorder) Send(m types.Msg) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return false
	}
	r.msgs = append(r.msgs, m)
	return true
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestDelay(t *testing.T) {
	s := New(clockwork.NewFakeClock(), 500*time.Millisecond, nil)

	cases := []struct {
		latency time.Duration
		want    time.Duration
	}{
		{latency: 0, want: 500 * time.Millisecond},
		{latency: 120 * time.Millisecond, want: 380 * time.Millisecond},
		{latency: 500 * time.Millisecond, want: 0},
		{latency: 2 * time.Second, want: 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, s.Delay(tc.latency), "latency %s", tc.latency)
	}
}

func TestWitnessed(t *testing.T) {
	for _, m := range []types.Msg{types.StartGame{}, types.EndGame{}, types.Buzz{}, types.HostReady{}, types.BuzzEnable{}, types.BuzzDisable{}} {
		assert.True(t, Witnessed(m), "%s", m.Kind())
	}
	for _, m := range []types.Msg{types.HostChoice{}, types.HostChecked{}, types.Heartbeat{}, types.LatencyOfHeartbeat{}} {
		assert.False(t, Witnessed(m), "%s", m.Kind())
	}
}

func TestSchedule_StaggersByLatency(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock, 500*time.Millisecond, nil)
	fast, slow, laggy := &recorder{}, &recorder{}, &recorder{}

	s.Schedule(types.Buzz{}, []Target{
		{To: fast, Latency: 100 * time.Millisecond},
		{To: slow, Latency: 300 * time.Millisecond},
		{To: laggy, Latency: time.Second},
	})

	require.Equal(t, 1, laggy.count(), "zero delay is immediate")
	w, ok := laggy.msgs[0].(types.Witness)
	require.True(t, ok)
	assert.Equal(t, types.KindBuzz, w.Msg.Kind())
	assert.Equal(t, 2, s.Pending())

	clock.Advance(199 * time.Millisecond)
	assert.Equal(t, 0, slow.count())
	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return slow.count() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, 0, fast.count())

	clock.Advance(200 * time.Millisecond)
	require.Eventually(t, func() bool { return fast.count() == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestSchedule_FullTargetDrops(t *testing.T) {
	s := New(clockwork.NewFakeClock(), 500*time.Millisecond, nil)
	r := &recorder{full: true}

	s.Schedule(types.EndGame{}, []Target{{To: r, Latency: time.Second}})

	assert.Equal(t, 0, r.count())
}

func TestStop_CancelsPending(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock, 500*time.Millisecond, nil)
	r := &recorder{}

	s.Schedule(types.StartGame{}, []Target{{To: r}})
	require.Equal(t, 1, s.Pending())

	s.Stop()
	clock.Advance(time.Second)
	s.Schedule(types.StartGame{}, []Target{{To: r, Latency: time.Second}})

	assert.Equal(t, 0, s.Pending())
	assert.Never(t, func() bool { return r.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestStop_WinsOverFiredTimer(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := New(clock, 500*time.Millisecond, nil)
	r := &recorder{}
	s.Schedule(types.Buzz{}, []Target{{To: r}})

	// the timer fires while Stop is in progress
	s.mu.Lock()
	clock.Advance(time.Second)
	time.Sleep(10 * time.Millisecond)
	s.stopped = true
	s.mu.Unlock()

	assert.Never(t, func() bool { return r.count() > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}
