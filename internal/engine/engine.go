package engine

import (
	"errors"
	"sync"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"go.uber.org/zap"
)

var ErrMissingParams = errors.New("missing handshake parameters")
var ErrBadCredentials = errors.New("invalid player credentials")

// Room is one game session. It is not safe for concurrent use: every call
// happens under the registry lock.
type Room struct {
	Code string

	hostToken    string
	state        types.GameState
	host         *HostEntry
	players      []*PlayerEntry
	categories   []types.Category
	current      *types.QuestionRef
	buzzer       *types.PlayerID
	nextPID      types.PlayerID
	lastActivity time.Time

	done      chan struct{}
	closeOnce sync.Once
	log       *zap.Logger
}

func NewRoom(code, hostToken string, categories []types.Category, now time.Time, logger *zap.Logger) *Room {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Room{
		Code:         code,
		hostToken:    hostToken,
		state:        types.StateStart,
		categories:   types.CloneCategories(categories),
		lastActivity: now,
		done:         make(chan struct{}),
		log:          logger.With(zap.String("room", code)),
	}
}

// Update applies one inbound message from sender and returns who must be
// told what. Messages that do not fit the current state, the sender's role,
// or the board produce an empty Response and change nothing.
func (r *Room) Update(msg types.Msg, from Identity) Response {
	if !Accepts(msg, from) {
		r.ignore(msg, "sender role")
		return Response{}
	}
	if from.Host && r.host != nil && from.HostID != r.host.ID {
		r.ignore(msg, "replaced host")
		return Response{}
	}

	switch m := msg.(type) {
	case types.Heartbeat:
		r.heartbeatReceived(from.PID, m)
		return Response{}
	case types.LatencyOfHeartbeat:
		r.heartbeatLatency(from.PID, m)
		return Response{}
	}

	if r.state == types.StateGameEnd {
		r.ignore(msg, "game over")
		return Response{}
	}

	switch m := msg.(type) {
	case types.StartGame:
		r.state = types.StateSelection
		r.current, r.buzzer = nil, nil
		return r.broadcastState()

	case types.HostChoice:
		return r.choose(m)

	case types.HostReady:
		if r.state != types.StateQuestionReading {
			r.ignore(msg, "not reading")
			return Response{}
		}
		r.state = types.StateWaitingForBuzz
		return r.broadcastState()

	case types.Buzz:
		return r.buzz(from.PID)

	case types.HostChecked:
		return r.check(m.Correct)

	case types.EndGame:
		r.state = types.StateGameEnd
		r.current, r.buzzer = nil, nil
		return r.broadcastState()

	default:
		r.ignore(msg, "reserved")
		return Response{}
	}
}

// Accepts reports whether from's role may send msg at all.
func Accepts(msg types.Msg, from Identity) bool {
	switch msg.(type) {
	case types.StartGame, types.EndGame, types.HostChoice, types.HostReady,
		types.HostChecked, types.BuzzEnable, types.BuzzDisable:
		return from.Host
	case types.Buzz, types.Heartbeat, types.LatencyOfHeartbeat, types.GotHeartbeat:
		return !from.Host
	default:
		return false
	}
}

func (r *Room) choose(m types.HostChoice) Response {
	if r.state != types.StateSelection {
		r.ignore(m, "not selecting")
		return Response{}
	}
	ref := types.QuestionRef{Category: m.CategoryIndex, Question: m.QuestionIndex}
	q := r.question(ref)
	if q == nil || q.Answered {
		r.ignore(m, "bad target")
		return Response{}
	}

	r.current = &ref
	r.buzzer = nil
	for _, p := range r.players {
		p.Player.Buzzed = false
	}
	r.state = types.StateQuestionReading
	return r.broadcastState()
}

func (r *Room) buzz(pid types.PlayerID) Response {
	p := r.entry(pid)
	if r.state != types.StateWaitingForBuzz || p == nil || p.Player.Buzzed {
		r.ignore(types.Buzz{}, "cannot buzz")
		return Response{}
	}

	p.Player.Buzzed = true
	r.buzzer = &pid
	r.state = types.StateAnswer

	notice := Response{Host: []types.Msg{types.Buzzed{PID: pid, Name: p.Player.Name}}}
	return notice.Merge(r.broadcastState())
}

func (r *Room) check(correct bool) Response {
	if r.current == nil {
		r.ignore(types.HostChecked{Correct: correct}, "no open question")
		return Response{}
	}
	q := r.question(*r.current)
	if q == nil {
		r.ignore(types.HostChecked{Correct: correct}, "bad target")
		return Response{}
	}

	if r.buzzer != nil {
		if p := r.entry(*r.buzzer); p != nil {
			if correct {
				p.Player.Score += int32(q.Value)
			} else {
				p.Player.Score -= int32(q.Value)
			}
		}
	}

	switch {
	case correct:
		r.resolve(q)
	case r.anyUnbuzzed():
		r.buzzer = nil
		r.state = types.StateWaitingForBuzz
	default:
		r.resolve(q)
	}
	return r.broadcastState()
}

// resolve closes the open question for good.
func (r *Room) resolve(q *types.Question) {
	q.Answered = true
	r.current, r.buzzer = nil, nil
	if r.anyUnanswered() {
		r.state = types.StateSelection
	} else {
		r.state = types.StateGameEnd
	}
}

func (r *Room) heartbeatReceived(pid types.PlayerID, m types.Heartbeat) {
	p := r.entry(pid)
	if p == nil {
		r.log.Warn("heartbeat from unknown player", zap.Uint32("pid", uint32(pid)))
		return
	}
	if err := p.latency.Received(m.HBID, m.TDoHBRecv); err != nil {
		r.log.Warn("failed to record heartbeat receipt",
			zap.Uint32("pid", uint32(pid)), zap.Uint32("hbid", uint32(m.HBID)), zap.Error(err))
	}
}

func (r *Room) heartbeatLatency(pid types.PlayerID, m types.LatencyOfHeartbeat) {
	p := r.entry(pid)
	if p == nil {
		r.log.Warn("latency report from unknown player", zap.Uint32("pid", uint32(pid)))
		return
	}
	sample, err := p.latency.Complete(m.HBID, m.TLat)
	if err != nil {
		r.log.Warn("failed to update latencies",
			zap.Uint32("pid", uint32(pid)), zap.Uint32("hbid", uint32(m.HBID)), zap.Error(err))
		return
	}
	r.log.Debug("latency sample",
		zap.Uint32("pid", uint32(pid)), zap.Duration("sample", sample), zap.Duration("estimate", p.Latency()))
}

// BeginHeartbeat starts a latency probe for pid and addresses the
// DoHeartbeat to it.
func (r *Room) BeginHeartbeat(pid types.PlayerID, now time.Time) Response {
	p := r.entry(pid)
	if p == nil {
		return Response{}
	}
	do := p.latency.Begin(now)
	return Response{Direct: []Addressed{{PID: pid, Msg: do}}}
}

func (r *Room) ignore(msg types.Msg, why string) {
	r.log.Debug("ignored message", zap.String("kind", string(msg.Kind())), zap.String("reason", why))
}
