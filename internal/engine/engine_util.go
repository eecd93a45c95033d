package engine

import (
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
)

func (r *Room) State() types.GameState { return r.state }

func (r *Room) CurrentQuestion() *types.QuestionRef { return r.current }

func (r *Room) CurrentBuzzer() *types.PlayerID { return r.buzzer }

func (r *Room) HostToken() string { return r.hostToken }

func (r *Room) HasHost() bool { return r.host != nil }

func (r *Room) LastActivity() time.Time { return r.lastActivity }

// Touch records activity for the inactive-room sweep.
func (r *Room) Touch(now time.Time) { r.lastActivity = now }

// Done is closed once the room has been removed from its registry.
func (r *Room) Done() <-chan struct{} { return r.done }

func (r *Room) Close() { r.closeOnce.Do(func() { close(r.done) }) }

// Players returns the public roster in join order.
func (r *Room) Players() []types.Player {
	out := make([]types.Player, 0, len(r.players))
	for _, p := range r.players {
		pub := p.Player
		pub.Token = ""
		out = append(out, pub)
	}
	return out
}

func (r *Room) Player(pid types.PlayerID) (types.Player, bool) {
	p := r.entry(pid)
	if p == nil {
		return types.Player{}, false
	}
	return p.Player, true
}

func (r *Room) Categories() []types.Category { return types.CloneCategories(r.categories) }

// Peers returns every player entry except the sender's.
func (r *Room) Peers(except Identity) []*PlayerEntry {
	out := make([]*PlayerEntry, 0, len(r.players))
	for _, p := range r.players {
		if !except.Host && p.Player.PID == except.PID {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (r *Room) Snapshot() types.Snapshot {
	snap := types.Snapshot{
		State:      r.state,
		Categories: r.Categories(),
		Players:    r.Players(),
	}
	if r.current != nil {
		ref := *r.current
		snap.CurrentQuestion = &ref
	}
	if r.buzzer != nil {
		pid := *r.buzzer
		snap.CurrentBuzzer = &pid
	}
	return snap
}

func (r *Room) PlayerState(pid types.PlayerID) (types.PlayerState, bool) {
	p := r.entry(pid)
	if p == nil {
		return types.PlayerState{}, false
	}
	return types.PlayerState{
		PID:     pid,
		Buzzed:  p.Player.Buzzed,
		Score:   p.Player.Score,
		CanBuzz: r.canBuzz(p),
	}, true
}

// broadcastState is the tail of every accepted transition: the full state
// to everyone plus each player's personal view.
func (r *Room) broadcastState() Response {
	snap := r.Snapshot()
	resp := Response{
		Host:    []types.Msg{snap},
		Players: []types.Msg{snap},
	}
	for _, p := range r.players {
		ps, _ := r.PlayerState(p.Player.PID)
		resp.Direct = append(resp.Direct, Addressed{PID: p.Player.PID, Msg: ps})
	}
	return resp
}

func (r *Room) canBuzz(p *PlayerEntry) bool {
	return r.state == types.StateWaitingForBuzz && !p.Player.Buzzed
}

func (r *Room) entry(pid types.PlayerID) *PlayerEntry {
	for _, p := range r.players {
		if p.Player.PID == pid {
			return p
		}
	}
	return nil
}

func (r *Room) entryByToken(token string) *PlayerEntry {
	if token == "" {
		return nil
	}
	for _, p := range r.players {
		if p.Player.Token == token {
			return p
		}
	}
	return nil
}

func (r *Room) question(ref types.QuestionRef) *types.Question {
	if ref.Category < 0 || ref.Category >= len(r.categories) {
		return nil
	}
	qs := r.categories[ref.Category].Questions
	if ref.Question < 0 || ref.Question >= len(qs) {
		return nil
	}
	return &qs[ref.Question]
}

func (r *Room) anyUnbuzzed() bool {
	for _, p := range r.players {
		if !p.Player.Buzzed {
			return true
		}
	}
	return false
}

func (r *Room) anyUnanswered() bool {
	for _, c := range r.categories {
		for _, q := range c.Questions {
			if !q.Answered {
				return true
			}
		}
	}
	return false
}
