package engine

import (
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"go.uber.org/zap"
)

// Addressed is a message for exactly one player.
type Addressed struct {
	PID types.PlayerID
	Msg types.Msg
}

// Response is everything one transition wants said, split by audience.
// It is never stored.
type Response struct {
	Host    []types.Msg
	Players []types.Msg
	Direct  []Addressed
}

func (r Response) Merge(other Response) Response {
	return Response{
		Host:    append(append([]types.Msg(nil), r.Host...), other.Host...),
		Players: append(append([]types.Msg(nil), r.Players...), other.Players...),
		Direct:  append(append([]Addressed(nil), r.Direct...), other.Direct...),
	}
}

func (r Response) Empty() bool {
	return len(r.Host) == 0 && len(r.Players) == 0 && len(r.Direct) == 0
}

// Deliver routes resp to the current outboxes. A full or missing outbox
// loses the message; the transition that produced it already happened.
func (r *Room) Deliver(resp Response) {
	for _, msg := range resp.Host {
		if r.host == nil {
			break
		}
		if !r.host.out.Send(msg) {
			r.dropped("host", msg)
		}
	}
	for _, msg := range resp.Players {
		for _, p := range r.players {
			if !p.out.Send(msg) {
				r.dropped("player", msg, zap.Uint32("pid", uint32(p.Player.PID)))
			}
		}
	}
	for _, a := range resp.Direct {
		p := r.entry(a.PID)
		if p == nil || !p.out.Send(a.Msg) {
			r.dropped("player", a.Msg, zap.Uint32("pid", uint32(a.PID)))
		}
	}
}

func (r *Room) dropped(to string, msg types.Msg, fields ...zap.Field) {
	r.log.Warn("outbound message dropped",
		append(fields, zap.String("to", to), zap.String("kind", string(msg.Kind())))...)
}
