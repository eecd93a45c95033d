package engine

import (
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandshakeParams are the connection parameters a client presents.
type HandshakeParams struct {
	Token      string
	PlayerName string
	PlayerID   *types.PlayerID
}

type Role int

const (
	RoleHost Role = iota
	RoleReconnect
	RoleNewPlayer
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleReconnect:
		return "reconnect"
	case RoleNewPlayer:
		return "new_player"
	default:
		return "unknown"
	}
}

// Handshake is a classified connection, ready to Attach.
type Handshake struct {
	Role Role
	PID  types.PlayerID
	Name string
}

// Classify decides what a new connection is, in precedence order: the host
// token, a matching id+token pair, a matching token alone, then a new
// player name. It does not change the room.
func (r *Room) Classify(p HandshakeParams) (Handshake, error) {
	if p.Token != "" && p.Token == r.hostToken {
		return Handshake{Role: RoleHost}, nil
	}

	if p.Token != "" {
		if p.PlayerID != nil {
			if e := r.entry(*p.PlayerID); e != nil && e.Player.Token == p.Token {
				return Handshake{Role: RoleReconnect, PID: e.Player.PID, Name: e.Player.Name}, nil
			}
		} else if e := r.entryByToken(p.Token); e != nil {
			return Handshake{Role: RoleReconnect, PID: e.Player.PID, Name: e.Player.Name}, nil
		}
	}

	if p.PlayerName != "" {
		return Handshake{Role: RoleNewPlayer, Name: p.PlayerName}, nil
	}

	if p.Token != "" {
		return Handshake{}, ErrBadCredentials
	}
	return Handshake{}, ErrMissingParams
}

// Attach binds out to the classified identity, replacing whatever outbox
// it had before, and returns the greeting for the new connection.
func (r *Room) Attach(h Handshake, out Outbox, now time.Time) (Identity, Response) {
	r.Touch(now)

	switch h.Role {
	case RoleHost:
		r.host = &HostEntry{ID: uuid.NewString(), out: out}
		resp := Response{Host: []types.Msg{types.PlayerList(r.Players())}}
		if r.state != types.StateStart {
			resp.Host = append(resp.Host, r.Snapshot())
		}
		r.log.Info("host attached", zap.String("host_id", r.host.ID))
		id := HostIdentity()
		id.HostID = r.host.ID
		return id, resp

	case RoleReconnect:
		p := r.entry(h.PID)
		if p == nil {
			// entries are never removed, so a classified pid always exists
			return Identity{}, Response{}
		}
		p.out = out
		r.log.Info("player reconnected", zap.Uint32("pid", uint32(h.PID)))
		return PlayerIdentity(h.PID), r.greetPlayer(p, nil)

	default:
		r.nextPID++
		player := types.Player{PID: r.nextPID, Name: h.Name, Token: uuid.NewString()}
		p := newPlayerEntry(player, out)
		r.players = append(r.players, p)
		r.log.Info("player joined", zap.Uint32("pid", uint32(player.PID)), zap.String("name", player.Name))
		return PlayerIdentity(player.PID), r.greetPlayer(p, types.NewPlayer{PID: player.PID, Token: player.Token})
	}
}

func (r *Room) greetPlayer(p *PlayerEntry, first types.Msg) Response {
	pid := p.Player.PID
	var direct []Addressed
	if first != nil {
		direct = append(direct, Addressed{PID: pid, Msg: first})
	}
	if r.state != types.StateStart {
		direct = append(direct, Addressed{PID: pid, Msg: r.Snapshot()})
	}
	ps, _ := r.PlayerState(pid)
	direct = append(direct, Addressed{PID: pid, Msg: ps})

	return Response{
		Host:   []types.Msg{types.PlayerList(r.Players())},
		Direct: direct,
	}
}
