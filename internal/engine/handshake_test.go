package engine

import (
	"errors"
	"testing"

	"github.com/DoyleJ11/buzzer-backend/internal/types"
)

func pidPtr(pid types.PlayerID) *types.PlayerID { return &pid }

func joinWithToken(t *testing.T, r *Room, name string) (types.PlayerID, string) {
	t.Helper()
	pid, _ := join(t, r, name)
	e := r.entry(pid)
	return pid, e.Player.Token
}

func TestClassify_Precedence(t *testing.T) {
	r := newTestRoom(board(100))
	alice, aliceToken := joinWithToken(t, r, "Alice")
	bob, _ := joinWithToken(t, r, "Bob")

	cases := []struct {
		name     string
		params   HandshakeParams
		wantRole Role
		wantPID  types.PlayerID
		wantErr  error
	}{
		{
			name:     "host token",
			params:   HandshakeParams{Token: "host-secret", PlayerName: "ignored"},
			wantRole: RoleHost,
		},
		{
			name:     "id and token",
			params:   HandshakeParams{Token: aliceToken, PlayerID: pidPtr(alice)},
			wantRole: RoleReconnect, wantPID: alice,
		},
		{
			name:     "token alone",
			params:   HandshakeParams{Token: aliceToken},
			wantRole: RoleReconnect, wantPID: alice,
		},
		{
			name:     "id and token beat a name",
			params:   HandshakeParams{Token: aliceToken, PlayerID: pidPtr(alice), PlayerName: "Mallory"},
			wantRole: RoleReconnect, wantPID: alice,
		},
		{
			name:     "token of another player's id falls through to name",
			params:   HandshakeParams{Token: aliceToken, PlayerID: pidPtr(bob), PlayerName: "Carol"},
			wantRole: RoleNewPlayer,
		},
		{
			name:     "name only",
			params:   HandshakeParams{PlayerName: "Carol"},
			wantRole: RoleNewPlayer,
		},
		{
			name:    "wrong token and no name",
			params:  HandshakeParams{Token: "nope"},
			wantErr: ErrBadCredentials,
		},
		{
			name:    "id and mismatched token",
			params:  HandshakeParams{Token: aliceToken, PlayerID: pidPtr(bob)},
			wantErr: ErrBadCredentials,
		},
		{
			name:    "nothing",
			params:  HandshakeParams{},
			wantErr: ErrMissingParams,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, err := r.Classify(tc.params)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.Role != tc.wantRole {
				t.Fatalf("want role %s, got %s", tc.wantRole, h.Role)
			}
			if tc.wantRole == RoleReconnect && h.PID != tc.wantPID {
				t.Fatalf("want pid %d, got %d", tc.wantPID, h.PID)
			}
		})
	}
}

func TestAttach_NewPlayerGetsCredentials(t *testing.T) {
	r := newTestRoom(board(100))
	hostOut := NewOutbox(8)
	hid, resp := r.Attach(Handshake{Role: RoleHost}, hostOut, epoch)
	r.Deliver(resp)
	if !hid.Host {
		t.Fatalf("host attach should yield host identity")
	}
	drain(hostOut)

	out := NewOutbox(8)
	h, _ := r.Classify(HandshakeParams{PlayerName: "Alice"})
	id, resp := r.Attach(h, out, epoch)
	r.Deliver(resp)

	msgs := drain(out)
	if len(msgs) != 2 {
		t.Fatalf("before the game starts a new player gets NewPlayer and PlayerState, got %+v", msgs)
	}
	np, ok := msgs[0].(types.NewPlayer)
	if !ok || np.PID != id.PID || np.Token == "" {
		t.Fatalf("want NewPlayer with pid %d and a token, got %+v", id.PID, msgs[0])
	}
	if _, ok := msgs[1].(types.PlayerState); !ok {
		t.Fatalf("want PlayerState second, got %T", msgs[1])
	}

	hostMsgs := drain(hostOut)
	if len(hostMsgs) != 1 {
		t.Fatalf("host should get one PlayerList, got %+v", hostMsgs)
	}
	list, ok := hostMsgs[0].(types.PlayerList)
	if !ok || len(list) != 1 || list[0].Name != "Alice" || list[0].Token != "" {
		t.Fatalf("unexpected player list %+v", hostMsgs[0])
	}
}

func TestAttach_ReconnectPreservesPlayer(t *testing.T) {
	r := newTestRoom(board(100, 200))
	alice, token := joinWithToken(t, r, "Alice")
	join(t, r, "Bob")
	mustApply(t, r, types.StartGame{}, HostIdentity())
	openQuestion(t, r, 0, 0)
	mustApply(t, r, types.Buzz{}, PlayerIdentity(alice))
	mustApply(t, r, types.HostChecked{Correct: false}, HostIdentity())
	before, _ := r.Player(alice)

	oldOut := r.entry(alice).Outbox()
	drain(oldOut)

	h, err := r.Classify(HandshakeParams{Token: token, PlayerID: pidPtr(alice)})
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	newOut := NewOutbox(8)
	id, resp := r.Attach(h, newOut, epoch)
	r.Deliver(resp)

	if id.PID != alice {
		t.Fatalf("want pid %d, got %d", alice, id.PID)
	}
	after, _ := r.Player(alice)
	if after != before {
		t.Fatalf("reconnect changed the player: %+v -> %+v", before, after)
	}
	if len(r.Players()) != 2 {
		t.Fatalf("reconnect must not add a player")
	}

	msgs := drain(newOut)
	for _, m := range msgs {
		if m.Kind() == types.KindNewPlayer {
			t.Fatalf("reconnect must not issue NewPlayer")
		}
	}
	if len(msgs) != 2 || msgs[0].Kind() != types.KindGameState || msgs[1].Kind() != types.KindPlayerState {
		t.Fatalf("want GameState then PlayerState, got %+v", msgs)
	}
	if ps := msgs[1].(types.PlayerState); !ps.Buzzed || ps.CanBuzz || ps.Score != -100 {
		t.Fatalf("unexpected player state %+v", ps)
	}

	// later traffic goes to the new connection only
	r.Deliver(Response{Direct: []Addressed{{PID: alice, Msg: types.Buzz{}}}})
	if got := drain(oldOut); len(got) != 0 {
		t.Fatalf("old outbox still receiving: %+v", got)
	}
	if got := drain(newOut); len(got) != 1 {
		t.Fatalf("new outbox should receive, got %+v", got)
	}
}

func TestAttach_HostReconnectMidGameGetsSnapshot(t *testing.T) {
	r := newTestRoom(board(100))
	join(t, r, "Alice")
	mustApply(t, r, types.StartGame{}, HostIdentity())

	out := NewOutbox(8)
	_, resp := r.Attach(Handshake{Role: RoleHost}, out, epoch)
	r.Deliver(resp)

	msgs := drain(out)
	if len(msgs) != 2 || msgs[0].Kind() != types.KindPlayerList || msgs[1].Kind() != types.KindGameState {
		t.Fatalf("want PlayerList then GameState, got %+v", msgs)
	}
	if !r.HasHost() {
		t.Fatalf("room should have a host")
	}
}

func TestDeliver_FullOutboxDropsWithoutBlocking(t *testing.T) {
	r := newTestRoom(board(100))
	h, _ := r.Classify(HandshakeParams{PlayerName: "Slow"})
	out := NewOutbox(1)
	id, _ := r.Attach(h, out, epoch) // greeting not delivered

	r.Deliver(Response{Direct: []Addressed{
		{PID: id.PID, Msg: types.Buzz{}},
		{PID: id.PID, Msg: types.EndGame{}},
	}})
	r.Deliver(Response{Players: []types.Msg{types.StartGame{}}})

	msgs := drain(out)
	if len(msgs) != 1 || msgs[0].Kind() != types.KindBuzz {
		t.Fatalf("only the first message fits, got %+v", msgs)
	}
}

func TestDeliver_NoHostIsSilent(t *testing.T) {
	r := newTestRoom(board(100))
	r.Deliver(Response{Host: []types.Msg{types.StartGame{}}})
	r.Deliver(Response{Direct: []Addressed{{PID: 42, Msg: types.StartGame{}}}})
}

func TestResponse_MergeKeepsOrder(t *testing.T) {
	a := Response{Host: []types.Msg{types.Buzzed{PID: 1}}, Direct: []Addressed{{PID: 1, Msg: types.Buzz{}}}}
	b := Response{Host: []types.Msg{types.StartGame{}}, Players: []types.Msg{types.EndGame{}}}

	m := a.Merge(b)

	if len(m.Host) != 2 || m.Host[0].Kind() != types.KindBuzzed || m.Host[1].Kind() != types.KindStartGame {
		t.Fatalf("host order wrong: %+v", m.Host)
	}
	if len(m.Players) != 1 || len(m.Direct) != 1 {
		t.Fatalf("merge lost messages: %+v", m)
	}
	if len(a.Host) != 1 {
		t.Fatalf("merge mutated its receiver")
	}
	if !(Response{}).Empty() || m.Empty() {
		t.Fatalf("Empty is wrong")
	}
}

func TestUpdate_ReplacedHostIsIgnored(t *testing.T) {
	r := newTestRoom(board(100))
	join(t, r, "Alice")

	oldOut := NewOutbox(8)
	oldID, _ := r.Attach(Handshake{Role: RoleHost}, oldOut, epoch)
	newOut := NewOutbox(8)
	newID, _ := r.Attach(Handshake{Role: RoleHost}, newOut, epoch)
	if oldID.HostID == "" || oldID.HostID == newID.HostID {
		t.Fatalf("each host connection needs its own id: %q %q", oldID.HostID, newID.HostID)
	}

	expectNoop(t, r, types.StartGame{}, oldID)
	expectNoop(t, r, types.EndGame{}, oldID)
	mustApply(t, r, types.StartGame{}, newID)
	if r.State() != types.StateSelection {
		t.Fatalf("want Selection, got %s", r.State())
	}
}
