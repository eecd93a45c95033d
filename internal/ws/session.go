package ws

import (
	"context"
	"errors"

	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/DoyleJ11/buzzer-backend/internal/witness"
	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errRoomClosed = errors.New("room closed")

// session pumps one socket. The room entry outlives it; a later reconnect
// binds a new outbox to the same entry.
type session struct {
	srv  *Server
	conn *websocket.Conn
	code string
	id   engine.Identity
	out  engine.Outbox
	done <-chan struct{}
	log  *zap.Logger
}

func (s *session) run(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(ctx) })
	g.Go(func() error { return s.readLoop(ctx) })

	err := g.Wait()
	status, reason := closeStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		s.log.Info("session ended", zap.Error(err))
	} else {
		s.log.Error("session failed", zap.Error(err))
	}
	s.conn.Close(status, reason)
}

func (s *session) writeLoop(ctx context.Context) error {
	ticker := s.srv.hub.Clock().NewTicker(s.srv.opts.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return errRoomClosed
		case msg := <-s.out:
			if err := s.write(ctx, msg); err != nil {
				return err
			}
		case <-ticker.Chan():
			if err := s.heartbeat(ctx); err != nil {
				return err
			}
		}
	}
}

func (s *session) write(ctx context.Context, msg types.Msg) error {
	payload, err := types.Encode(msg)
	if err != nil {
		s.log.Error("failed to encode message", zap.String("kind", string(msg.Kind())), zap.Error(err))
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, s.srv.opts.WriteTimeout)
	defer cancel()
	return s.conn.Write(wctx, websocket.MessageText, payload)
}

// heartbeat probes player latency. The host has no latency to measure, so
// it only gets a transport ping to detect a dead socket.
func (s *session) heartbeat(ctx context.Context) error {
	if s.id.Host {
		pctx, cancel := context.WithTimeout(ctx, s.srv.opts.WriteTimeout)
		defer cancel()
		return s.conn.Ping(pctx)
	}

	return s.srv.hub.WithRoom(s.code, func(room *engine.Room) error {
		room.Deliver(room.BeginHeartbeat(s.id.PID, s.srv.hub.Clock().Now()))
		return nil
	})
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}

		msg, err := types.Decode(data)
		if err != nil {
			return err
		}
		if err := s.dispatch(msg); err != nil {
			return err
		}
	}
}

// dispatch applies msg under the registry lock, then schedules witnesses
// once the lock is released. Only a message the room acted on is witnessed.
func (s *session) dispatch(msg types.Msg) error {
	var targets []witness.Target
	err := s.srv.hub.WithRoom(s.code, func(room *engine.Room) error {
		room.Touch(s.srv.hub.Clock().Now())
		resp := room.Update(msg, s.id)
		if !resp.Empty() && witness.Witnessed(msg) {
			for _, p := range room.Peers(s.id) {
				targets = append(targets, witness.Target{To: p.Outbox(), Latency: p.Latency()})
			}
		}
		room.Deliver(resp)
		return nil
	})
	if err != nil {
		return err
	}

	if len(targets) > 0 {
		s.srv.witness.Schedule(msg, targets)
	}
	return nil
}

func closeStatus(err error) (websocket.StatusCode, string) {
	switch {
	case err == nil:
		return websocket.StatusNormalClosure, ""
	case errors.Is(err, errRoomClosed):
		return websocket.StatusGoingAway, "room closed"
	case errors.Is(err, types.ErrUnknownMessage):
		return websocket.StatusUnsupportedData, "unknown message"
	case errors.Is(err, types.ErrMalformed):
		return websocket.StatusPolicyViolation, "malformed message"
	case errors.Is(err, context.Canceled):
		return websocket.StatusGoingAway, ""
	}

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway, websocket.StatusNoStatusRcvd:
		return websocket.StatusNormalClosure, ""
	}
	return websocket.StatusInternalError, "connection error"
}
