package ws

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/DoyleJ11/buzzer-backend/internal/witness"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errBadPlayerID = errors.New("invalid playerId")

type Options struct {
	HeartbeatInterval time.Duration
	OutboxSize        int
	WriteTimeout      time.Duration
	MaxMessageSize    int64
	OriginPatterns    []string
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 5 * time.Second
	}
	if o.OutboxSize <= 0 {
		o.OutboxSize = engine.DefaultOutboxSize
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 5 * time.Second
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 32 << 10
	}
	return o
}

// Server upgrades room connections and runs one session per socket.
type Server struct {
	hub     *hub.Hub
	witness *witness.Scheduler
	opts    Options
	log     *zap.Logger
}

func NewServer(h *hub.Hub, w *witness.Scheduler, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{hub: h, witness: w, opts: opts.withDefaults(), log: logger}
}

// Handler serves GET .../rooms/{code}/ws.
func (s *Server) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := chi.URLParam(r, "code")
		log := s.log.With(zap.String("room", code))

		params, err := handshakeParams(r.URL.Query())
		if err != nil {
			log.Info("handshake rejected", zap.Error(err))
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var hs engine.Handshake
		err = s.hub.WithRoom(code, func(room *engine.Room) error {
			var err error
			hs, err = room.Classify(params)
			return err
		})
		if err != nil {
			log.Info("handshake rejected", zap.Error(err))
			http.Error(w, err.Error(), handshakeStatus(err))
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: s.opts.OriginPatterns,
		})
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		conn.SetReadLimit(s.opts.MaxMessageSize)

		out := engine.NewOutbox(s.opts.OutboxSize)
		var (
			id   engine.Identity
			done <-chan struct{}
		)
		err = s.hub.WithRoom(code, func(room *engine.Room) error {
			var resp engine.Response
			id, resp = room.Attach(hs, out, s.hub.Clock().Now())
			room.Deliver(resp)
			done = room.Done()
			return nil
		})
		if err != nil {
			log.Info("room vanished during handshake")
			conn.Close(websocket.StatusGoingAway, "room closed")
			return
		}

		sess := &session{
			srv:  s,
			conn: conn,
			code: code,
			id:   id,
			out:  out,
			done: done,
			log:  log.With(zap.String("role", hs.Role.String()), zap.Uint32("pid", uint32(id.PID))),
		}
		sess.log.Info("session started")
		sess.run(r.Context())
	}
}

func handshakeParams(q url.Values) (engine.HandshakeParams, error) {
	p := engine.HandshakeParams{
		Token:      q.Get("token"),
		PlayerName: q.Get("playerName"),
	}

	raw := q.Get("playerId")
	if raw == "" {
		raw = q.Get("playerID")
	}
	if raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return p, errBadPlayerID
		}
		pid := types.PlayerID(n)
		p.PlayerID = &pid
	}
	return p, nil
}

func handshakeStatus(err error) int {
	switch {
	case errors.Is(err, hub.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, engine.ErrMissingParams):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
