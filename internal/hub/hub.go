// Package hub is the room registry. One mutex guards the registry and every
// room in it; all room access goes through WithRoom.
package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrRoomNotFound = errors.New("room not found")

const (
	codeLength  = 6
	codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ"
	maxAttempts = 32
)

func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

type Hub struct {
	mu    sync.Mutex
	rooms map[string]*engine.Room
	clock clockwork.Clock
	log   *zap.Logger
}

func NewHub(clock clockwork.Clock, logger *zap.Logger) *Hub {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]*engine.Room),
		clock: clock,
		log:   logger,
	}
}

func (h *Hub) Clock() clockwork.Clock { return h.clock }

// Create registers a fresh room under an unused code and returns its code
// and host token.
func (h *Hub) Create(categories []types.Category) (code, hostToken string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for attempt := 0; attempt < maxAttempts; attempt++ {
		c, err := GenerateCode()
		if err != nil {
			return "", "", fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := h.rooms[c]; taken {
			h.log.Debug("room code collision, regenerating", zap.String("room", c))
			continue
		}

		token := uuid.NewString()
		h.rooms[c] = engine.NewRoom(c, token, categories, h.clock.Now(), h.log)
		h.log.Info("room created", zap.String("room", c), zap.Int("categories", len(categories)))
		return c, token, nil
	}
	return "", "", errors.New("no free room code")
}

// WithRoom runs fn on the room under the registry lock. fn must not block.
func (h *Hub) WithRoom(code string, fn func(*engine.Room) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[normalize(code)]
	if !ok {
		return ErrRoomNotFound
	}
	return fn(room)
}

func (h *Hub) Exists(code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[normalize(code)]
	return ok
}

// Remove drops the room and ends its sessions.
func (h *Hub) Remove(code string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.removeLocked(normalize(code), "removed")
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Sweep removes every room idle for longer than ttl and returns their codes.
func (h *Hub) Sweep(now time.Time, ttl time.Duration) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []string
	for code, room := range h.rooms {
		if now.Sub(room.LastActivity()) > ttl {
			h.removeLocked(code, "inactive")
			removed = append(removed, code)
		}
	}
	return removed
}

// RunSweeper sweeps every interval until ctx is cancelled.
func (h *Hub) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := h.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if removed := h.Sweep(h.clock.Now(), ttl); len(removed) > 0 {
				h.log.Info("swept inactive rooms", zap.Strings("rooms", removed), zap.Int("remaining", h.Len()))
			}
		}
	}
}

// Shutdown closes every room.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for code := range h.rooms {
		h.removeLocked(code, "shutdown")
	}
}

func (h *Hub) removeLocked(code, why string) bool {
	room, ok := h.rooms[code]
	if !ok {
		return false
	}
	delete(h.rooms, code)
	room.Close()
	h.log.Info("room closed", zap.String("room", code), zap.String("reason", why))
	return true
}

func normalize(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }
