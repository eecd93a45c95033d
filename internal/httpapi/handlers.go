package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/DoyleJ11/buzzer-backend/internal/gamefile"
	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/store"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	maxGameFileSize = 1 << 20
	qrSize          = 320
)

type createRoomResponse struct {
	RoomCode  string `json:"room_code"`
	HostToken string `json:"host_token"`
}

// CreateRoom mints a room. The board comes from ?set=<id>, else from a
// game file in the body, else from defaults.
func CreateRoom(h *hub.Hub, sets store.Store, defaults []types.Category, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories := defaults

		if id := r.URL.Query().Get("set"); id != "" {
			set, err := sets.Load(r.Context(), id)
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "question set not found", http.StatusNotFound)
				return
			}
			if err != nil {
				log.Error("failed to load question set", zap.String("set", id), zap.Error(err))
				http.Error(w, "failed to load question set", http.StatusInternalServerError)
				return
			}
			categories = set.Categories
		} else {
			cats, ok := readGameFile(w, r)
			if !ok {
				return
			}
			if cats != nil {
				categories = cats
			}
		}

		code, token, err := h.Create(categories)
		if err != nil {
			log.Error("failed to create room", zap.Error(err))
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, createRoomResponse{RoomCode: code, HostToken: token})
	}
}

// RoomQR renders the player join link of a room as a PNG.
func RoomQR(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.ToUpper(chi.URLParam(r, "code"))
		if !h.Exists(code) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(r, publicURL, code), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func joinURL(r *http.Request, publicURL, code string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/join/" + code
}

func SaveSet(sets store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cats, ok := readGameFile(w, r)
		if !ok {
			return
		}
		if cats == nil {
			http.Error(w, "empty game file", http.StatusBadRequest)
			return
		}

		title := strings.TrimSpace(r.URL.Query().Get("title"))
		if title == "" {
			title = "Untitled"
		}
		id, err := sets.Save(r.Context(), title, cats)
		if err != nil {
			log.Error("failed to save question set", zap.Error(err))
			http.Error(w, "failed to save question set", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, struct {
			ID string `json:"id"`
		}{ID: id})
	}
}

func ListSets(sets store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := sets.List(r.Context())
		if err != nil {
			log.Error("failed to list question sets", zap.Error(err))
			http.Error(w, "failed to list question sets", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func GetSet(sets store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		set, err := sets.Load(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "question set not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error("failed to load question set", zap.Error(err))
			http.Error(w, "failed to load question set", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, set)
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "Server is up")
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// readGameFile parses the request body as a game file. It returns nil
// categories for an empty body and writes the error response itself.
func readGameFile(w http.ResponseWriter, r *http.Request) ([]types.Category, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGameFileSize))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return nil, false
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, true
	}

	cats, err := gamefile.Parse(data, gamefile.FormatFor(r.Header.Get("Content-Type")))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return cats, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
