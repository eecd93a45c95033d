package httpapi

import (
	"net/http"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/store"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/DoyleJ11/buzzer-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

type Deps struct {
	Hub            *hub.Hub
	Sets           store.Store
	Sessions       *ws.Server
	DefaultBoard   []types.Category
	PublicURL      string
	AllowedOrigins []string
	Log            *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)

	r.Get("/health", Health)
	r.Get("/healthz", Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/rooms", func(r chi.Router) {
			r.Post("/create", CreateRoom(d.Hub, d.Sets, d.DefaultBoard, d.Log))
			r.Get("/{code}/ws", d.Sessions.Handler())
			r.Get("/{code}/qr", RoomQR(d.Hub, d.PublicURL))
		})
		r.Route("/sets", func(r chi.Router) {
			r.Post("/", SaveSet(d.Sets, d.Log))
			r.Get("/", ListSets(d.Sets, d.Log))
			r.Get("/{id}", GetSet(d.Sets, d.Log))
		})
	})

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
