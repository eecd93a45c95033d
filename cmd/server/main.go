package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/DoyleJ11/buzzer-backend/internal/config"
	"github.com/DoyleJ11/buzzer-backend/internal/gamefile"
	"github.com/DoyleJ11/buzzer-backend/internal/httpapi"
	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/logging"
	"github.com/DoyleJ11/buzzer-backend/internal/store"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	"github.com/DoyleJ11/buzzer-backend/internal/witness"
	"github.com/DoyleJ11/buzzer-backend/internal/ws"
	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	sets, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	board, err := defaultBoard(cfg.DefaultGame)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()
	h := hub.NewHub(clock, log)
	go h.RunSweeper(ctx, cfg.SweepInterval, cfg.RoomTTL)

	sched := witness.New(clock, cfg.WitnessWindow, log)
	sessions := ws.NewServer(h, sched, ws.Options{
		HeartbeatInterval: cfg.HeartbeatInterval,
		OutboxSize:        cfg.OutboxSize,
		WriteTimeout:      cfg.WriteTimeout,
		MaxMessageSize:    cfg.MaxMessageSize,
		OriginPatterns:    originHosts(cfg.AllowedOrigins),
	}, log)

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:            h,
		Sets:           sets,
		Sessions:       sessions,
		DefaultBoard:   board,
		PublicURL:      cfg.PublicURL,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case listenErr = <-serveErr:
		if listenErr != nil {
			log.Error("server failed", zap.Error(listenErr))
		}
	}

	// rooms first: hijacked sockets are not tracked by the http server
	h.Shutdown()
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return multierr.Combine(
		listenErr,
		srv.Shutdown(shutdownCtx),
		sets.Close(),
	)
}

func openStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("no DATABASE_URL, question sets are kept in memory")
		return store.NewMemoryStore(), nil
	}
	s, err := store.OpenGorm(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Info("question sets stored in postgres")
	return s, nil
}

func defaultBoard(path string) ([]types.Category, error) {
	if path == "" {
		return nil, nil
	}
	return gamefile.Load(path)
}

// originHosts turns CORS origins into the host patterns the websocket
// origin check matches against.
func originHosts(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			out = append(out, u.Host)
			continue
		}
		out = append(out, strings.TrimSuffix(o, "/"))
	}
	return out
}
