// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/edidform/internal/handler"
	"github.com/matthewbaird/edidform/internal/logging"
	"github.com/matthewbaird/edidform/internal/ruleset"
	"github.com/matthewbaird/edidform/internal/session"
	"github.com/matthewbaird/edidform/internal/wire"
)

// Config holds server configuration.
type Config struct {
	Port            int
	Registry        *ruleset.Registry
	Sessions        *session.Manager
	ShutdownTimeout time.Duration
	CleanupInterval time.Duration
}

// NewRouter returns the full handler tree, middleware included.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	handler.RegisterRoutes(r, cfg.Registry)
	wire.RegisterRoutes(r, cfg.Registry, cfg.Sessions)

	return handler.Recovery(handler.Logging(r))
}

// Run starts the HTTP server and blocks until ctx is done or the listener
// fails.
func Run(ctx context.Context, cfg Config) error {
	logger := logging.Component("server")

	if cfg.Sessions == nil {
		return errors.New("server: session manager is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go cfg.Sessions.Run(ctx, cfg.CleanupInterval)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", addr).
			Int("forms", len(cfg.Registry.Forms())).
			Int("sections", len(cfg.Registry.Sections())).
			Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	logger.Info().Dur("timeout", timeout).Msg("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
