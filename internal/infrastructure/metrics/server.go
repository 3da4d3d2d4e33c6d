package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gpio-companion/internal/infrastructure/config"
)

const (
	defaultPath     = "/metrics"
	healthPath      = "/health"
	shutdownTimeout = 5 * time.Second
	healthTimeout   = 3 * time.Second
)

// HealthFunc reports whether the companion is able to serve commands.
type HealthFunc func(ctx context.Context) error

// Handler returns the HTTP handler exposing the bridge's collectors.
func (b *Bridge) Handler() http.Handler {
	return promhttp.HandlerFor(b.registry, promhttp.HandlerOpts{Registry: b.registry})
}

// Router serves the collectors on path and a JSON health report on /health.
// A nil health func always reports ok.
func (b *Bridge) Router(path string, health HealthFunc) http.Handler {
	if path == "" {
		path = defaultPath
	}

	r := chi.NewRouter()
	r.Method(http.MethodGet, path, b.Handler())
	r.Get(healthPath, func(w http.ResponseWriter, req *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if health != nil {
			ctx, cancel := context.WithTimeout(req.Context(), healthTimeout)
			defer cancel()
			if err := health(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"error":  err.Error(),
				}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body) //nolint:errcheck // client went away
	})
	return r
}

// Serve exposes the router on cfg.Listen until ctx is cancelled.
//
// Returns:
//   - error: nil after a clean shutdown, or the listen/serve failure
func (b *Bridge) Serve(ctx context.Context, cfg config.MetricsConfig, health HealthFunc) error {
	ln, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", cfg.Listen, err)
	}
	return b.serve(ctx, ln, b.Router(cfg.Path, health))
}

func (b *Bridge) serve(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics server shutdown: %w", err)
		}
		return nil
	}
}
