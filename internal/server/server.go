// Package server exposes the gridvoice HTTP surface: the /ws WebSocket
// endpoint clients stream utterances and audio through, plus health probes
// and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/gridvoice/internal/config"
	"github.com/MrWong99/gridvoice/internal/health"
	"github.com/MrWong99/gridvoice/internal/observe"
	"github.com/MrWong99/gridvoice/internal/session"
	"github.com/MrWong99/gridvoice/internal/store"
	"github.com/MrWong99/gridvoice/pkg/provider/stt"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// Config carries the server's collaborators, built by the app layer.
type Config struct {
	// Server is the network configuration (listen address, TLS).
	Server config.ServerConfig

	// Sessions hands out per-client grid sessions.
	Sessions *session.Manager

	// STT transcribes client audio. Nil disables the binary audio path;
	// clients must then send recognised text frames.
	STT stt.Provider

	// Speech tunes the server-side audio path.
	Speech config.SpeechConfig

	// Store is probed by the readiness endpoint. May be nil.
	Store store.Store

	// Metrics defaults to observe.DefaultMetrics when nil.
	Metrics *observe.Metrics
}

// Server is the gridvoice HTTP server.
type Server struct {
	cfg     Config
	metrics *observe.Metrics
	httpSrv *http.Server
	handler http.Handler
}

// New builds a [Server] with all routes registered.
func New(cfg Config) *Server {
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	s := &Server{cfg: cfg, metrics: cfg.Metrics}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.Handle("GET /metrics", promhttp.Handler())

	var checkers []health.Checker
	if cfg.Store != nil {
		checkers = append(checkers, health.PingChecker("store", cfg.Store))
	}
	if cfg.STT != nil {
		checkers = append(checkers, health.Checker{
			Name: "stt",
			Check: func(ctx context.Context) error {
				// The provider validated its model at startup; probe it
				// further only when it supports pinging.
				if p, ok := cfg.STT.(health.Pinger); ok {
					return p.Ping(ctx)
				}
				return nil
			},
		})
	}
	health.New(checkers...).Register(mux)

	s.handler = observe.Middleware(cfg.Metrics)(mux)
	s.httpSrv = &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the fully wired HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := s.cfg.Server.TLS; tls != nil {
			err = s.httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = s.httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("server listening", "addr", s.cfg.Server.ListenAddr, "tls", s.cfg.Server.TLS != nil)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
