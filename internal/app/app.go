// Package app wires all gridvoice subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves until the context ends, and Shutdown tears
// everything down in order.
//
// For testing, inject doubles via functional options (WithStore, WithSTT).
// When an option is not provided, New creates real implementations from the
// config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/gridvoice/internal/config"
	"github.com/MrWong99/gridvoice/internal/observe"
	"github.com/MrWong99/gridvoice/internal/server"
	"github.com/MrWong99/gridvoice/internal/session"
	"github.com/MrWong99/gridvoice/internal/store"
	"github.com/MrWong99/gridvoice/internal/vocab"
	"github.com/MrWong99/gridvoice/pkg/provider/stt"
)

// App owns all subsystem lifetimes.
type App struct {
	cfg *config.Config

	snapshots store.Store
	sttProv   stt.Provider
	sessions  *session.Manager
	srv       *server.Server

	// closers are called in reverse order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a snapshot store instead of creating one from config.
func WithStore(st store.Store) Option {
	return func(a *App) { a.snapshots = st }
}

// WithSTT injects an STT provider instead of creating one via the registry.
func WithSTT(p stt.Provider) Option {
	return func(a *App) { a.sttProv = p }
}

// New creates an App by wiring all subsystems together. The registry comes
// from main.go with the built-in providers registered.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init store: %w", err)
	}
	if err := a.initSTT(reg); err != nil {
		return nil, fmt.Errorf("app: init stt: %w", err)
	}

	managerOpts := []session.ManagerOption{
		session.WithManagerStore(a.snapshots),
	}
	if cfg.Interpreter.PhoneticCorrection {
		var vopts []vocab.Option
		if t := cfg.Interpreter.PhoneticThreshold; t > 0 {
			vopts = append(vopts, vocab.WithPhoneticThreshold(t))
		}
		if t := cfg.Interpreter.FuzzyThreshold; t > 0 {
			vopts = append(vopts, vocab.WithFuzzyThreshold(t))
		}
		managerOpts = append(managerOpts, session.WithManagerCorrector(vocab.New(vopts...)))
	}
	a.sessions = session.NewManager(managerOpts...)

	a.srv = server.New(server.Config{
		Server:   cfg.Server,
		Sessions: a.sessions,
		STT:      a.sttProv,
		Speech:   cfg.Speech,
		Store:    a.snapshots,
		Metrics:  observe.DefaultMetrics(),
	})

	return a, nil
}

// initStore connects the snapshot store: PostgreSQL when a DSN is
// configured, in-memory otherwise.
func (a *App) initStore(ctx context.Context) error {
	if a.snapshots != nil {
		return nil
	}

	dsn := a.cfg.Store.PostgresDSN
	if dsn == "" {
		slog.Info("using in-memory snapshot store; grids are lost on restart")
		a.snapshots = store.NewMemoryStore()
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	pg := store.NewPostgresStore(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return err
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})
	a.snapshots = pg
	slog.Info("postgres snapshot store connected")
	return nil
}

// initSTT instantiates the configured STT provider, if any.
func (a *App) initSTT(reg *config.Registry) error {
	if a.sttProv != nil || a.cfg.Providers.STT.Name == "" {
		return nil
	}

	p, err := reg.CreateSTT(a.cfg.Providers.STT)
	if err != nil {
		return err
	}
	a.sttProv = p
	if c, ok := p.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}
	slog.Info("stt provider ready", "name", a.cfg.Providers.STT.Name)
	return nil
}

// Run serves until ctx is cancelled or a subsystem fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.srv.Run(ctx) })
	return g.Wait()
}

// Shutdown closes all subsystems in reverse initialisation order. Safe to
// call more than once.
func (a *App) Shutdown(context.Context) error {
	var errs []error
	a.stopOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// Sessions exposes the session manager, mainly for tests.
func (a *App) Sessions() *session.Manager { return a.sessions }

// Server exposes the HTTP server, mainly for tests.
func (a *App) Server() *server.Server { return a.srv }
