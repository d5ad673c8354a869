package app

import (
	"context"
	"errors"
	"fmt"

	"coinwatch/config"
	"coinwatch/internal/server"
	"coinwatch/internal/watchlist"
	"coinwatch/pkg/coingecko"
	"coinwatch/pkg/storage"

	"go.uber.org/zap"
)

// App wires the fetcher, watchlist store, refresh scheduler and HTTP API.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	backend   storage.Backend
	store     *watchlist.Store
	scheduler *watchlist.Scheduler
	hub       *server.Hub
	server    *server.Server

	addr string
}

// New opens storage and loads the persisted watchlist. Nothing runs until Start.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	fetcher := coingecko.NewRESTClient(cfg.CoinGecko.REST.BaseURL, cfg.CoinGecko.REST.Timeout).
		WithAPIKey(cfg.CoinGecko.APIKey)

	store := watchlist.NewStore(ctx, fetcher, backend, logger.Named("watchlist"))
	scheduler := watchlist.NewScheduler(cfg.Refresh.Interval, store.Refresh, logger.Named("scheduler"))

	a := &App{
		cfg:       cfg,
		logger:    logger,
		backend:   backend,
		store:     store,
		scheduler: scheduler,
	}

	if cfg.Server.Enabled {
		a.hub = server.NewHub(logger.Named("ws"))
		store.OnChange(a.hub.Broadcast)

		handler := server.NewHandler(store, backend, a.hub, logger.Named("http"))
		a.server = server.New(cfg.Server.Addr, handler, a.hub, logger.Named("http"))
	}

	return a, nil
}

// Start begins serving and triggers the first fetch followed by periodic refreshes.
func (a *App) Start(ctx context.Context) error {
	if a.server != nil {
		addr, err := a.server.Start()
		if err != nil {
			return fmt.Errorf("start server: %w", err)
		}
		a.addr = addr
	}

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	return nil
}

// Stop halts the timer, drains the server and closes storage.
func (a *App) Stop(ctx context.Context) error {
	a.scheduler.Stop()

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown server: %w", err))
		}
	}
	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) Store() *watchlist.Store {
	return a.store
}

// Addr is the bound HTTP address, empty when the server is disabled.
func (a *App) Addr() string {
	return a.addr
}
