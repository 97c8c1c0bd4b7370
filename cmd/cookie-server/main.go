// Package main is the entry point for the cookie clicker game server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MRamiBalles/CookieClicker/internal/domain/item"
	"github.com/MRamiBalles/CookieClicker/internal/engine"
	"github.com/MRamiBalles/CookieClicker/internal/events"
	"github.com/MRamiBalles/CookieClicker/internal/infra/cache"
	"github.com/MRamiBalles/CookieClicker/internal/infra/storage"
	"github.com/MRamiBalles/CookieClicker/internal/network"
	"github.com/MRamiBalles/CookieClicker/internal/persistence"
	"github.com/MRamiBalles/CookieClicker/internal/platform/config"
	"github.com/MRamiBalles/CookieClicker/internal/platform/logger"
	"github.com/MRamiBalles/CookieClicker/internal/platform/metrics"
)

const shutdownTimeout = 5 * time.Second

func main() {
	log.Println("[COOKIE-SERVER] Initializing cookie clicker server...")

	appLogger := logger.NewLogger()
	if err := run(appLogger); err != nil {
		appLogger.Error(err.Error())
		os.Exit(1)
	}
	log.Println("[COOKIE-SERVER] Bye.")
}

func run(appLogger *logger.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger.Infof("Opening %s save store...", cfg.Backend)
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	defs, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	collector := metrics.Get()
	eventLog := events.NewEventLog(cfg.EventLogCapacity)
	gameEngine := engine.NewEngine(appLogger, engine.WithMetrics(collector), engine.WithEventLog(eventLog))
	if err := gameEngine.RegisterCatalog(defs); err != nil {
		return fmt.Errorf("register catalog: %w", err)
	}

	saves := persistence.NewAdapter(store, cfg.SaveKey, appLogger, collector)
	outcome, err := saves.Load(ctx, gameEngine)
	if err != nil {
		// Autosave would overwrite a save we merely failed to read.
		return fmt.Errorf("load save: %w", err)
	}
	appLogger.Infof("Save load outcome: %s", outcome)

	controller := network.NewController(gameEngine, saves, appLogger)
	hub := network.NewHub(controller, network.HubConfig{
		SendBuffer:         cfg.ClientSendBuffer,
		MaxClicksPerSecond: cfg.MaxClicksPerSecond,
	}, appLogger, collector)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	network.NewAPI(controller, hub, appLogger, cfg.MaxClicksPerSecond).RegisterRoutes(mux)
	network.NewHistoryHandler(eventLog, appLogger).RegisterRoutes(mux)
	mux.Handle("/metrics", collector.Handler())
	mux.Handle("/metrics/prometheus", collector.PrometheusHandler())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	hub.StartPoller(gctx)

	ticker := engine.NewTicker(gameEngine, cfg.TickInterval, appLogger)
	g.Go(func() error {
		ticker.Start(gctx)
		return nil
	})

	autosaver := engine.NewAutosaver(func(ctx context.Context) error {
		return saves.Save(ctx, gameEngine)
	}, cfg.AutosaveInterval, appLogger)
	g.Go(func() error {
		autosaver.Run(gctx)
		return nil
	})

	g.Go(func() error {
		appLogger.Infof("HTTP API & WS Server listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLogger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Println("[COOKIE-SERVER] Server running. Press Ctrl+C to exit.")
	return g.Wait()
}

// openStore builds the configured backend and the function releasing it.
func openStore(ctx context.Context, cfg config.Config) (storage.KVStore, func(), error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := storage.InitSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewSQLiteStore(db), func() { db.Close() }, nil
	case config.BackendPostgres:
		db, err := storage.OpenPostgres(cfg.PostgresDSN, cfg.DBMaxOpenConns)
		if err != nil {
			return nil, nil, err
		}
		return storage.NewPostgresStore(db), func() { db.Close() }, nil
	case config.BackendRedis:
		store, client, err := cache.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil
	case config.BackendMemory:
		return storage.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// loadCatalog returns the built-in catalog unless a YAML override is configured.
func loadCatalog(path string) ([]item.Definition, error) {
	if path == "" {
		return item.DefaultCatalog(), nil
	}
	defs, err := item.LoadCatalogFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return defs, nil
}
