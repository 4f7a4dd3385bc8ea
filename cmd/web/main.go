package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ericyum/tour-agent-frontend/internal/backend"
	"github.com/ericyum/tour-agent-frontend/internal/config"
	"github.com/ericyum/tour-agent-frontend/internal/course"
	"github.com/ericyum/tour-agent-frontend/internal/handlers"
	"github.com/ericyum/tour-agent-frontend/internal/i18n"
	"github.com/ericyum/tour-agent-frontend/internal/itinerary"
	mw "github.com/ericyum/tour-agent-frontend/internal/middleware"
	"github.com/ericyum/tour-agent-frontend/internal/observability"
	"github.com/ericyum/tour-agent-frontend/internal/storage/sqlitestore"
	"github.com/ericyum/tour-agent-frontend/internal/view"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	svc, err := newBackend(cfg.Backend)
	if err != nil {
		logger.Fatal("failed to initialise backend client", zap.Error(err))
	}
	if cfg.Backend.URL == "" {
		logger.Warn("no backend configured; serving the offline catalog")
	}
	courses, err := course.NewService(svc)
	if err != nil {
		logger.Fatal("failed to initialise course service", zap.Error(err))
	}

	store, err := sqlitestore.Open(ctx, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("failed to open itinerary database", zap.Error(err), zap.String("path", cfg.Storage.DBPath))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("itinerary database close error", zap.Error(err))
		}
	}()

	registry, err := itinerary.NewRegistry(itinerary.RegistryDeps{Storage: store, Logger: logger})
	if err != nil {
		logger.Fatal("failed to initialise itinerary registry", zap.Error(err))
	}

	bundle, err := i18n.Load(localesDir(cfg.Site.LocalesDir), cfg.Site.DefaultLocale, nil)
	if err != nil {
		logger.Fatal("failed to load message catalogs", zap.Error(err))
	}
	renderer, err := view.New(view.Options{Dir: cfg.Site.TemplatesDir, Dev: cfg.Dev, Bundle: bundle})
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	sessions, err := mw.NewSessionManager(mw.SessionConfig{
		HashKey:  []byte(cfg.Session.HashKey),
		BlockKey: []byte(cfg.Session.BlockKey),
		Secure:   cfg.Session.Secure,
		MaxAge:   cfg.Session.MaxAge,
	})
	if err != nil {
		logger.Fatal("failed to initialise sessions", zap.Error(err))
	}
	if cfg.Session.HashKey == "" {
		logger.Warn("session hash key not set; sessions will not survive a restart")
	}

	router, err := handlers.NewRouter(handlers.Deps{
		Backend:     svc,
		Course:      courses,
		Itineraries: registry,
		Renderer:    renderer,
		Bundle:      bundle,
		Sessions:    sessions,
		CSRF:        mw.CSRF(mw.CSRFConfig{Key: []byte(cfg.Session.CSRFKey), Secure: cfg.Session.Secure}),
		Logger:      logger,
		Ready:       store.Ping,
	})
	if err != nil {
		logger.Fatal("failed to build router", zap.Error(err))
	}

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	var sweepWG sync.WaitGroup
	sweepTicker := time.NewTicker(cfg.Itinerary.SweepInterval)
	sweepWG.Add(1)
	go func() {
		defer sweepWG.Done()
		sweepLogger := logger.Named("itinerary")
		for {
			select {
			case <-sweepTicker.C:
				if evicted := registry.Sweep(cfg.Itinerary.IdleTTL); evicted > 0 {
					sweepLogger.Debug("evicted idle itineraries", zap.Int("count", evicted), zap.Int("open", registry.Len()))
				}
			case <-sweepCtx.Done():
				return
			}
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	shutdown, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("festmoment web listening", zap.String("env", cfg.Environment), zap.Bool("dev", cfg.Dev))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown.Done()
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	sweepTicker.Stop()
	sweepCancel()
	sweepWG.Wait()
	registry.Close()
}

func newBackend(cfg config.BackendConfig) (backend.Service, error) {
	if cfg.URL == "" {
		return backend.NewStaticService(nil, nil)
	}
	return backend.NewHTTPService(cfg.URL+cfg.BasePath, nil,
		backend.WithAllLabel(cfg.AllLabel),
		backend.WithTimeout(cfg.Timeout),
	)
}

// localesDir falls back to the embedded catalogs when dir does not exist.
func localesDir(dir string) string {
	if dir == "" {
		return ""
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return ""
	}
	return dir
}
