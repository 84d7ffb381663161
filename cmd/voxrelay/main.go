package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/voxstudio/voxrelay/internal/config"
	"github.com/voxstudio/voxrelay/internal/httpapi"
	"github.com/voxstudio/voxrelay/internal/logging"
	"github.com/voxstudio/voxrelay/internal/observability"
	"github.com/voxstudio/voxrelay/internal/relay"
	"github.com/voxstudio/voxrelay/internal/studio"
	"github.com/voxstudio/voxrelay/internal/tools"
	"github.com/voxstudio/voxrelay/internal/transcript"
	"github.com/voxstudio/voxrelay/internal/upstream"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		FilePath: cfg.LogFile,
	})
	defer log.Sync()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := transcript.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("transcript store init failed", zap.Error(err))
	}
	defer store.Close()
	if cfg.DatabaseURL != "" {
		log.Info("transcript store: postgres")
	} else {
		log.Info("transcript store: in-memory")
	}

	personas, err := config.LoadPersonas(cfg.PersonaFile)
	if err != nil {
		log.Fatal("persona catalog load failed", zap.Error(err))
	}

	catalog, err := tools.LoadCatalog()
	if err != nil {
		log.Fatal("tool catalog load failed", zap.Error(err))
	}

	var recommender tools.Recommender
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		recommender, err = tools.NewGenAIRecommender(ctx, cfg.GeminiAPIKey, cfg.RecommendModel, catalog)
		if err != nil {
			log.Warn("recommender unavailable", zap.Error(err))
		}
	} else {
		log.Warn("GEMINI_API_KEY not set; sessions will fail to connect until configured")
	}

	studioClient := studio.NewClient(cfg.StudioBaseURL)
	if studioClient.Enabled() {
		log.Info("studio backend", zap.String("url", cfg.StudioBaseURL))
	} else {
		log.Info("studio backend not configured; generation tools degrade gracefully")
	}

	registry, err := tools.NewRegistry(tools.StandardRegistrations(tools.Deps{
		Catalog:     catalog,
		Generator:   studioClient,
		Project:     studioClient,
		Recommender: recommender,
	}))
	if err != nil {
		log.Fatal("tool registry init failed", zap.Error(err))
	}

	dispatcher := tools.NewDispatcher(registry, cfg.ToolTimeout, log, func(tool, outcome string) {
		metrics.ToolDispatches.WithLabelValues(tool, outcome).Inc()
	})

	api := httpapi.New(cfg, httpapi.Deps{
		Personas:     personas,
		Sessions:     relay.NewRegistry(metrics),
		Store:        store,
		Metrics:      metrics,
		Dialer:       upstream.LiveDialer{},
		Dispatcher:   dispatcher,
		ToolRegistry: registry,
		Workspace:    studioClient.WorkspaceSummary,
		Log:          log,
	})

	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
		_ = httpServer.Close()
	}

	log.Info("shutdown complete")
}
