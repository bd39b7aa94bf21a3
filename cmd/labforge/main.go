package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/manthysbr/labforge/internal/adapters/duckdb"
	"github.com/manthysbr/labforge/internal/adapters/export"
	"github.com/manthysbr/labforge/internal/adapters/llm"
	appconfig "github.com/manthysbr/labforge/internal/config"
	"github.com/manthysbr/labforge/internal/core/ports"
	"github.com/manthysbr/labforge/internal/core/services"
	"github.com/manthysbr/labforge/pkg/api"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting labforge")

	if err := run(logger); err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize encryption for API key storage
	secretKey, err := appconfig.NewSecretKey()
	if err != nil {
		return fmt.Errorf("failed to init secret key: %w", err)
	}

	repo, err := duckdb.NewRepository(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}
	defer repo.Close()

	textGen, err := llm.Build(cfg)
	if err != nil {
		return fmt.Errorf("failed to build llm provider: %w", err)
	}

	// Core services
	eventBus := services.NewEventBus(logger)
	generator := services.NewContentGenerator(logger, textGen)
	renderers := map[string]ports.DocumentRenderer{
		"docx": export.NewDocxRenderer(),
		"pdf":  export.NewPdfRenderer(),
	}
	jobService := services.NewJobService(logger, repo, generator, secretKey, eventBus, renderers)
	userService := services.NewUserService(logger, repo, secretKey)
	orchestrator := services.NewOrchestrator(logger, jobService, eventBus,
		cfg.OrchestratorBatchSize, cfg.RetryDelay, cfg.MaxRetryPasses)

	apiServer := api.NewServer(logger, userService, jobService, orchestrator, eventBus,
		api.NewJWTManager(cfg.JWTSecret, 7*24*time.Hour))

	// CORS Configuration
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: c.Handler(apiServer.Handler()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting api server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
