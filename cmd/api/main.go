package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/finantrack/internal/api/handlers"
	"github.com/dvloznov/finantrack/internal/api/middleware"
	"github.com/dvloznov/finantrack/internal/config"
	"github.com/dvloznov/finantrack/internal/gcsuploader"
	"github.com/dvloznov/finantrack/internal/jobs"
	"github.com/dvloznov/finantrack/internal/jobs/inmemory"
	"github.com/dvloznov/finantrack/internal/logger"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/dvloznov/finantrack/internal/suggest"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log := logger.NewWithLevel(cfg.LogLevel)
	ctx := context.Background()

	backend, err := config.OpenBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Failed to open backend")
	}
	defer backend.Close()

	var suggester service.Suggester
	if cfg.GeminiAPIKey != "" {
		classifier, err := suggest.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Gemini client")
		}
		suggester = classifier
	} else {
		log.Warn().Msg("No GEMINI_API_KEY configured - category suggestions are disabled")
	}

	svc := service.New(backend, suggester, service.Options{
		Locale:   cfg.Lang(),
		Location: cfg.Location(),
		Currency: cfg.Currency,
	}, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore, inmemory.WithLogger(log))
	exports := handlers.Exports{Store: jobStore, Bucket: cfg.GCSBucket, Prefix: cfg.ExportPrefix}

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	if cfg.GCSBucket == "" {
		log.Warn().Msg("No GCS bucket configured - history exports are disabled")
	} else {
		uploader, err := gcsuploader.New(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer uploader.Close()

		exporter := jobs.NewExporter(svc, uploader, log)
		if err := jobQueue.Start(workerCtx, exporter.Handle); err != nil {
			log.Fatal().Err(err).Msg("Failed to start export workers")
		}
		exports.Publisher = jobQueue
		exports.Fetcher = uploader
	}

	mux := http.NewServeMux()
	handlers.New(svc, exports, log).Register(mux)

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, log)
	defer limiter.Stop()

	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.RequestID,
		middleware.CORS(cfg.Origins()),
		limiter.Middleware,
		middleware.Auth("/health"),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("backend", cfg.Backend).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
