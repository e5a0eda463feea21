package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/shopscope/shopscope/internal/catalog"
	"github.com/shopscope/shopscope/internal/config"
	dbRedis "github.com/shopscope/shopscope/internal/db/redis"
	logpkg "github.com/shopscope/shopscope/internal/logger"
	"github.com/shopscope/shopscope/internal/metrics"
	historyrepo "github.com/shopscope/shopscope/internal/repository/history"
	chiTransport "github.com/shopscope/shopscope/internal/transport/chi"
	openaiExt "github.com/shopscope/shopscope/internal/transport/openai"
	sessionuc "github.com/shopscope/shopscope/internal/usecase/session"
	suggestuc "github.com/shopscope/shopscope/internal/usecase/suggest"
	visualuc "github.com/shopscope/shopscope/internal/usecase/visual"
	voiceuc "github.com/shopscope/shopscope/internal/usecase/voice"
	"github.com/shopscope/shopscope/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting shopscope API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("storage_addrs", cfg.Storage.Addrs),
		zap.String("catalog_base_url", cfg.Catalog.BaseURL),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Storage.Addrs,
		Password: cfg.Storage.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create storage", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Storage not ready", zap.Error(err))
	}
	logger.Info("Connected to storage")

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	catalogClient, err := catalog.NewClient(catalog.Config{
		BaseURL:       cfg.Catalog.BaseURL,
		TimeoutSec:    cfg.Catalog.TimeoutSec,
		FetchPageSize: cfg.Catalog.FetchPageSize,
	})
	if err != nil {
		logger.Fatal("Failed to create catalog client", zap.Error(err))
	}

	histStore := historyrepo.NewStore(store, store, cfg.Storage.KeyPrefix, cfg.Search.HistoryCap)

	// Visual similarity provider is optional; without it uploads still
	// register but searches fail upstream.
	var provider visualuc.SimilarityProvider
	if cfg.Visual.ProviderBaseURL != "" {
		p, err := catalog.NewSimilarityClient(cfg.Visual.ProviderBaseURL, cfg.Catalog.TimeoutSec)
		if err != nil {
			logger.Fatal("Failed to create similarity client", zap.Error(err))
		}
		provider = p
		logger.Info("Visual search enabled", zap.String("provider", cfg.Visual.ProviderBaseURL))
	}
	visualSvc := visualuc.New(store, provider, visualuc.Config{
		MaxBytes: cfg.Visual.MaxUploadBytes,
		TTL:      time.Duration(cfg.Visual.UploadTTLSec) * time.Second,
	})

	// LLM-backed intent extraction is optional; the rule scan runs regardless.
	var extractor voiceuc.Extractor
	if cfg.Voice.APIKey != "" {
		extractor = openaiExt.NewExtractor(&openaiExt.Config{
			APIKey:  cfg.Voice.APIKey,
			BaseURL: cfg.Voice.BaseURL,
			Model:   cfg.Voice.Model,
			Logger:  logger,
		})
		logger.Info("Voice intent extractor enabled", zap.String("model", cfg.Voice.Model))
	}
	voiceSvc := voiceuc.New(extractor)

	sessionSvc := sessionuc.New(catalogClient, visualSvc, voiceSvc, histStore, sessionuc.Config{
		DebounceInterval: time.Duration(cfg.Search.DebounceMillis) * time.Millisecond,
		IdleTimeout:      time.Duration(cfg.Search.SessionIdleSec) * time.Second,
		PageSize:         cfg.Search.PageSize,
	})

	suggestSvc := suggestuc.New(catalogClient, histStore, nil, cfg.Search.SuggestionsLimit)

	server := chiTransport.NewServer(
		sessionSvc, suggestSvc, voiceSvc, visualSvc, histStore, catalogClient, store, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

	// Reap idle sessions in the background.
	pruneCtx, stopPrune := context.WithCancel(ctx)
	defer stopPrune()
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-pruneCtx.Done():
				return
			case <-ticker.C:
				if n := sessionSvc.PruneIdle(); n > 0 {
					logger.Debug("pruned idle sessions", zap.Int("count", n))
				}
			}
		}
	}()

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
