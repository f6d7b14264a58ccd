package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nimbus-api/internal/config"
	"nimbus-api/internal/debug"
	"nimbus-api/internal/handler"
	"nimbus-api/internal/middleware"
)

func main() {
	configPath := flag.String("config", "", "path to config file (JSON or YAML)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	cfg, resolvedPath, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Config loaded", "path", resolvedPath, "port", cfg.Port, "upstream", cfg.UpstreamURL)

	if cfg.DebugEnabled {
		debug.CleanupAllLogs()
	}

	h := handler.New(cfg)
	limiter := middleware.NewConcurrencyLimiter(
		cfg.ConcurrencyLimit,
		time.Duration(cfg.ConcurrencyTimeout)*time.Second,
		cfg.AdaptiveTimeout,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", limiter.Limit(h.HandleChatCompletions))
	mux.HandleFunc("/v1/models", h.HandleModels)
	mux.HandleFunc("/v1/chat/models", h.HandleModels)
	mux.HandleFunc("/health", h.HandleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	if cfg.DebugEnabled {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/", h.HandleNotFound)

	wrapped := middleware.Chain(
		middleware.TraceMiddleware,
		middleware.LoggingMiddleware,
		middleware.RecoverMiddleware,
	)(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}
