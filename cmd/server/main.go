package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"livechat/internal/config"
	"livechat/internal/database"
	"livechat/internal/handlers"
	"livechat/internal/websocket"
	"livechat/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	if err := logger.SetLevel(cfg.Log.Level); err != nil {
		logger.Warn("%v, using info", err)
	}

	// Chat state lives for the lifetime of the process
	registry := database.NewRegistry()
	store := database.NewMessageStore()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := websocket.NewMetrics(promRegistry, registry, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize WebSocket hub
	hub := websocket.NewHub(registry, store, metrics)
	go hub.Run(ctx)

	// Setup routes
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})
	}
	router := handlers.NewRouter(hub, cfg.WebSocket, metricsHandler)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      corsMiddleware(cfg.WebSocket, router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("🚀 Server started on http://localhost%s", cfg.Server.Port)
	logger.Info("📡 WebSocket endpoint: ws://localhost%s/ws", cfg.Server.Port)
	printEndpoints(cfg)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Server shutting down...")
	case err := <-errCh:
		logger.Error("Server error: %v", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
	<-hub.Done()
	logger.Info("Server stopped")
}

func corsMiddleware(cfg config.WebSocketConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && cfg.AllowsOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func printEndpoints(cfg *config.Config) {
	logger.Info("🔗 Endpoints:")
	logger.Info("   GET /ws")
	logger.Info("   GET /healthz")
	if cfg.Metrics.Enabled {
		logger.Info("   GET /metrics")
	}
}
