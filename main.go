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

	"github.com/gin-gonic/gin"
	"github.com/mama165/sdk-go/logs"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"presence-relay/internal/cleanup"
	"presence-relay/internal/config"
	"presence-relay/internal/conversations"
	"presence-relay/internal/dispatch"
	"presence-relay/internal/handlers"
	"presence-relay/internal/lifecycle"
	"presence-relay/internal/middleware"
	"presence-relay/internal/observability"
	"presence-relay/internal/presence"
	"presence-relay/internal/rabbitmq"
	"presence-relay/internal/signaling"
	"presence-relay/internal/telemetry"
	"presence-relay/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("presence-relay: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.Environment, logger)
	if err != nil {
		return fmt.Errorf("tracing init failed: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer func() {
		_ = publisher.Close()
	}()
	observability.SetPublisher(publisher)
	logger.Info("event publisher ready",
		"mode", rabbitmq.PublisherMode(publisher),
		"noop_reason", rabbitmq.PublisherNoopReason(publisher),
	)
	auditor := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment, logger)

	registry := presence.NewRegistry()
	store := conversations.NewStore()
	dispatcher := dispatch.NewDispatcher(registry, store, signaling.NewRelay(), logger)
	manager := lifecycle.NewManager(registry, logger)

	hub := ws.NewHub(logger)
	relayWS := ws.NewRelayWebSocketHandler(hub, dispatcher, manager, ws.Options{
		PingInterval:    cfg.PingInterval,
		PongTimeout:     cfg.PongTimeout,
		MaxMessageBytes: cfg.MaxMessageBytes,
		SendBuffer:      cfg.SendBuffer,
		AllowedOrigins:  cfg.Origins(),
	}, logger)

	scheduler := cleanup.NewScheduler(registry, store, auditor, cfg.CleanupInterval, logger)
	go scheduler.Run(ctx)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(observability.HTTPMetricsMiddleware())

	healthHandler := handlers.NewHealthHandler(time.Now())
	statsHandler := handlers.NewStatsHandler(hub, registry, store)

	router.GET("/health", healthHandler.Health)
	router.GET("/stats", statsHandler.Stats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", relayWS.Handle)
	if cfg.StaticDir != "" {
		router.Static("/docs", cfg.StaticDir)
	}
	handlers.RegisterDebugRoutes(router, auditor, scheduler, cfg.DebugRoutes)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           middleware.CORS(cfg.Origins())(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting http server", "address", srv.Addr, "at", time.Now().UTC())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	case err := <-errChan:
		return err
	}

	// Hijacked websocket connections are not tracked by http.Server.
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("server stopped cleanly")
	return nil
}
