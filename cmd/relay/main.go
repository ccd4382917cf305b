// Package main is the entry point for the translation relay server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/internal/config"
	"github.com/crosscall-ai/translation-relay/internal/dialer"
	"github.com/crosscall-ai/translation-relay/internal/handler"
	"github.com/crosscall-ai/translation-relay/internal/middleware"
	"github.com/crosscall-ai/translation-relay/internal/relaybus"
	"github.com/crosscall-ai/translation-relay/internal/session"
	"github.com/crosscall-ai/translation-relay/internal/settings"
	"github.com/crosscall-ai/translation-relay/internal/store"
	"github.com/crosscall-ai/translation-relay/internal/translate"
	"github.com/crosscall-ai/translation-relay/internal/ws"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
	"github.com/crosscall-ai/translation-relay/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting translation relay server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "translation-relay", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Session store: Redis when configured, in-memory otherwise.
	storeCfg := store.Config{
		ConnectionTTL: cfg.ConnectionTTL,
		TranscriptTTL: cfg.TranscriptTTL,
		ProxyTTL:      cfg.ProxyTTL,
	}
	var sessionStore store.Store
	var storePinger handler.Pinger
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		redisStore := store.NewRedis(redisClient, storeCfg)
		sessionStore = redisStore
		storePinger = redisStore
		log.Info("using redis session store", zap.String("addr", cfg.RedisAddr))
	} else {
		sessionStore = store.NewMemory(storeCfg)
		log.Warn("REDIS_ADDR not set, using in-memory session store")
	}

	// Connect to NATS
	busClient, err := relaybus.Connect(ctx, relaybus.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer busClient.Close()

	// Ensure JetStream stream exists
	streamManager := relaybus.NewStreamManager(busClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// Translation gateway
	var translationClient translate.Client
	if cfg.AnthropicAPIKey != "" {
		translationClient, err = translate.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.TranslationModel)
	} else {
		translationClient, err = translate.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.TranslationModel)
	}
	if err != nil {
		log.Error("failed to create translation client", zap.Error(err))
		os.Exit(1)
	}
	gateway := translate.NewGateway(translationClient, log)
	log.Info("translation provider selected", zap.String("provider", translationClient.Name()))

	resolver := settings.NewResolver(sessionStore)

	// Party channels and the session coordinator
	registry := ws.NewRegistry()
	coordinator := session.NewCoordinator(sessionStore, gateway, registry, streamManager, streamManager, log)
	channelHandler := ws.NewHandler(registry, coordinator, log)

	// Outbound dialer worker, active only when telephony credentials are
	// configured. Activation signals stay on the stream otherwise.
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		placer, err := dialer.NewTwilioPlacer(dialer.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			BaseURL:    cfg.TwilioBaseURL,
		})
		if err != nil {
			log.Error("failed to create call placer", zap.Error(err))
			os.Exit(1)
		}

		worker := dialer.NewWorker(dialer.Config{
			RelayWebSocketURL: cfg.RelayWebSocketURL,
			DefaultFromNumber: cfg.DefaultFromNumber,
			AgentPhoneNumber:  cfg.AgentPhoneNumber,
			QueueNumber:       cfg.QueueNumber,
		}, sessionStore, resolver, gateway, placer, log)

		consumeCtx, err := streamManager.ConsumeActivations(ctx, worker.HandleActivation)
		if err != nil {
			log.Error("failed to start dialer worker", zap.Error(err))
			os.Exit(1)
		}
		defer consumeCtx.Stop()
	} else {
		log.Warn("telephony credentials not set, dialer worker disabled")
	}

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(busClient, storePinger)
	inboundHandler := handler.NewInboundHandler(cfg.RelayWebSocketURL, resolver, gateway, log)
	profileHandler := handler.NewProfileHandler(sessionStore, log)
	conversationHandler := handler.NewConversationHandler(sessionStore, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// Party channel websocket
	r.Get("/ws", channelHandler.Serve)

	// Telephony webhook
	r.Post("/twiml/inbound", inboundHandler.Inbound)

	// Admin API with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", profileHandler.List)

			r.Route("/{phoneNumber}", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Put("/", profileHandler.Upsert)
				r.Delete("/", profileHandler.Delete)
			})
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Get("/active", conversationHandler.Active)
			r.Get("/{id}/transcript", conversationHandler.Transcript)
		})
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
