// Package main is the entry point for the WhatsApp assistant server.
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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lunia-labs/whatsapp-assistant/internal/action"
	"github.com/lunia-labs/whatsapp-assistant/internal/agent"
	"github.com/lunia-labs/whatsapp-assistant/internal/config"
	"github.com/lunia-labs/whatsapp-assistant/internal/handler"
	"github.com/lunia-labs/whatsapp-assistant/internal/kb"
	"github.com/lunia-labs/whatsapp-assistant/internal/middleware"
	natsclient "github.com/lunia-labs/whatsapp-assistant/internal/nats"
	"github.com/lunia-labs/whatsapp-assistant/internal/respond"
	"github.com/lunia-labs/whatsapp-assistant/internal/service"
	"github.com/lunia-labs/whatsapp-assistant/internal/session"
	"github.com/lunia-labs/whatsapp-assistant/internal/store"
	"github.com/lunia-labs/whatsapp-assistant/pkg/logger"
	"github.com/lunia-labs/whatsapp-assistant/pkg/tracing"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting WhatsApp assistant server")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "whatsapp-assistant", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// NATS analytics are optional: the assistant answers users with or
	// without the event stream.
	var natsClient *natsclient.Client
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, analytics events disabled", zap.Error(err))
			natsClient = nil
		} else {
			defer natsClient.Close()
		}
	}

	events := natsclient.NewEventPublisher(natsClient)
	if events != nil {
		if err := events.EnsureStream(ctx); err != nil {
			log.Warn("failed to ensure analytics stream", zap.Error(err))
		}
	}

	// Service action backends degrade independently: a missing email
	// config disables email sends, not calendar events.
	var emailClient action.EmailSender
	if c, err := service.NewEmailClient(cfg.SMTPServer, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, log); err != nil {
		log.Warn("email sending disabled", zap.Error(err))
	} else {
		emailClient = c
	}

	var calendarClient action.Calendar
	if cfg.CalendarAPIURL != "" && cfg.CalendarToken != "" {
		calendarClient = service.NewCalendarClient(cfg.CalendarAPIURL, cfg.CalendarID, cfg.CalendarToken, log)
	} else {
		log.Warn("calendar integration disabled")
	}

	var recordStore store.Store
	if s, err := store.NewPostgRESTStore(cfg.StoreURL, cfg.StoreAPIKey, log); err != nil {
		log.Warn("durable record store unavailable, using in-memory store", zap.Error(err))
		recordStore = store.NewMemoryStore()
	} else {
		recordStore = s
	}

	hasActions := emailClient != nil || calendarClient != nil
	var matcher *action.Matcher
	if hasActions {
		matcher = action.NewMatcher(emailClient, calendarClient, recordStore, events, log)
	}

	var knowledgeBase agent.KnowledgeBase
	answerer, err := kb.NewAnswerer(kb.Provider(cfg.KBProvider), kbAPIKey(cfg), cfg.KBModel)
	if err != nil {
		log.Warn("knowledge base disabled", zap.Error(err))
	} else {
		knowledgeBase = kb.NewService(answerer, cfg.KBCacheSize, cfg.KBTimeout, log)
	}

	var transcriber handler.Transcriber
	if t, err := service.NewTranscriber(cfg.OpenAIAPIKey, cfg.MaxAudioSizeMB, log); err != nil {
		log.Warn("audio transcription disabled", zap.Error(err))
	} else {
		transcriber = t
	}

	whatsapp := service.NewWhatsAppClient(cfg.EvolutionAPIURL, cfg.EvolutionAPIKey, cfg.EvolutionInstance, cfg.MessagingHTTPTimeout, log)
	sessions := session.NewMemoryStore(cfg.SessionTimeout, cfg.MaxConversationTurns, log)
	generator := respond.NewGenerator(cfg.MaxMessageLength, hasActions)

	orchestrator := agent.New(agent.Options{
		Messenger:   whatsapp,
		Matcher:     matcherOrNil(matcher),
		KB:          knowledgeBase,
		Sessions:    sessions,
		Generator:   generator,
		Events:      events,
		Logger:      log,
		TurnTimeout: cfg.TurnTimeout,
	})

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go sessions.RunSweeper(sweepCtx, cfg.SessionSweepInterval)

	healthHandler := handler.NewHealthHandler(natsClient)
	webhookHandler := handler.NewWebhookHandler(orchestrator, transcriber, cfg.WebhookSecret, log)
	adminHandler := handler.NewAdminHandler(sessions, matcher, log)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Webhook-Secret"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/webhook", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Post("/whatsapp", webhookHandler.Receive)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RequireScope("admin"))
		r.Use(middleware.OperatorRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions/{userID}", func(r chi.Router) {
			r.Get("/", adminHandler.GetSession)
			r.Delete("/", adminHandler.DeleteSession)
		})
		r.Get("/actions/{userID}", adminHandler.GetActions)
		r.Get("/stats", adminHandler.GetStats)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// kbAPIKey picks the credential matching the configured provider.
func kbAPIKey(cfg *config.Config) string {
	if kb.Provider(cfg.KBProvider) == kb.ProviderAnthropic {
		return cfg.AnthropicAPIKey
	}
	return cfg.OpenAIAPIKey
}

// matcherOrNil avoids handing the orchestrator a typed-nil interface.
func matcherOrNil(m *action.Matcher) agent.ActionMatcher {
	if m == nil {
		return nil
	}
	return m
}
