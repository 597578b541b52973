// Package main is the entry point for the assistant API server.
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
	"go.uber.org/zap"

	"github.com/concierge-ai/assistant-platform/internal/agent"
	"github.com/concierge-ai/assistant-platform/internal/capability"
	"github.com/concierge-ai/assistant-platform/internal/config"
	"github.com/concierge-ai/assistant-platform/internal/handler"
	"github.com/concierge-ai/assistant-platform/internal/history"
	"github.com/concierge-ai/assistant-platform/internal/llm"
	"github.com/concierge-ai/assistant-platform/internal/middleware"
	"github.com/concierge-ai/assistant-platform/internal/model"
	natsclient "github.com/concierge-ai/assistant-platform/internal/nats"
	"github.com/concierge-ai/assistant-platform/pkg/logger"
	"github.com/concierge-ai/assistant-platform/pkg/tracing"
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

	log.Info("starting assistant API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "assistant-platform", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
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
	defer natsClient.Close()

	// Thread state and turn audit on JetStream
	threadStore, err := natsclient.NewThreadStore(ctx, natsClient)
	if err != nil {
		log.Error("failed to create thread store", zap.Error(err))
		os.Exit(1)
	}
	turnPublisher, err := natsclient.NewTurnPublisher(ctx, natsClient)
	if err != nil {
		log.Error("failed to create turn publisher", zap.Error(err))
		os.Exit(1)
	}

	// Initialize LLM client
	provider := llm.Provider(cfg.DefaultLLM)
	apiKey := cfg.OpenAIAPIKey
	if provider == llm.ProviderAnthropic {
		apiKey = cfg.AnthropicAPIKey
	}
	llmClient, err := llm.NewClient(provider, apiKey)
	if err != nil {
		log.Error("failed to create LLM client", zap.Error(err))
		os.Exit(1)
	}
	log.Info("LLM client ready", zap.String("provider", llmClient.Name()))

	// Capability backends. Local in-process implementations; production
	// adapters plug in behind the same interfaces.
	calendar := capability.NewLocalCalendar()
	email := capability.NewLocalEmail()
	tasks := capability.NewLocalTasks()
	documents := capability.NewLocalDocuments(nil)
	var webSearch capability.WebSearch = capability.NoopWebSearch{}

	// Agents and dispatcher
	router := agent.NewRouter(llmClient, log)
	summarizer := history.NewSummarizer(llmClient, log)
	chatAgent := agent.NewChatAgent(llmClient, log)

	handlers := map[model.Intent]agent.Handler{
		model.IntentScheduleMeeting: agent.NewCalendarAgent(llmClient, calendar, log,
			cfg.BusinessHourStart, cfg.BusinessHourEnd, cfg.SlotSuggestions),
		model.IntentSendEmail:      agent.NewEmailAgent(llmClient, email, log),
		model.IntentTaskManagement: agent.NewTaskAgent(llmClient, tasks, calendar, log),
		model.IntentKnowledgeQuery: agent.NewKnowledgeAgent(llmClient, documents, webSearch, log),
		model.IntentWebSearch:      agent.NewWebSearchAgent(llmClient, webSearch, log),
		model.IntentGeneralChat:    chatAgent,
	}

	dispatcher := agent.NewDispatcher(
		threadStore,
		router,
		handlers,
		chatAgent,
		summarizer,
		turnPublisher,
		agent.DispatcherConfig{
			MaxHistoryTokens:   cfg.MaxHistoryTokens,
			KeepRecentMessages: cfg.KeepRecentMessages,
			SummaryEnabled:     cfg.SummaryEnabled,
		},
		log,
	)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	chatHandler := handler.NewChatHandler(dispatcher, log)
	threadHandler := handler.NewThreadHandler(dispatcher, log)
	whatsappHandler := handler.NewWhatsAppHandler(dispatcher, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// WhatsApp bridge webhook (bridge authenticates at the network layer)
	r.Post("/webhook/whatsapp", whatsappHandler.Webhook)

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat", chatHandler.Chat)
		r.Delete("/threads/{id}", threadHandler.Clear)
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
