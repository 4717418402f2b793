package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/sitegen-supportchat/cmd/mainconfig"
	"github.com/wolfman30/sitegen-supportchat/internal/api/router"
	"github.com/wolfman30/sitegen-supportchat/internal/app/bootstrap"
	appconfig "github.com/wolfman30/sitegen-supportchat/internal/config"
	"github.com/wolfman30/sitegen-supportchat/internal/conversation"
	"github.com/wolfman30/sitegen-supportchat/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/sitegen-supportchat/internal/http/middleware"
	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/leads"
	"github.com/wolfman30/sitegen-supportchat/internal/observability/metrics"
	"github.com/wolfman30/sitegen-supportchat/internal/webchat"
	"github.com/wolfman30/sitegen-supportchat/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger, closeLog := logging.NewWithFile(cfg.LogLevel, cfg.LogFile)
	defer closeLog()
	logger.Info("starting sitegen support chat API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

func run(cfg *appconfig.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, chatMetrics := setupChatMetrics()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	kb, err := loadKnowledgeBase(ctx, cfg, awsCfg)
	if err != nil {
		return err
	}
	logger.Info("knowledge base loaded",
		"version", kb.Version(),
		"topics", len(kb.Topics()),
		"default_language", kb.DefaultLanguage(),
	)

	remote, err := bootstrap.BuildResponder(ctx, cfg, awsCfg, chatMetrics, logger)
	if err != nil {
		return fmt.Errorf("build responder: %w", err)
	}

	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}
	store := buildLeadStore(pool, logger)

	email := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	channel, channels := bootstrap.BuildLeadChannel(cfg, awsCfg, store, email, logger)
	logger.Info("lead channels configured", "channels", channels)
	dispatcher := leads.NewDispatcher(kb, channel,
		leads.WithTimeout(cfg.LeadDeliveryTimeout),
		leads.WithLogger(logger),
		leads.WithMetrics(chatMetrics),
	)

	controller := conversation.NewController(conversation.Config{
		KnowledgeBase: kb,
		Responder:     remote,
		Leads:         dispatcher,
		HistoryTurns:  cfg.ResponderHistoryTurns,
		Logger:        logger,
		Metrics:       chatMetrics,
	})

	registry := webchat.NewRegistry(controller,
		webchat.WithIdleTimeout(cfg.SessionIdleTimeout),
		webchat.WithRegistryLogger(logger),
		webchat.WithRegistryMetrics(chatMetrics),
	)
	go registry.Run(ctx, time.Minute)

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}
	var transcript webchat.TranscriptStore
	if store := webchat.NewRedisTranscriptStore(redisClient, cfg.TranscriptTTL); store != nil {
		transcript = store
	}

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.RunCleanup(ctx, 5*time.Minute)
	}

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               webchat.NewHandler(controller, registry, transcript, logger),
		LeadsHandler:       leads.NewHandler(store, logger),
		KnowledgeHandler:   handlers.NewAdminKnowledgeHandler(kb, logger),
		HealthHandler:      handlers.NewHealthHandler(kb.Version(), registry.Len, healthChecks(redisClient, pool)),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ChatRateLimiter:    limiter,
		AdminAuth: httpmiddleware.AdminAuthConfig{
			Secret: cfg.AdminJWTSecret,
			Issuer: cfg.AdminJWTIssuer,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	registry.CloseAll()
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn("lead deliveries still pending at shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// setupChatMetrics registers the chat collectors on a private registry and
// returns the handler that exposes them.
func setupChatMetrics() (http.Handler, *metrics.ChatMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewChatMetrics(reg)
}

func loadKnowledgeBase(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config) (*knowledge.KnowledgeBase, error) {
	var objects knowledge.ObjectGetter
	if strings.HasPrefix(cfg.KnowledgeBaseSource, "s3://") {
		objects = mainconfig.NewS3Client(awsCfg, cfg)
	}
	kb, err := knowledge.LoadSource(ctx, cfg.KnowledgeBaseSource, objects)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	if cfg.DefaultLanguage == "" || knowledge.ParseLanguage(cfg.DefaultLanguage) == kb.DefaultLanguage() {
		return kb, nil
	}
	kb, err = kb.WithDefaultLanguage(knowledge.ParseLanguage(cfg.DefaultLanguage))
	if err != nil {
		return nil, fmt.Errorf("apply DEFAULT_LANGUAGE: %w", err)
	}
	return kb, nil
}

func buildLeadStore(pool *pgxpool.Pool, logger *logging.Logger) leads.Store {
	if pool == nil {
		logger.Warn("DATABASE_URL not set; contact requests are kept in memory")
		return leads.NewInMemoryStore()
	}
	return leads.NewPostgresStore(pool)
}

func healthChecks(redisClient *redis.Client, pool *pgxpool.Pool) map[string]handlers.Pinger {
	checks := map[string]handlers.Pinger{}
	if redisClient != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if pool != nil {
		checks["postgres"] = pool
	}
	return checks
}
