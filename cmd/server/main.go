package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"vn.io.arda/notifeed/internal/application"
	"vn.io.arda/notifeed/internal/channel"
	"vn.io.arda/notifeed/internal/config"
	"vn.io.arda/notifeed/internal/domain"
	"vn.io.arda/notifeed/internal/infrastructure/postgres"
	"vn.io.arda/notifeed/internal/infrastructure/rest"
	"vn.io.arda/notifeed/internal/metrics"
	"vn.io.arda/notifeed/internal/present"
	"vn.io.arda/notifeed/internal/pubsub/kafka"
	"vn.io.arda/notifeed/internal/pubsub/memory"
	"vn.io.arda/notifeed/internal/pubsub/redis"
	transporthttp "vn.io.arda/notifeed/internal/transport/http"
)

func main() {
	// ── Logging ──────────────────────────────────────────────────────────────
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.Server.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warn().Msg("auth.jwt_secret is empty, token signatures are NOT verified")
	}

	log.Info().
		Str("env", cfg.Server.Env).
		Str("port", cfg.Server.Port).
		Str("transport", cfg.Transport.Driver).
		Str("history", cfg.NotificationService.Driver).
		Msg("starting notifeed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Metrics ──────────────────────────────────────────────────────────────
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg, "notifeed")

	// ── Pub/Sub transport ────────────────────────────────────────────────────
	dialer, closeDialer := newDialer(cfg)
	defer closeDialer()

	// ── Notification Service ─────────────────────────────────────────────────
	notifications, closeSource := newNotificationService(ctx, cfg)
	defer closeSource()

	dashboard := rest.NewDashboardClient(cfg.Dashboard.BaseURL, cfg.Dashboard.Timeout, cfg.Dashboard.CacheTTL)

	// ── Feeds & SSE Hub ──────────────────────────────────────────────────────
	hub := transporthttp.NewHub()
	sessions := application.NewSessions(func() *application.Feed {
		return application.NewFeed(application.Deps{
			Dialer:        dialer,
			Notifications: notifications,
			Dashboard:     dashboard,
			Hub:           hub,
			Metrics:       m,
		}, application.Options{
			QueueSize:      cfg.Transport.QueueSize,
			ReconnectDelay: cfg.Transport.ReconnectDelay,
			HistoryLimit:   cfg.NotificationService.PageSize,
			Toast:          present.ToastOptions{Max: cfg.Toast.Max, TTL: cfg.Toast.TTL},
		})
	}, cfg.Sessions.IdleTTL, cfg.Sessions.CleanupInterval, m)

	// ── HTTP Server ──────────────────────────────────────────────────────────
	handler := transporthttp.NewHandler(sessions, hub, 0)
	router := transporthttp.NewRouter(handler, cfg.Auth, reg)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("HTTP server listening")
		if err := router.Start(":" + cfg.Server.Port); err != nil {
			log.Info().Msg("HTTP server stopped")
		}
	}()

	// ── Graceful Shutdown ────────────────────────────────────────────────────
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	sessions.Close()

	log.Info().Msg("notifeed stopped")
}

func newDialer(cfg *config.Config) (channel.Dialer, func()) {
	switch cfg.Transport.Driver {
	case config.DriverRedis:
		client, err := redis.NewClient(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create redis client")
		}
		log.Info().Msg("redis pub/sub transport configured")
		return redis.Dialer{Client: client, Prefix: cfg.Redis.ChannelPrefix}, func() { _ = client.Close() }

	case config.DriverMemory:
		log.Warn().Msg("in-memory transport: only in-process publishers reach the feed")
		return memory.New(), func() {}

	default:
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("kafka transport configured")
		return kafka.Dialer{
			Brokers:     cfg.Kafka.Brokers,
			TopicPrefix: cfg.Kafka.TopicPrefix,
			ClientID:    cfg.Kafka.ClientID,
		}, func() {}
	}
}

func newNotificationService(ctx context.Context, cfg *config.Config) (domain.NotificationService, func()) {
	if cfg.NotificationService.Driver != config.SourcePostgres {
		return rest.NewNotificationClient(cfg.NotificationService.BaseURL, cfg.NotificationService.Timeout), func() {}
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres ping failed")
	}
	log.Info().Msg("postgres connected")
	return postgres.New(pool), pool.Close
}
