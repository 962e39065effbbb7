// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zacanbrcom/auditorium-booking/internal/admin"
	"github.com/zacanbrcom/auditorium-booking/internal/auth"
	"github.com/zacanbrcom/auditorium-booking/internal/booking"
	"github.com/zacanbrcom/auditorium-booking/internal/config"
	"github.com/zacanbrcom/auditorium-booking/internal/core"
	"github.com/zacanbrcom/auditorium-booking/internal/health"
	"github.com/zacanbrcom/auditorium-booking/internal/middleware"
	"github.com/zacanbrcom/auditorium-booking/internal/notify"
	"github.com/zacanbrcom/auditorium-booking/internal/server"
	"github.com/zacanbrcom/auditorium-booking/internal/store"
	"github.com/zacanbrcom/auditorium-booking/internal/user"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	telemetry, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("failed to initialize telemetry", "error", err)
		telemetry = &core.Telemetry{}
	} else if telemetry.Enabled() {
		logger.Info("OpenTelemetry tracer initialized",
			"endpoint", cfg.Otel.Endpoint,
		)
	}

	db, err := core.NewStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	logger.Info("store opened",
		"driver", cfg.Store.Driver,
		"path", cfg.Store.Path,
		"strict_reads", cfg.Store.StrictReads,
	)

	users, err := store.Open(ctx, db, user.Table)
	if err != nil {
		_ = db.Close()
		return err
	}
	reservations, err := store.Open(ctx, db, booking.Table)
	if err != nil {
		_ = db.Close()
		return err
	}

	rdb, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return err
	}
	if rdb != nil {
		logger.Info("redis connected", "pool_size", cfg.Redis.PoolSize)
	} else {
		logger.Info("redis not configured, rate limiting is per process")
	}

	sender, err := notify.NewSender(notify.SenderConfig{
		Driver:        cfg.Notify.Driver,
		MailgunDomain: cfg.Notify.MailgunDomain,
		MailgunAPIKey: cfg.Notify.MailgunAPIKey,
		Sender:        cfg.Notify.Sender,
	}, logger)
	if err != nil {
		_ = db.Close()
		return err
	}
	notifier := notify.New(sender, notify.Config{
		ApproverEmail: cfg.Notify.ApproverEmail,
		QueueSize:     cfg.Notify.QueueSize,
		SendTimeout:   cfg.Notify.SendTimeout,
	}, logger)

	if cfg.Admin.SASecret == "" {
		logger.Warn("SA_SECRET is not set, superadmin generation is disabled")
	}

	userRepo := user.NewRepository(users, cfg.Store.StrictReads)
	userSvc := user.NewService(userRepo, cfg.Admin.SASecret, logger)
	userHandler := user.NewHandler(userSvc)

	resolver := auth.NewResolver(userSvc)
	authenticate := middleware.Authenticator(resolver)

	bookingRepo := booking.NewRepository(reservations, cfg.Store.StrictReads)
	bookingSvc := booking.NewService(
		bookingRepo,
		notifier,
		booking.DeletePolicy(cfg.Booking.DeletePolicy),
		logger,
	)
	bookingHandler := booking.NewHandler(bookingSvc)
	writeLimiter := middleware.NewRateLimiter(rdb.RawClient(), middleware.RateLimitConfig{
		Limit: middleware.PerWindow(
			cfg.RateLimit.Writes,
			cfg.RateLimit.WriteBurst,
			cfg.RateLimit.Window,
		),
		KeyFunc: middleware.KeyByIdentity,
	})

	var redisCheck health.Checker
	adminCfg := admin.HandlerConfig{
		EngineStats: db.Stats,
		Partitions:  db.Partitions,
		StorePing:   db.Ping,
	}
	if rdb != nil {
		redisCheck = rdb
		adminCfg.RedisStats = rdb.PoolStats
		adminCfg.RedisPing = rdb.Ping
	}

	healthHandler := health.NewHandler(db, redisCheck)
	adminHandler := admin.NewHandler(adminCfg)

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(rdb.RawClient(), middleware.RateLimitConfig{
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			Skip: middleware.SkipPaths("/healthz", "/livez", "/readyz"),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))
	router.Use(middleware.Flush(db))

	healthHandler.RegisterRoutes(router)

	userHandler.RegisterRoutes(router, authenticate)

	router.Route("/api", func(r chi.Router) {
		bookingHandler.RegisterRoutes(r, authenticate, writeLimiter.Handler)
	})

	router.Route("/admin", func(r chi.Router) {
		userHandler.RegisterAdminRoutes(r, authenticate)
		adminHandler.RegisterRoutes(r, authenticate)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err = <-errChan:
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+cfg.Server.DrainDelay+5*time.Second,
	)
	defer cancel()

	if err == nil {
		if shutdownErr := srv.Shutdown(shutdownCtx, cfg.Server.DrainDelay); shutdownErr != nil {
			logger.Error("server shutdown error", "error", shutdownErr)
		}
	}

	if closeErr := notifier.Close(shutdownCtx); closeErr != nil {
		logger.Error("notifier close error", "error", closeErr)
	}

	if shutdownErr := telemetry.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("telemetry shutdown error", "error", shutdownErr)
	}

	if closeErr := rdb.Close(); closeErr != nil {
		logger.Error("redis close error", "error", closeErr)
	}

	if closeErr := db.Close(); closeErr != nil {
		logger.Error("store close error", "error", closeErr)
	}

	logger.Info("application stopped")
	return err
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
