package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"marketpulse/configs"
	"marketpulse/internal/adapter"
	"marketpulse/internal/adapter/kafka"
	"marketpulse/internal/adapter/source"
	"marketpulse/internal/adapter/telegram"
	"marketpulse/internal/database"
	httpdelivery "marketpulse/internal/delivery/http"
	"marketpulse/internal/delivery/ops"
	"marketpulse/internal/domain"
	"marketpulse/internal/infra"
	"marketpulse/internal/logger"
	"marketpulse/internal/metrics"
	"marketpulse/internal/middleware"
	"marketpulse/internal/repository"
	"marketpulse/internal/service"
	"marketpulse/internal/usecase"
	"marketpulse/internal/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	cfg, err := configs.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log, *once); err != nil {
		log.Fatal().Err(err).Msg("marketpulse stopped")
	}
}

func run(cfg *configs.Config, log zerolog.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	utils.SetLocation(loc)

	shutdownTracing, err := infra.InitTracing(ctx, cfg.Telemetry, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	db, err := infra.NewDatabase(ctx, cfg.Database, logger.Component(log, "database"))
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, logger.Component(log, "migrations")); err != nil {
		return err
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeLocker()

	publisher, err := newPublisher(cfg.Kafka, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(reg)

	// Repositories
	cycleRepo := repository.NewCycleRepository(db)
	observationRepo := repository.NewObservationRepository(db)
	signalRepo := repository.NewSignalRepository(db)
	contextRepo := repository.NewContextRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Sources
	sources, err := source.Build(cfg.Sources, &http.Client{Timeout: cfg.Sources.Timeout}, source.Clock{
		Now:      utils.GetMarketTime,
		Location: loc,
	})
	if err != nil {
		return err
	}
	crawler := service.NewCrawler(sources, cfg.Sources.Timeout, recorder, logger.Component(log, "crawler"))

	// Delivery
	if cfg.Telegram.BotToken == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN is not set, deliveries will fail")
	}
	channel := telegram.NewChannel(cfg.Telegram.BotToken, cfg.Telegram.APIBase, cfg.Telegram.Timeout)
	dispatcher := service.NewDispatcher(channel, notificationRepo, cfg.Delivery, recorder, logger.Component(log, "dispatcher"))

	var quotes domain.QuoteService
	if cfg.Quote.APIKey != "" {
		quotes = adapter.NewOpenAIQuoteService(cfg.Quote)
	} else {
		log.Info().Msg("OPENAI_API_KEY is not set, quotes are disabled")
	}

	cycleService := usecase.NewCycleService(usecase.CycleDeps{
		Cycles:        cycleRepo,
		Observations:  observationRepo,
		Signals:       signalRepo,
		Contexts:      contextRepo,
		Notifications: notificationRepo,
		Recipients:    userRepo,
		Goals:         userRepo,
		Quotes:        quotes,
		Publisher:     publisher,
		Locker:        locker,
		Crawler:       crawler,
		Normalizer:    service.NewNormalizer(loc),
		Generator:     service.NewSignalGenerator(cfg.Signal),
		Detector:      service.NewContextDetector(service.DefaultContextRules()),
		Formatter:     service.NewFormatter(loc),
		Dispatcher:    dispatcher,
		Metrics:       recorder,
		Log:           logger.Component(log, "cycle"),
	}, cfg.Cycle.CycleConfig)

	scheduler := infra.NewScheduler(cycleService, cfg.Cycle.SchedulerConfig, loc, logger.Component(log, "scheduler"))

	if once {
		scheduler.RunNow(ctx)
		return nil
	}

	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	// Admin and webhook API
	auth := middleware.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.AdminKeyHash)
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	httpdelivery.SetupRoutes(e, &httpdelivery.RouterConfig{
		AdminHandler:    httpdelivery.NewAdminHandler(cycleService, db, cfg.Cycle.Kind, logger.Component(log, "admin")),
		TelegramHandler: httpdelivery.NewTelegramHandler(userRepo, channel, cfg.Telegram.WebhookSecret, logger.Component(log, "telegram")),
		RequireAdmin:    auth.RequireAdmin,
		ServiceName:     cfg.Telemetry.ServiceName,
	})
	// Manual cycle runs hold the request open until the cycle finishes
	apiServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Cycle.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	opsServer := &http.Server{
		Addr:         ":" + cfg.Ops.Port,
		Handler:      ops.NewRouter(reg, readinessChecks(db, locker)),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	log.Info().
		Str("api", apiServer.Addr).
		Str("ops", opsServer.Addr).
		Str("env", cfg.Server.Env).
		Str("timezone", loc.String()).
		Int("sources", len(sources)).
		Msg("marketpulse starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(apiServer) })
	g.Go(func() error { return serve(opsServer) })
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down servers")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return errors.Join(apiServer.Shutdown(shutdownCtx), opsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("server exited gracefully")
	return nil
}

func serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server %s: %w", srv.Addr, err)
	}
	return nil
}

func newLocker(ctx context.Context, cfg infra.RedisConfig, log zerolog.Logger) (domain.Locker, func(), error) {
	if cfg.Addr == "" {
		log.Info().Msg("REDIS_ADDR is not set, using in-process cycle lock")
		return infra.NewLocalLocker(), func() {}, nil
	}

	locker, err := infra.NewRedisLocker(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("addr", cfg.Addr).Msg("redis cycle lock connected")
	return locker, func() { _ = locker.Close() }, nil
}

func newPublisher(cfg kafka.Config, log zerolog.Logger) (domain.EventPublisher, error) {
	if !cfg.Enabled {
		return kafka.NoopPublisher{}, nil
	}

	publisher, err := kafka.NewPublisher(cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka cycle events enabled")
	return publisher, nil
}

func readinessChecks(db *pgxpool.Pool, locker domain.Locker) map[string]ops.Check {
	checks := map[string]ops.Check{
		"postgres": db.Ping,
	}
	if rl, ok := locker.(*infra.RedisLocker); ok {
		checks["redis"] = rl.Ping
	}
	return checks
}
