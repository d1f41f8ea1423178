package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OdenLounge/Oden-Lounge/internal/api"
	"github.com/OdenLounge/Oden-Lounge/internal/config"
	"github.com/OdenLounge/Oden-Lounge/internal/database"
	"github.com/OdenLounge/Oden-Lounge/internal/database/surreal"
	"github.com/OdenLounge/Oden-Lounge/internal/domain"
	"github.com/OdenLounge/Oden-Lounge/internal/events"
	"github.com/OdenLounge/Oden-Lounge/internal/google"
	"github.com/OdenLounge/Oden-Lounge/internal/logging"
	"github.com/OdenLounge/Oden-Lounge/internal/mail"
	"github.com/OdenLounge/Oden-Lounge/internal/media"
	"github.com/OdenLounge/Oden-Lounge/internal/metrics"
	"github.com/OdenLounge/Oden-Lounge/internal/repository"
	"github.com/OdenLounge/Oden-Lounge/internal/service"
	"github.com/OdenLounge/Oden-Lounge/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// per-subscriber buffer for best-effort event sinks
const eventQueueSize = 256

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, sqliteDB, err := initStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	redisClient := initRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	mailer, err := mail.NewSender(cfg.Mail, logging.Component(logger, "mail"))
	if err != nil {
		return fmt.Errorf("init mail sender: %w", err)
	}

	mediaHost, err := media.NewCloudinary(cfg.Media, logging.Component(logger, "media"))
	if err != nil {
		return fmt.Errorf("init media host: %w", err)
	}

	bus := events.NewEventBus(logging.Component(logger, "events"))
	bus.SubscribeAll(service.MetricsHandler)
	initTelegram(ctx, cfg, bus, logger)
	initSheetsSync(ctx, cfg, bus, redisClient, logger)
	if forwarder := initAMQP(ctx, cfg, bus, logger); forwarder != nil {
		defer forwarder.Close()
	}

	reconciler := worker.NewMediaReconciler(
		store,
		mediaHost,
		bus,
		worker.PolicyFromConfig(cfg.Reconciler),
		cfg.Reconciler.Interval,
		cfg.Reconciler.BatchSize,
		logging.Component(logger, "media-reconciler"),
	)
	if cfg.Reconciler.Enabled {
		go reconciler.Start(ctx)
	}

	if sqliteDB != nil && cfg.Backup.Enabled {
		go database.NewSnapshotter(sqliteDB, cfg.Backup, logging.Component(logger, "backup")).Start(ctx)
	}

	reservations := service.NewReservationService(
		store,
		mailer,
		initThrottle(ctx, redisClient, logger),
		bus,
		service.ReservationOptions{
			OperatorEmail:  cfg.Mail.Operator,
			LogoURL:        cfg.Mail.LogoURL,
			ContactEmail:   cfg.Mail.ContactEmail,
			ThrottleLimit:  cfg.Booking.ThrottleLimit,
			ThrottleWindow: cfg.Booking.ThrottleWindow,
		},
		logging.Component(logger, "reservations"),
	)
	gallery := service.NewGalleryService(store, mediaHost, reconciler, bus, cfg.HTTP.MaxUploadBytes, logging.Component(logger, "gallery"))
	contact := service.NewContactService(mailer, cfg.Mail.Operator, cfg.Mail.LogoURL, logging.Component(logger, "contact"))

	httpServer := api.NewHTTPServer(cfg.HTTP, api.Services{
		Reservations: reservations,
		Gallery:      gallery,
		Contact:      contact,
		Store:        store,
	}, logging.Component(logger, "http"))

	startMetrics(ctx, cfg, logger)

	return serve(ctx, httpServer, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}

	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

// initStore opens the configured store. The SQLite handle is returned as well
// so snapshots can be scheduled for it.
func initStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (domain.Store, *database.DB, error) {
	switch cfg.Database.Driver {
	case config.DriverSurreal:
		store, err := surreal.New(ctx, cfg.Database.Surreal, logging.Component(logger, "surrealdb"))
		if err != nil {
			logger.Error().Err(err).Str("url", cfg.Database.Surreal.URL).Msg("init surrealdb")
			return nil, nil, err
		}
		return store, nil, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logging.Component(logger, "sqlite"))
		if err != nil {
			logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
			return nil, nil, err
		}
		return db, db, nil
	}
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initThrottle(ctx context.Context, redisClient *redis.Client, logger *zerolog.Logger) domain.BookingThrottle {
	memory := repository.NewMemoryThrottle()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				memory.Sweep()
			}
		}
	}()

	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverThrottle(repository.NewRedisThrottle(redisClient), memory, logging.Component(logger, "throttle"))
}

func initTelegram(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.OperatorChatID == 0 {
		return
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without operator alerts")
		return
	}
	bot.Debug = cfg.Telegram.Debug

	tgLogger := logging.Component(logger, "telegram")
	alerts := service.NewTelegramService(bot, cfg.Telegram.OperatorChatID, tgLogger)
	q := events.NewQueue("telegram", alerts.HandleEvent, eventQueueSize, tgLogger)
	go q.Run(ctx)
	bus.Subscribe(events.EventReservationCreated, q.Handle)
	bus.Subscribe(events.EventReservationStatusChanged, q.Handle)
	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram operator alerts enabled")
}

func initSheetsSync(ctx context.Context, cfg *config.Config, bus *events.EventBus, redisClient *redis.Client, logger *zerolog.Logger) {
	if cfg.Google.CredentialsFile == "" || cfg.Google.SpreadsheetID == "" {
		return
	}

	sheet, err := google.NewReservationSheet(ctx, cfg.Google.CredentialsFile, cfg.Google.SpreadsheetID, cfg.Google.SheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return
	}
	if err := sheet.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets")
		return
	}
	if err := sheet.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets header check failed")
	}
	if err := sheet.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets cache warm-up failed")
	}

	w := worker.NewSheetsWorker(sheet, redisClient, worker.RetryPolicy{}, logging.Component(logger, "sheets-worker"))
	go w.Start(ctx)

	handler := service.SheetsSyncHandler(w, worker.TaskUpsert, worker.TaskUpdateStatus)
	q := events.NewQueue("sheets", handler, eventQueueSize, logging.Component(logger, "sheets-worker"))
	go q.Run(ctx)
	bus.Subscribe(events.EventReservationCreated, q.Handle)
	bus.Subscribe(events.EventReservationStatusChanged, q.Handle)
	logger.Info().Msg("google sheets connected")
}

func initAMQP(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) *events.AMQPForwarder {
	if cfg.AMQP.URL == "" {
		return nil
	}

	amqpLogger := logging.Component(logger, "amqp")
	forwarder, err := events.NewAMQPForwarder(cfg.AMQP.URL, cfg.AMQP.Exchange, amqpLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("amqp connection failed, continuing without event forwarding")
		return nil
	}
	q := events.NewQueue("amqp", forwarder.Handle, eventQueueSize, amqpLogger)
	go q.Run(ctx)
	bus.SubscribeAll(q.Handle)
	return forwarder
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	logger.Info().Int("http_port", cfg.HTTP.Port).Str("env", cfg.App.Environment).Msg("API server started")

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
