package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/fishing-tournament/config"
	"github.com/Dosada05/fishing-tournament/db"
	"github.com/Dosada05/fishing-tournament/events"
	"github.com/Dosada05/fishing-tournament/handlers"
	"github.com/Dosada05/fishing-tournament/live"
	"github.com/Dosada05/fishing-tournament/repositories"
	api "github.com/Dosada05/fishing-tournament/routes"
	"github.com/Dosada05/fishing-tournament/scheduler"
	"github.com/Dosada05/fishing-tournament/services"
	"github.com/Dosada05/fishing-tournament/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const eventsExchange = "fishing.events"

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort), slog.String("env", cfg.AppEnv))
	handlers.SetExposeServerErrors(!cfg.IsProduction())

	// Подключение к базе данных и миграции
	dbConn, err := db.Connect(cfg.DatabaseURL, db.DefaultPool, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	version, err := db.Migrate(dbConn)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logger.Info("database schema is up to date", slog.Uint64("version", uint64(version)))

	// Хранилище файлов: R2, если настроено, иначе локальный диск.
	var uploader storage.FileUploader
	var localUploader *storage.LocalUploader
	if cfg.UseR2() {
		uploader, err = storage.NewCloudflareR2Uploader(context.Background(), storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		localUploader = storage.NewLocalUploader(cfg.UploadDir, cfg.PublicUploadBaseURL)
		if err := localUploader.Provision(); err != nil {
			return err
		}
		uploader = localUploader
		logger.Info("local uploader initialized", slog.String("dir", cfg.UploadDir))
	}

	// Redis для rate limiting (опционально)
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis is unreachable, rate limiting will fail open", slog.Any("error", err))
		}
		cancel()
		defer rdb.Close()
		logger.Info("redis client initialized", slog.String("addr", cfg.RedisAddr))
	}

	// Публикация доменных событий (опционально)
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, eventsExchange, logger)
		if err != nil {
			logger.Warn("AMQP publisher disabled", slog.Any("error", err))
		} else {
			publisher = amqpPublisher
			logger.Info("AMQP publisher initialized", slog.String("exchange", eventsExchange))
		}
	}
	defer publisher.Close()

	// WebSocket Hub
	wsHub := live.NewHub(logger)
	go wsHub.Run()
	defer wsHub.Stop()

	// Репозитории
	tx := repositories.NewTransactor(dbConn)
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	pondRepo := repositories.NewPostgresPondRepository(dbConn)
	zoneRepo := repositories.NewPostgresZoneRepository(dbConn)
	areaRepo := repositories.NewPostgresAreaRepository(dbConn)
	registrationRepo := repositories.NewPostgresRegistrationRepository(dbConn)
	catchRepo := repositories.NewPostgresCatchRepository(dbConn)
	leaderboardRepo := repositories.NewPostgresLeaderboardRepository(dbConn)

	// Сервисы
	pricing := services.NewPricingResolver(pondRepo, zoneRepo, areaRepo)
	availability := services.NewAvailabilityChecker(areaRepo)
	authService := services.NewAuthService(userRepo, logger)
	leaderboardService := services.NewLeaderboardService(tournamentRepo, leaderboardRepo, wsHub, logger)
	tournamentService := services.NewTournamentService(tournamentRepo, pondRepo, zoneRepo, areaRepo, availability, leaderboardService, logger)
	layoutService := services.NewLayoutService(tournamentRepo, pondRepo, zoneRepo, areaRepo)
	registrationService := services.NewRegistrationService(
		tx,
		tournamentRepo,
		registrationRepo,
		areaRepo,
		pricing,
		uploader,
		publisher,
		leaderboardService,
		logger,
		services.RegistrationServiceConfig{AllocationTimeout: cfg.AllocationTimeout},
	)
	catchService := services.NewCatchService(catchRepo, tournamentRepo, registrationRepo, uploader, publisher, leaderboardService, logger)

	// Планировщик очистки старых черновиков
	sched, err := scheduler.New(registrationService, scheduler.Config{
		DraftTTL:      cfg.DraftTTL,
		PurgeInterval: cfg.DraftPurgeInterval,
	}, logger)
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		if err := sched.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", slog.Any("error", err))
		}
	}()

	// Маршрутизатор
	router := chi.NewRouter()
	opts := api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.AllowedOrigins,
		Redis:          rdb,
		RateLimit:      api.DefaultRateLimit(cfg.RateLimitCapacity, cfg.RateLimitRefillInterval),
	}
	if localUploader != nil {
		opts.UploadDir = localUploader.Dir()
		opts.UploadURLPrefix = cfg.PublicUploadBaseURL
	}
	api.SetupRoutes(router, api.Handlers{
		Auth:         handlers.NewAuthHandler(authService, cfg.JWTSecretKey, cfg.TokenTTL),
		Tournament:   handlers.NewTournamentHandler(tournamentService),
		Layout:       handlers.NewLayoutHandler(layoutService),
		Registration: handlers.NewRegistrationHandler(registrationService, cfg.MaxUploadBytes),
		Catch:        handlers.NewCatchHandler(catchService, cfg.MaxUploadBytes),
		Leaderboard:  handlers.NewLeaderboardHandler(leaderboardService, wsHub, cfg.AllowedOrigins),
		Health:       handlers.NewHealthHandler(dbConn),
	}, opts)
	logger.Info("routes configured")

	// HTTP-сервер
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
