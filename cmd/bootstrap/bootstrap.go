package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-backend/config"
	deliveryHttp "clinic-backend/internal/delivery/http"
	"clinic-backend/internal/delivery/http/handler"
	"clinic-backend/internal/delivery/http/middleware"
	"clinic-backend/internal/infrastructure/cache"
	"clinic-backend/internal/infrastructure/database"
	"clinic-backend/internal/infrastructure/realtime"
	"clinic-backend/internal/repository"
	"clinic-backend/internal/service"
	"clinic-backend/internal/usecase"
	"clinic-backend/pkg/jwt"
	"clinic-backend/pkg/timezone"
	"clinic-backend/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	startupSyncTimeout = 10 * time.Second
	shutdownTimeout    = 10 * time.Second
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Server      *http.Server

	log           *logrus.Logger
	hub           *realtime.Hub
	bridge        *realtime.RedisBridge
	notifier      *service.EventNotifier
	sequencer     *service.QueueSequenceService
	appointmentMu *service.KeyedMutex
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	app.log = setupLogger(cfg.App.LogLevel)
	app.log.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	app.log.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	app.log.Info("Redis connected successfully")

	// Initialize all layers
	if err := app.initializeServer(); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(level string) *logrus.Logger {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("Unknown LOG_LEVEL %q, using info", level)
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}

// initializeServer wires repositories, services, usecases and handlers into the HTTP server
func (app *App) initializeServer() error {
	cfg := app.Config
	log := app.log

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	clock := timezone.NewClock(cfg.App.Timezone)
	tx := database.NewTransactor(app.DB)

	// Initialize repositories
	appointmentRepo := repository.NewAppointmentRepository()
	queueEntryRepo := repository.NewQueueEntryRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	patientProfileRepo := repository.NewPatientProfileRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Real-time delivery
	app.hub = realtime.NewHub(log)
	sinks := []service.Sink{app.hub}
	if cfg.Notifier.Transport == config.NotifierTransportRedis {
		// Every instance relays Redis events into its own hub, so the hub is not a direct sink
		app.bridge = realtime.NewRedisBridge(app.RedisClient, app.hub, log)
		if err := app.bridge.Start(context.Background()); err != nil {
			return fmt.Errorf("failed to start notification bridge: %w", err)
		}
		sinks = []service.Sink{realtime.NewRedisSink(app.RedisClient)}
	}
	app.notifier = service.NewEventNotifier(log, cfg.Notifier.BufferSize, sinks...)

	// Initialize services
	auditService := service.NewAuditService(log, auditLogRepo)
	availability := service.NewAvailabilityService(tx, log, doctorProfileRepo, appointmentRepo, cfg.Scheduling)
	ranker := service.NewSlotRanker(availability, log, cfg.Scheduling.RecommendationLimit, clock)
	diagnoser := service.NewRuleBasedDiagnoser()
	app.sequencer = service.NewQueueSequenceService(tx, queueEntryRepo, app.RedisClient, log, clock)
	app.appointmentMu = service.NewKeyedMutex("appointment-checkin", log)

	// Seed today's queue counter from PostgreSQL before accepting traffic
	syncCtx, cancel := context.WithTimeout(context.Background(), startupSyncTimeout)
	if err := app.sequencer.SyncOnStartup(syncCtx); err != nil {
		log.Warnf("Queue sequence sync failed, counters will seed on first check-in: %v", err)
	}
	cancel()

	// Initialize usecases
	appointmentUsecase := usecase.NewAppointmentUsecase(tx, log, appointmentRepo, queueEntryRepo, doctorProfileRepo, patientProfileRepo,
		auditService, diagnoser, ranker, app.notifier, clock)
	queueUsecase := usecase.NewQueueUsecase(tx, log, appointmentRepo, queueEntryRepo, auditService, app.sequencer,
		app.notifier, clock, cfg.Scheduling.DefaultWaitMinutes, app.appointmentMu)
	schedulingUsecase := usecase.NewSchedulingUsecase(tx, log, doctorProfileRepo, availability, ranker)
	auditLogUsecase := usecase.NewAuditLogUsecase(tx, log, auditLogRepo)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator, log)
	queueHandler := handler.NewQueueHandler(queueUsecase, customValidator, log)
	providerHandler := handler.NewProviderHandler(schedulingUsecase, customValidator, log)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase, log)
	realtimeHandler := handler.NewRealtimeHandler(app.hub, cfg.App.AllowedOrigins, log)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins)

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, queueHandler, providerHandler, auditLogHandler,
		realtimeHandler, authMiddleware, corsMiddleware)
	httpRouter := router.Setup()

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	// Start server in goroutine
	go func() {
		app.log.Infof("Server starting on port %s", app.Config.App.Port)
		app.log.Infof("Environment: %s, timezone: %s, notifier: %s",
			app.Config.App.Env, app.Config.App.Timezone, app.Config.Notifier.Transport)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	app.waitForShutdown()
}

// waitForShutdown blocks until an interrupt signal is received
func (app *App) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.log.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		app.log.Errorf("Server forced to shutdown: %v", err)
	}

	app.Close()

	app.log.Info("Server shutdown complete")
}

// Close stops background workers and closes all connections.
// Pending events are flushed before the hub and Redis go away.
func (app *App) Close() {
	if app.notifier != nil {
		app.notifier.Stop()
	}
	if app.bridge != nil {
		app.bridge.Stop()
	}
	if app.hub != nil {
		app.hub.Close()
	}
	if app.sequencer != nil {
		app.sequencer.Stop()
	}
	if app.appointmentMu != nil {
		app.appointmentMu.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}

// MigrateUp applies every pending schema migration
func MigrateUp() error {
	return withDatabase(func(db *gorm.DB) error {
		return database.MigrateUp(db)
	})
}

// MigrateDown rolls back the given number of migrations
func MigrateDown(steps int) error {
	return withDatabase(func(db *gorm.DB) error {
		return database.MigrateDown(db, steps)
	})
}

func withDatabase(fn func(db *gorm.DB) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	setupLogger(cfg.App.LogLevel)

	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.Env)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	return fn(db)
}
