package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-api/internal/config"
	"github.com/clinicore/clinic-api/internal/email"
	auditHandler "github.com/clinicore/clinic-api/internal/handler/audit"
	authHandler "github.com/clinicore/clinic-api/internal/handler/auth"
	healthHandler "github.com/clinicore/clinic-api/internal/handler/health"
	medicalHandler "github.com/clinicore/clinic-api/internal/handler/medical"
	orderHandler "github.com/clinicore/clinic-api/internal/handler/order"
	patientHandler "github.com/clinicore/clinic-api/internal/handler/patient"
	settingHandler "github.com/clinicore/clinic-api/internal/handler/setting"
	userHandler "github.com/clinicore/clinic-api/internal/handler/user"
	visitHandler "github.com/clinicore/clinic-api/internal/handler/visit"
	"github.com/clinicore/clinic-api/internal/middleware"
	"github.com/clinicore/clinic-api/internal/repository/postgres"
	"github.com/clinicore/clinic-api/internal/router"
	auditService "github.com/clinicore/clinic-api/internal/service/audit"
	authService "github.com/clinicore/clinic-api/internal/service/auth"
	eventService "github.com/clinicore/clinic-api/internal/service/event"
	medicalService "github.com/clinicore/clinic-api/internal/service/medical"
	notificationService "github.com/clinicore/clinic-api/internal/service/notification"
	orderService "github.com/clinicore/clinic-api/internal/service/order"
	patientService "github.com/clinicore/clinic-api/internal/service/patient"
	"github.com/clinicore/clinic-api/internal/service/sequence"
	settingService "github.com/clinicore/clinic-api/internal/service/setting"
	userService "github.com/clinicore/clinic-api/internal/service/user"
	visitService "github.com/clinicore/clinic-api/internal/service/visit"
	"github.com/clinicore/clinic-api/pkg/auth"
	"github.com/clinicore/clinic-api/pkg/clock"
	"github.com/clinicore/clinic-api/pkg/logger"
	"github.com/clinicore/clinic-api/pkg/messaging/redis"
	"github.com/clinicore/clinic-api/pkg/metrics"
	"github.com/clinicore/clinic-api/pkg/security"
	"github.com/clinicore/clinic-api/pkg/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := setupLogging(cfg.Log)

	m := metrics.New("clinic_api")
	clk := clock.New()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	repos := postgres.NewRepositories(db)
	generator := sequence.NewGenerator(repos.Counter, clk, m)

	// Services
	auditor := auditService.NewService(repos.Audit)
	eventSvc := eventService.NewService(repos.Outbox)
	settingSvc := settingService.NewService(repos.Setting, auditor)

	var emailSvc email.Service
	if smtpCfg := cfg.SMTP.ToEmailConfig(); smtpCfg.IsConfigured() {
		emailSvc = email.NewSMTPService(smtpCfg)
	} else {
		emailSvc = email.NewNoopService()
	}
	notificationSvc := notificationService.NewService(repos.Notification, emailSvc, broker, settingSvc, clk)

	patientSvc := patientService.NewService(repos.Patient, generator, clk, auditor, eventSvc)
	visitSvc := visitService.NewService(repos.Visit, repos.Patient, generator, clk, auditor, eventSvc, notificationSvc, m)
	medicalSvc := medicalService.NewService(repos.Vital, repos.Diagnosis, repos.ClinicalNote, repos.Visit, clk, auditor)
	orderSvc := orderService.NewService(repos.Order, repos.Visit, generator, clk, auditor, eventSvc)

	hasher := security.NewHasher(0)
	tokenMgr := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)
	authSvc := authService.NewService(repos.User, repos.Token, tokenMgr, hasher, clk, auditor)
	userSvc := userService.NewService(repos.User, repos.Token, hasher, auditor)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	// Handlers
	healthH := healthHandler.NewHandler(map[string]healthHandler.Check{
		"database": func(ctx context.Context) error { return db.PingContext(ctx) },
		"broker":   broker.Ping,
	})

	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		patientHandler.NewHandler(patientSvc, visitSvc, medicalSvc),
		visitHandler.NewHandler(visitSvc),
		medicalHandler.NewHandler(medicalSvc),
		orderHandler.NewHandler(orderSvc),
		settingHandler.NewHandler(settingSvc),
		userHandler.NewHandler(userSvc),
		auditHandler.NewHandler(auditor),
		healthH,
		router.Config{
			RateLimitRPS:   cfg.RateLimit.RPS,
			RateLimitBurst: cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodySize:    cfg.Server.MaxBodySize,
			CORS:           cfg.CORS.ToCORSConfig(),
			MetricsPrefix:  "clinic_api_http",
		},
	)
	r.Setup()

	// Outbox processor runs alongside the API so events flow even with
	// no worker deployed. The worker binary runs the same loop; row
	// locking keeps them from stepping on each other.
	processorCtx, stopProcessor := context.WithCancel(context.Background())
	outboxProcessor := worker.NewOutboxProcessor(repos.Outbox, broker, cfg.Outbox.ToProcessorConfig(), appLogger, m)
	go outboxProcessor.Start(processorCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopProcessor()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

func setupLogging(cfg config.LogConfig) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Pretty,
	})
}
