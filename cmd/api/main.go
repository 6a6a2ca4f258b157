package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rastromax/rastromax-backend/api/routes"
	authsvc "github.com/rastromax/rastromax-backend/internal/auth"
	"github.com/rastromax/rastromax-backend/internal/mirror"
	"github.com/rastromax/rastromax-backend/internal/notify"
	"github.com/rastromax/rastromax-backend/internal/telemetry"
	"github.com/rastromax/rastromax-backend/internal/tickets"
	"github.com/rastromax/rastromax-backend/internal/trackers"
	"github.com/rastromax/rastromax-backend/internal/users"
	"github.com/rastromax/rastromax-backend/internal/vehicles"
	"github.com/rastromax/rastromax-backend/pkg/auth/session"
	"github.com/rastromax/rastromax-backend/pkg/config"
	"github.com/rastromax/rastromax-backend/pkg/db"
	"github.com/rastromax/rastromax-backend/pkg/logger"
	"github.com/rastromax/rastromax-backend/pkg/metrics"
	"github.com/rastromax/rastromax-backend/pkg/migrate"
	"github.com/rastromax/rastromax-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	mirrorMetrics := metrics.NewMirrorMetrics(registry)
	pollMetrics := metrics.NewPollMetrics(registry)

	var mirrorWriter *mirror.Writer
	if cfg.Mirror.Enabled {
		mirrorWriter = mirror.NewWriter(redisClient, logg, mirrorMetrics)
	}

	emailSender, err := notify.NewEmailSender(cfg.Mail, logg)
	if err != nil {
		logg.Error(ctx, "failed to create email sender", err)
		os.Exit(1)
	}
	smsSender, err := notify.NewSMSSender(cfg.SMS, logg)
	if err != nil {
		logg.Error(ctx, "failed to create sms sender", err)
		os.Exit(1)
	}

	snapshotCache := telemetry.NewCache()

	usersRepo := users.NewRepository(dbClient.DB())
	vehiclesRepo := vehicles.NewRepository(dbClient.DB())
	trackersRepo := trackers.NewRepository(dbClient.DB())
	ticketsRepo := tickets.NewRepository(dbClient.DB())

	var sessionPollers *telemetry.SessionPollers
	if cfg.Telemetry.GatewayURL != "" {
		poller, err := telemetry.NewPoller(telemetry.PollerParams{
			Cache:    snapshotCache,
			Gateway:  telemetry.NewHTTPGateway(cfg.Telemetry.GatewayURL, cfg.Telemetry.FetchTimeout),
			Trackers: trackersRepo,
			Interval: cfg.Telemetry.PollInterval,
			Logger:   logg,
			Metrics:  pollMetrics,
		})
		if err != nil {
			logg.Error(ctx, "failed to create telemetry poller", err)
			os.Exit(1)
		}
		sessionPollers = telemetry.NewSessionPollers(poller, cfg.JWT.SessionTTL())
		defer sessionPollers.StopAll()
	}

	authService, err := authsvc.NewService(authsvc.ServiceParams{
		Repo:      usersRepo,
		Sessions:  sessionManager,
		Mailer:    emailSender,
		Telemetry: sessionPollers,
		JWT:       cfg.JWT,
		Password:  cfg.Password,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.ServiceParams{
		Repo:     usersRepo,
		Mirror:   mirrorWriter,
		Mailer:   emailSender,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	vehiclesService, err := vehicles.NewService(vehiclesRepo)
	if err != nil {
		logg.Error(ctx, "failed to create vehicles service", err)
		os.Exit(1)
	}

	trackersService, err := trackers.NewService(trackers.ServiceParams{
		Repo:      trackersRepo,
		SMS:       smsSender,
		Snapshots: snapshotCache,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create trackers service", err)
		os.Exit(1)
	}

	ticketsService, err := tickets.NewService(tickets.ServiceParams{
		Repo:   ticketsRepo,
		Mirror: mirrorWriter,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create tickets service", err)
		os.Exit(1)
	}

	telemetryService, err := telemetry.NewService(telemetry.ServiceParams{
		Cache:    snapshotCache,
		Trackers: trackersRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create telemetry service", err)
		os.Exit(1)
	}

	if cfg.Ingest.Enabled {
		listener, err := telemetry.NewListener(cfg.Ingest.ListenAddr, snapshotCache, logg)
		if err != nil {
			logg.Error(ctx, "failed to create ingest listener", err)
			os.Exit(1)
		}
		go func() {
			if err := listener.Serve(ctx); err != nil {
				logg.Error(ctx, "telemetry ingest stopped unexpectedly", err)
			}
		}()
	}

	handler := routes.NewRouter(routes.Deps{
		Config:    cfg,
		Logger:    logg,
		DB:        dbClient,
		Redis:     redisClient,
		Sessions:  sessionManager,
		Directory: usersRepo,
		Registry:  registry,

		Auth:      authService,
		Users:     usersService,
		Vehicles:  vehiclesService,
		Trackers:  trackersService,
		Tickets:   ticketsService,
		Telemetry: telemetryService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	logCtx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(logCtx, "api server stopped")
}
