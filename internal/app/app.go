package app

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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-auth-service/internal/config"
	"go-auth-service/internal/database"
	"go-auth-service/internal/event"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/repository"
	"go-auth-service/internal/router"
	"go-auth-service/internal/service"
	"go-auth-service/internal/validator"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	ctx := context.Background()

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, database.PoolOptions{
		MaxConns:          cfg.DBMaxConns,
		MinConns:          cfg.DBMinConns,
		MaxConnLifetime:   cfg.DBMaxConnLifetime,
		MaxConnIdleTime:   cfg.DBMaxConnIdleTime,
		HealthCheckPeriod: cfg.DBHealthCheckPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	slog.Info("database ready")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)
	appMetrics.RegisterPool(pool)

	codec, err := service.NewTokenCodec(cfg.JWTSecret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	bus := event.NewBus()
	hasher := service.NewPasswordHasher(cfg.BcryptCost)
	refresher := service.NewTokenRefresher(codec, tokenRepo, cfg.TokenTTL)
	verifier := service.NewTokenVerifier(codec, refresher)
	loginService := service.NewLoginService(userRepo, tokenRepo, hasher, codec, verifier, cfg.TokenTTL, bus)
	registrationService := service.NewRegistrationService(userRepo, hasher, validator.New(), bus)
	guard := service.NewAuthorizationGuard(userRepo, tokenRepo, verifier, bus)
	userService := service.NewUserService(userRepo)
	auditService := service.NewAuditService(auditRepo)

	if cfg.BootstrapAdminUsername != "" {
		if _, err := registrationService.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword, cfg.BootstrapAdminFullName); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed admin: %w", err)
		}
	}

	subscribersCtx, cancelSubscribers := context.WithCancel(context.Background())
	auditEvents, unsubscribeAudit := bus.Subscribe()
	metricEvents, unsubscribeMetrics := bus.Subscribe()
	go auditService.Run(subscribersCtx, auditEvents)
	go appMetrics.ConsumeEvents(subscribersCtx, metricEvents)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(guard), router.Handlers{
		Auth:  handler.NewAuthHandler(registrationService, loginService),
		User:  handler.NewUserHandler(userService),
		Audit: handler.NewAuditHandler(auditService),
		Docs:  handler.NewDocsHandler(),
	}, appMetrics, healthHandler(db))

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		cleanupFuncs: []func(){
			func() {
				unsubscribeAudit()
				unsubscribeMetrics()
				cancelSubscribers()
			},
			func() {
				db.Close()
			},
		},
	}, nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case <-stop:
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Drain in-flight requests before the pool and subscribers go away.
	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return runErr
}

func healthHandler(db *database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Health(r.Context(), 2*time.Second); err != nil {
			slog.Warn("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database unavailable"))
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
