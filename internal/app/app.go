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

	"bot-dashboard/internal/config"
	"bot-dashboard/internal/database"
	"bot-dashboard/internal/handler"
	"bot-dashboard/internal/metrics"
	"bot-dashboard/internal/middleware"
	"bot-dashboard/internal/repository"
	"bot-dashboard/internal/router"
	"bot-dashboard/internal/service"
)

const sweepInterval = time.Hour

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	credentialRepo := repository.NewCredentialRepository(pool)
	slog.Info("database ready")

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	sessionService := service.NewSessionService(cfg.JWTSecret, cfg.JWTTTL)
	vaultService := service.NewVaultService(credentialRepo, collector)
	cdnTokenService := service.NewCDNTokenService(cfg.ExternalAPISecret)
	oauthService := service.NewOAuthService(
		cfg.DiscordClientID, cfg.DiscordClientSecret, cfg.DiscordRedirectURI,
		cfg.UpstreamTimeout, collector)
	authService := service.NewAuthService(
		oauthService, sessionService, vaultService, userRepo, cdnTokenService,
		cfg.AdminDiscordIDs, cfg.ExternalAPIBaseURL, collector)
	botService := service.NewBotService(cfg.ExternalAPIBaseURL, cfg.UpstreamTimeout, collector)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService, botService)
	fileHandler := handler.NewFileHandler(authService, botService, 0)

	appRouter := router.New(cfg, authMiddleware, authHandler, fileHandler, collector, registry)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go vaultService.StartSweeper(sweepCtx, sweepInterval)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server: server,
		db:     db,
		cleanupFuncs: []func(){
			sweepCancel,
			db.Close,
		},
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
