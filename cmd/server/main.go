package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"familycart/internal/config"
	"familycart/internal/database"
	"familycart/internal/handlers"
	"familycart/internal/metrics"
	"familycart/internal/repository"
	"familycart/internal/security"
	"familycart/internal/service"
	"familycart/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	log := logger.New(cfg.LogLevel)

	// Initialize database with config (supports postgres, mysql, sqlite)
	db, err := database.InitializeWithConfig(&cfg.StoreConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.WithField("type", cfg.DatabaseType).Info("Database connection established")

	version, err := db.RunMigrations()
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.WithField("version", version).Info("Migrations completed successfully")

	m := metrics.New()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	inviteRepo := repository.NewInvitationRepository(db)
	listRepo := repository.NewListRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, security.NewTokenIssuer(cfg.JWTSecret), log)
	familyService := service.NewFamilyService(familyRepo, userRepo, authService, log)
	invitationService := service.NewInvitationService(inviteRepo, userRepo, familyRepo, authService, m, log, cfg.ClientOrigin)
	listService := service.NewListService(listRepo, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var authLimiter *security.RateLimiter
	if cfg.AuthRateLimit > 0 {
		authLimiter = security.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
		go authLimiter.Run(ctx)
	}

	router := handlers.NewRouter(handlers.RouterConfig{
		AuthService:       authService,
		FamilyService:     familyService,
		InvitationService: invitationService,
		ListService:       listService,
		AuthLimiter:       authLimiter,
		Metrics:           m,
		Logger:            log,
		ClientOrigin:      cfg.ClientOrigin,
		MetricsEnabled:    cfg.MetricsEnabled,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background invite cleanup
	if cfg.InviteCleanupInterval > 0 {
		go invitationService.RunCleanup(ctx, cfg.InviteCleanupInterval)
	}

	go func() {
		log.WithField("addr", server.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
		os.Exit(1)
	}
}
