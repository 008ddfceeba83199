package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Ibraz94/fleetbold-expenses/internal/api"
	"github.com/Ibraz94/fleetbold-expenses/internal/api/handlers"
	"github.com/Ibraz94/fleetbold-expenses/internal/recognition"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"
	"github.com/Ibraz94/fleetbold-expenses/internal/service"
	"github.com/Ibraz94/fleetbold-expenses/internal/storage"
	"github.com/Ibraz94/fleetbold-expenses/pkg/auth"
	"github.com/Ibraz94/fleetbold-expenses/pkg/config"
	"github.com/Ibraz94/fleetbold-expenses/pkg/logger"
	"github.com/Ibraz94/fleetbold-expenses/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting FleetBold expenses service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	expenseRepo := repository.NewExpenseRepository(db, appLogger)
	reservationRepo := repository.NewReservationRepository(db, appLogger)
	auditRepo := repository.NewAuditRepository(db, appLogger)

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey)

	// Initialize recognition backend
	var recognizer recognition.Recognizer
	switch recognition.Backend(cfg.Recognition.Backend) {
	case recognition.BackendGigaChat:
		gc, err := recognition.NewGigaChatRecognizer(ctx, &cfg.Recognition, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to initialize recognition backend", zap.Error(err))
		}
		defer gc.Close()
		recognizer = gc
	case recognition.BackendLocal:
		recognizer = recognition.NewLocalRecognizer(appLogger)
	default:
		appLogger.Fatal("Unknown recognition backend", zap.String("backend", cfg.Recognition.Backend))
	}

	// Initialize receipt storage
	store, err := storage.NewReceiptStore(cfg.Upload.Dir, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize receipt storage", zap.Error(err))
	}

	// Initialize services
	auditService := service.NewAuditService(auditRepo, expenseRepo, appLogger)
	candidateService := service.NewCandidateService(expenseRepo, appLogger)
	intakeService := service.NewIntakeService(recognizer, store, cfg.Recognition.Timeout, appLogger)
	matcherService := service.NewMatcherService(reservationRepo, appLogger)
	lifecycleService := service.NewLifecycleService(expenseRepo, reservationRepo, auditService, appLogger)
	exportService := service.NewExportService(expenseRepo, appLogger)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(intakeService, candidateService, appLogger)
	expenseHandler := handlers.NewExpenseHandler(lifecycleService, candidateService, matcherService, auditService, exportService, store, appLogger)
	reservationHandler := handlers.NewReservationHandler(matcherService, appLogger)

	// Setup router
	app := api.SetupRouter(uploadHandler, expenseHandler, reservationHandler, store, jwtManager, appLogger)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
