package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Ibraz94/fleetbold-expenses/internal/models"
	"github.com/Ibraz94/fleetbold-expenses/internal/repository"
	"github.com/Ibraz94/fleetbold-expenses/pkg/config"
	"github.com/Ibraz94/fleetbold-expenses/pkg/logger"
	"github.com/Ibraz94/fleetbold-expenses/pkg/postgres"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// seedEntry is one reservation row in the seed file. Dates are YYYY-MM-DD.
type seedEntry struct {
	ReservationNumber string `json:"reservation_number"`
	VehicleName       string `json:"vehicle_name"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date"`
	GuestName         string `json:"guest_name"`
	InvoiceStatus     string `json:"invoice_status"`
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	// Connect to database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	reservationRepo := repository.NewReservationRepository(db, appLogger)

	appLogger.Info("Starting reservation seeding...")

	entries, source, err := loadEntries()
	if err != nil {
		appLogger.Fatal("Failed to load seed entries", zap.Error(err))
	}
	appLogger.Info("Loaded seed entries", zap.String("source", source), zap.Int("count", len(entries)))

	seeded := 0
	for _, entry := range entries {
		res, err := entry.toReservation()
		if err != nil {
			appLogger.Warn("Skipping invalid entry", zap.String("number", entry.ReservationNumber), zap.Error(err))
			continue
		}
		if err := reservationRepo.Upsert(ctx, res); err != nil {
			appLogger.Fatal("Failed to upsert reservation", zap.String("number", res.ReservationNumber), zap.Error(err))
		}
		seeded++
	}

	appLogger.Info("Reservation seeding completed", zap.Int("seeded", seeded))
}

// loadEntries reads the seed file given as the first argument. An explicit
// path must exist; only the default path falls back to the built-in sample
// fleet when absent.
func loadEntries() ([]seedEntry, string, error) {
	path := "cmd/seed/reservations.json"
	explicit := len(os.Args) > 1
	if explicit {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		return sampleFleet(), "builtin", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", path, err)
	}
	return entries, path, nil
}

func (e seedEntry) toReservation() (*models.Reservation, error) {
	start, err := time.Parse(time.DateOnly, e.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(time.DateOnly, e.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}
	if e.ReservationNumber == "" {
		return nil, fmt.Errorf("reservation_number is required")
	}

	status := e.InvoiceStatus
	if status == "" {
		status = "open"
	}
	return &models.Reservation{
		ID:                uuid.New(),
		ReservationNumber: e.ReservationNumber,
		VehicleName:       e.VehicleName,
		StartDate:         start,
		EndDate:           end,
		GuestName:         e.GuestName,
		InvoiceStatus:     status,
	}, nil
}

func sampleFleet() []seedEntry {
	return []seedEntry{
		{ReservationNumber: "RSV-1001", VehicleName: "Tesla Model 3", StartDate: "2026-08-10", EndDate: "2026-08-14", GuestName: "Dana Whitfield", InvoiceStatus: "open"},
		{ReservationNumber: "RSV-1002", VehicleName: "Ford Transit", StartDate: "2026-08-11", EndDate: "2026-08-13", GuestName: "Marcus Lee", InvoiceStatus: "open"},
		{ReservationNumber: "RSV-1003", VehicleName: "Jeep Wrangler", StartDate: "2026-08-15", EndDate: "2026-08-20", GuestName: "Priya Natarajan", InvoiceStatus: "invoiced"},
		{ReservationNumber: "RSV-1004", VehicleName: "Toyota Camry", StartDate: "2026-08-18", EndDate: "2026-08-19", GuestName: "Jordan Baker", InvoiceStatus: "open"},
		{ReservationNumber: "RSV-1005", VehicleName: "Tesla Model Y", StartDate: "2026-08-22", EndDate: "2026-08-28", GuestName: "Elena Petrova", InvoiceStatus: "open"},
	}
}
