package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"rack-service/internal/config"
	"rack-service/internal/database"
	"rack-service/internal/models"
	"rack-service/internal/repositories/postgres"

	"github.com/golang-jwt/jwt/v5"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting database seeding...")

	// Connect to database
	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	slog.Info("Database connection established")

	ctx := context.Background()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	rackRepo := postgres.NewRackRepository(db)
	readingRepo := postgres.NewReadingRepository(db)

	// Seed users
	slog.Info("Creating initial users...")
	seedUsers := []struct {
		subject string
		email   string
		name    string
	}{
		{"dev|alice", "alice@racks.dev", "Alice"},
		{"dev|bob", "bob@racks.dev", "Bob"},
	}

	owners := make(map[string]uint, len(seedUsers))
	for _, u := range seedUsers {
		existing, err := userRepo.FindByExternalID(ctx, u.subject)
		if err != nil {
			log.Fatal("Failed to look up user:", err)
		}
		if existing != nil {
			owners[u.subject] = existing.ID
			slog.Info("User already exists", "subject", u.subject, "id", existing.ID)
			continue
		}

		user := &models.User{ExternalAuthID: u.subject, Email: u.email, DisplayName: u.name}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatal("Failed to create user:", err)
		}
		owners[u.subject] = user.ID
		slog.Info("Created user", "subject", u.subject, "id", user.ID)
	}

	// Seed racks with one reading each
	slog.Info("Creating initial racks...")
	racks := []struct {
		id    string
		name  string
		owner string
	}{
		{"AA:BB:CC:DD:EE:01", "Kitchen herbs", "dev|alice"},
		{"AA:BB:CC:DD:EE:02", "Balcony greens", "dev|alice"},
		{"AA:BB:CC:DD:EE:03", "Office basil", "dev|bob"},
	}

	now := time.Now().UTC()
	for i, r := range racks {
		rack := &models.Rack{ID: r.id, Name: r.name, OwnerID: owners[r.owner], Status: models.RackStatusUnknown}
		if err := rackRepo.Upsert(ctx, rack); err != nil {
			log.Fatal("Failed to upsert rack:", err)
		}

		temp, humidity, water := 22.0+float64(i), 55.0, 80.0
		reading := &models.SensorReading{
			RackID:      r.id,
			Temperature: &temp,
			Humidity:    &humidity,
			WaterLevel:  &water,
			RecordedAt:  now,
		}
		if err := readingRepo.Create(ctx, reading); err != nil {
			slog.Warn("Failed to create sample reading", "rackID", r.id, "error", err)
		}
		slog.Info("Seeded rack", "rackID", r.id, "ownerID", rack.OwnerID)
	}

	// Development tokens for the seeded users
	for _, u := range seedUsers {
		claims := jwt.MapClaims{
			"sub": u.subject,
			"iat": now.Unix(),
			"exp": now.Add(24 * time.Hour).Unix(),
		}
		if cfg.Identity.Issuer != "" {
			claims["iss"] = cfg.Identity.Issuer
		}
		if cfg.Identity.Audience != "" {
			claims["aud"] = cfg.Identity.Audience
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Identity.Secret))
		if err != nil {
			log.Fatal("Failed to sign development token:", err)
		}
		fmt.Printf("%s: %s\n", u.subject, token)
	}

	slog.Info("Database seeding completed successfully!")
}
