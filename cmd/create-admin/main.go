package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/hse-ops/hazard-report-api/internal/models"
	"github.com/hse-ops/hazard-report-api/internal/repository"
	"github.com/hse-ops/hazard-report-api/internal/service"
	"github.com/hse-ops/hazard-report-api/pkg/config"
	"github.com/hse-ops/hazard-report-api/pkg/database"
)

// Provisions a back-office admin account. Intended for operators, not
// exposed through the API.
func main() {
	username := flag.String("username", "admin", "admin login name")
	password := flag.String("password", "", "admin password (required)")
	flag.Parse()

	if *password == "" {
		log.Fatal("password is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close() //nolint:errcheck

	hash, err := service.HashPassword(*password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := repository.NewAdminRepository(db)
	admin := &models.Admin{Username: *username, PasswordHash: hash}
	if err := repo.Create(ctx, admin); err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}
	log.Printf("admin %q created with id %d", admin.Username, admin.ID)
}
