package main

import (
	"context"
	"flag"
	"log"

	"go.uber.org/zap"

	"vivwendy/internal/config"
	"vivwendy/internal/database"
	"vivwendy/internal/domain/account"
	"vivwendy/internal/logger"
	"vivwendy/internal/server"
)

// seed creates the tables and the bootstrap administrator. It is safe to
// run repeatedly: an existing admin is promoted and reactivated, not duplicated.
func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if cfg.Admin.Username == "" || cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		lg.Fatal("ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}

	lg.Info("running AutoMigrate")
	if err := database.Migrate(db, server.Models()...); err != nil {
		lg.Fatal("migration failed", zap.Error(err))
	}

	accounts := account.NewService(
		account.NewRepository(db),
		account.NewBcryptHasher(),
		nil,
		lg.Named("account"),
		account.Options{
			MaxLoginAttempts:  cfg.Auth.MaxLoginAttempts,
			MinPasswordLength: cfg.Auth.MinPasswordLength,
		},
	)

	admin, err := accounts.EnsureAdmin(context.Background(), cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password)
	if err != nil {
		lg.Fatal("seed admin failed", zap.Error(err))
	}
	lg.Info("admin ready", zap.Int64("user_id", admin.ID), zap.String("username", admin.Username))
}
