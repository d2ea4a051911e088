package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"vivwendy/internal/config"
	"vivwendy/internal/database"
	"vivwendy/internal/domain/account"
	"vivwendy/internal/logger"
)

// auth_cleanup disarms password reset grants that were never consumed.
// Meant to run from cron.
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

	db, err := database.Connect(cfg.Database.URL)
	if err != nil {
		lg.Fatal("db connect failed", zap.Error(err))
	}

	cutoff := time.Now().Add(-cfg.Auth.ResetGrantTTL)
	n, err := account.NewRepository(db).ExpireResetGrants(context.Background(), cutoff)
	if err != nil {
		lg.Fatal("expire reset grants failed", zap.Error(err))
	}

	lg.Info("auth cleanup completed", zap.Int64("reset_grants_expired", n), zap.Time("cutoff", cutoff))
}
