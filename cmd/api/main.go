package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"vivwendy/internal/config"
	"vivwendy/internal/database"
	"vivwendy/internal/logger"
	"vivwendy/internal/server"
)

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
	if err := database.Migrate(db, server.Models()...); err != nil {
		lg.Fatal("migration failed", zap.Error(err))
	}
	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		lg.Fatal("upload dir", zap.Error(err))
	}

	srv, err := server.New(cfg, db, lg)
	if err != nil {
		lg.Fatal("server init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Admin.Username != "" && cfg.Admin.Password != "" {
		if _, err := srv.Accounts.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			lg.Fatal("bootstrap admin failed", zap.Error(err))
		}
	}

	if err := srv.Run(ctx); err != nil {
		lg.Fatal("http server stopped", zap.Error(err))
	}
	lg.Info("bye")
}
