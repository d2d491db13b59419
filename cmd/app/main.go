package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/discope/api"
	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/api/planning_api"
	"github.com/Domenick1991/discope/internal/bootstrap"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := bootstrap.NewLogger(cfg.Log.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("init app", zap.Error(err))
	}
	defer app.Close()

	if app.Pool != nil {
		migrator, err := bootstrap.NewMigrator(app.Pool, cfg.Database.MigrationsPath, logger.Named("migrator"))
		if err != nil {
			logger.Fatal("init migrator", zap.Error(err))
		}
		if err := migrator.Up(ctx); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		migrator.Close()
	}

	handlers := bootstrap.Handlers{
		Bookings: api.NewBookingHandler(app.Bookings, logger.Named("api")),
		Centers:  api.NewCenterHandler(app.Catalog),
		Planning: planning_api.NewServer(app.Bookings, logger.Named("planning")),
	}
	if err := bootstrap.Run(ctx, cfg, handlers, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
