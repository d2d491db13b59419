package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/bootstrap"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	flag.Parse()
	command := flag.Arg(0)
	if command == "" {
		command = "up"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := bootstrap.NewLogger(cfg.Log.Environment)
	defer logger.Sync()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := bootstrap.NewMigrator(pool, cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("init migrator", zap.Error(err))
	}
	defer migrator.Close()

	switch command {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		err = migrator.Down(ctx)
	case "version":
		var version int64
		version, err = migrator.Version(ctx)
		if err == nil {
			logger.Info("database version", zap.Int64("version", version))
		}
	default:
		logger.Fatal("unknown command, expected up, down or version", zap.String("command", command))
	}
	if err != nil {
		logger.Fatal("migrate", zap.String("command", command), zap.Error(err))
	}
}
