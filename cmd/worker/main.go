package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/discope/config"
	"github.com/Domenick1991/discope/internal/bootstrap"
	"github.com/Domenick1991/discope/internal/kafka"
	"github.com/Domenick1991/discope/internal/tasks"
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

	if app.Cache == nil || app.Producer == nil {
		logger.Fatal("worker needs redis and kafka")
	}

	runner := tasks.NewRunner(app.Cache, app.Producer, cfg.Kafka.TasksTopic, cfg.Worker.TaskPoll(), logger.Named("tasks"))
	runner.Register(kafka.TaskAssignUnits, tasks.AssignUnits(app.Bookings))

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.TasksTopic, logger.Named("consumer"))
	defer consumer.Close()

	logger.Info("worker started", zap.String("topic", cfg.Kafka.TasksTopic))
	if err := consumer.Consume(ctx, runner.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", zap.Error(err))
		return
	}
	logger.Info("worker stopped")
}
