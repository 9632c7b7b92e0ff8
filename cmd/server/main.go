package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/KevinKickass/OpenMachineAIO/internal/config"
	"github.com/KevinKickass/OpenMachineAIO/internal/system"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully", zap.String("path", *configPath))

	if !cfg.Auth.IsProductionReady() {
		logger.Warn("JWT secret not set, using development secret",
			zap.String("env", cfg.Auth.JWTSecretEnv))
	}

	bus, err := system.NewBoardBus(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open board bus", zap.Error(err))
	}

	lifecycle := system.NewLifecycleManager(cfg, bus, logger)

	if err := lifecycle.Start(context.Background()); err != nil {
		_ = lifecycle.Shutdown(context.Background())
		logger.Fatal("Failed to start system", zap.Error(err))
	}

	logger.Info("OpenMachineAIO started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := lifecycle.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("OpenMachineAIO stopped successfully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
