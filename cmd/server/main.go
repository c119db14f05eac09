package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chiayu-lin/camgrid/internal/api"
	"github.com/chiayu-lin/camgrid/internal/app"
	"github.com/chiayu-lin/camgrid/internal/app/maintenance"
	"github.com/chiayu-lin/camgrid/internal/database"
	"github.com/chiayu-lin/camgrid/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "camgrid: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return err
	}
	defer logger.Sync()
	log := logger.WithModule("server")

	if cfg.Server.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DatabaseClientConfig())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := database.AutoMigrateAndSeed(db); err != nil {
		return err
	}

	var sweeper *maintenance.Sweeper
	if cfg.Maintenance.ExpirySweep.Enabled {
		sweeper = maintenance.NewSweeper(db,
			maintenance.WithSchedule(cfg.Maintenance.ExpirySweep.Schedule),
		)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("start expiry sweeper: %w", err)
		}
		log.Info("expiry sweeper started", zap.String("schedule", cfg.Maintenance.ExpirySweep.Schedule))
	}

	router, err := api.NewRouter(db, cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Info("stopped")
	return nil
}
