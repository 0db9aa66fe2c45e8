// Command storekeeper is an inventory and point-of-sale manager for the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abgdnv/storekeeper/internal/config"
	"github.com/abgdnv/storekeeper/internal/console"
	"github.com/abgdnv/storekeeper/internal/export"
	"github.com/abgdnv/storekeeper/internal/inventory/service"
	"github.com/abgdnv/storekeeper/internal/inventory/store"
	"github.com/abgdnv/storekeeper/internal/platform/calendar"
	"github.com/abgdnv/storekeeper/internal/platform/logger"
	"github.com/asaskevich/EventBus"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
}

// run wires the store, the service and the console, then serves the console until it exits.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, logCloser := logger.New(cfg.Log)
	defer func() {
		if err := logCloser.Close(); err != nil {
			log.Printf("failed to close log file: %v", err)
		}
	}()
	slog.SetDefault(appLogger)
	appLogger.Info("storekeeper starting", slog.String("config", cfg.String()))

	repo, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error("failed to close store", slog.Any("error", err))
		}
	}()
	appLogger.Info("store opened", slog.String("driver", cfg.Database.Driver))

	cal, err := calendar.New(cfg.Inventory.Calendar, nil)
	if err != nil {
		return err
	}
	bus := EventBus.New()
	svc, err := service.New(ctx, repo,
		service.WithCalendar(cal),
		service.WithPublisher(bus),
		service.WithLogger(appLogger))
	if err != nil {
		return fmt.Errorf("failed to start inventory service: %w", err)
	}

	repl, err := console.New(svc, export.New(cfg.Export.Dir, appLogger), bus, os.Stdin, os.Stdout, console.Options{
		Currency:          cfg.Inventory.Currency,
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		Logger:            appLogger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// leaving the console ends the application
		defer cancel()
		return repl.Run(gCtx)
	})
	g.Go(func() error {
		<-gCtx.Done()
		appLogger.Info("storekeeper shutting down")
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}
