// Package main is the entry point for the Ordo API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zapponejosh/ordo-api/internal/api"
	"github.com/zapponejosh/ordo-api/internal/config"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
	"github.com/zapponejosh/ordo-api/internal/logger"
	"github.com/zapponejosh/ordo-api/internal/source"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.Setup(cfg)

	log.Info("starting ordo API",
		slog.Int("port", cfg.Port),
		slog.String("data_source", cfg.DataSource),
		slog.String("default_rite", cfg.DefaultRite),
		slog.String("advent_rule", cfg.AdventRule),
		slog.String("log_level", cfg.LogLevel),
	)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, db, err := source.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	engine := liturgy.NewEngine(fetcher, liturgy.Options{
		Boundaries:  cfg.Boundaries(),
		DefaultRite: cfg.Rite(),
		Logger:      log,
	})

	// Warm up so the first request does not pay for the load. A failure
	// here is not fatal: the next request retries.
	warmCtx, cancel := context.WithTimeout(ctx, 2*cfg.FetchTimeout)
	if _, err := engine.Load(warmCtx); err != nil {
		log.Warn("calendar data not loaded at startup", slog.Any("error", err))
	}
	cancel()

	handlers := api.NewHandlers(engine, db, cfg, log)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.SetupRoutes(handlers, cfg, log),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("ordo API ready", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
