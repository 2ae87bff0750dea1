// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mulewatch/mulewatch/internal/analysis"
	"github.com/mulewatch/mulewatch/internal/api"
	"github.com/mulewatch/mulewatch/internal/cache"
	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/overlay"
	"github.com/mulewatch/mulewatch/internal/repository"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	logLevel := slog.LevelInfo
	if os.Getenv("MULEWATCH_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting mulewatch",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	cfg := domain.DefaultConfig()
	if os.Getenv("MULEWATCH_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	if path := os.Getenv("MULEWATCH_CONFIG_FILE"); path != "" {
		loaded, err := domain.LoadConfigFile(path, cfg)
		if err != nil {
			slog.Error("failed to load config file", "path", path, "error", err)
			os.Exit(1)
		}
		cfg = loaded
		slog.Info("configuration file applied", "path", path)
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"max_cycle_length", cfg.Detection.MaxCycleLength,
		"smurf_threshold", cfg.Detection.SmurfThreshold,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	overlayEngine, err := loadOverlayEngine()
	if err != nil {
		slog.Error("failed to initialize overlay engine", "error", err)
		os.Exit(1)
	}

	runner := analysis.NewRunner(cfg.Detection, overlayEngine)

	srv := api.NewServer(cfg.Server, repo, cacheImpl, runner, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("mulewatch is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("mulewatch shutdown complete")
}

// loadOverlayEngine always builds an Engine so the API surface can
// accept supplementary rules later; MULEWATCH_OVERLAY_RULES optionally
// seeds it at startup from a JSON file of [{"id":..., "expression":...}].
func loadOverlayEngine() (*overlay.Engine, error) {
	engine, err := overlay.NewEngine(8)
	if err != nil {
		return nil, fmt.Errorf("create overlay engine: %w", err)
	}

	path := os.Getenv("MULEWATCH_OVERLAY_RULES")
	if path == "" {
		return engine, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay rules file: %w", err)
	}

	var rules []overlay.Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse overlay rules file: %w", err)
	}

	if err := engine.LoadRules(rules); err != nil {
		return nil, fmt.Errorf("load overlay rules: %w", err)
	}
	slog.Info("overlay rules loaded", "path", path, "count", len(rules))
	return engine, nil
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +--------------------------------------------+")
	fmt.Println("  |               MULEWATCH                     |")
	fmt.Println("  |     Money-Muling Ring Detection Engine      |")
	fmt.Println("  +--------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /analyses               - Submit a transaction batch for analysis")
	fmt.Println("    GET  /analyses/{id}           - Poll analysis status/result")
	fmt.Println("    GET  /analyses/{id}/download  - Download the completed report")
	fmt.Println("    GET  /analyses/{id}/graph     - Fetch the visualization graph")
	fmt.Println("    GET  /analyses/{id}/ws        - Stream analysis progress")
	fmt.Println("    GET  /health                  - Health check")
	fmt.Println()
}
