package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/flywave/go-pcache/catalog"
	"github.com/flywave/go-pcache/internal/service"
)

// ============================================================
// Bake Service
// ============================================================

func main() {
	port := flag.String("port", getenv("PORT", "3003"), "listen port")
	dbPath := flag.String("catalog", getenv("PCACHE_DB_PATH", ""), "sqlite catalog path, empty disables the catalog")
	maxPoints := flag.Int("max-points", 1<<20, "largest point count per request")
	workers := flag.Int("workers", 0, "default sampling workers")
	timeout := flag.Duration("timeout", time.Minute, "per bake time limit")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	cfg := service.Config{
		MaxPoints:   *maxPoints,
		BakeTimeout: *timeout,
		Workers:     *workers,
		Logger:      log,
	}
	if *dbPath != "" {
		cat, err := catalog.Open(context.Background(), *dbPath)
		if err != nil {
			log.Error("open catalog", "path", *dbPath, "error", err)
			os.Exit(1)
		}
		defer cat.Close()
		cfg.Catalog = cat
	}

	app := service.NewApp(service.New(cfg))

	addr := fmt.Sprintf(":%s", *port)
	log.Info("starting bake service", "addr", addr, "catalog", *dbPath != "")
	if err := app.Listen(addr); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
