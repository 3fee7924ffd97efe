package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	pcache "github.com/flywave/go-pcache"
	"github.com/flywave/go-pcache/catalog"
)

func main() {
	cfgPath := flag.String("config", "bake.toml", "bake settings file (.toml, .yaml)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfgPath, log); err != nil {
		log.Error("bake failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string, log *slog.Logger) error {
	cfg, err := pcache.LoadConfig(cfgPath)
	if err != nil {
		return err
	}
	mesh, err := pcache.LoadGltfMesh(cfg.Mesh)
	if err != nil {
		return fmt.Errorf("load mesh %s: %w", cfg.Mesh, err)
	}
	req, err := cfg.Request()
	if err != nil {
		return err
	}
	req.Logger = log
	if cfg.Mask != "" {
		buf, err := os.ReadFile(cfg.Mask)
		if err != nil {
			return err
		}
		mask, err := cfg.NewMask(buf)
		if err != nil {
			return fmt.Errorf("load mask %s: %w", cfg.Mask, err)
		}
		req.Mask = mask
	}
	format, err := cfg.OutputFormat()
	if err != nil {
		return err
	}

	last := time.Now()
	progress := func(processed, target int) bool {
		if time.Since(last) >= time.Second {
			last = time.Now()
			log.Info("sampling", "accepted", processed, "target", target)
		}
		return false
	}

	f, err := pcache.Bake(ctx, mesh, req, progress)
	if err != nil {
		return err
	}
	if err := pcache.FileWriteTo(cfg.Output, f, format); err != nil {
		return fmt.Errorf("write %s: %w", cfg.Output, err)
	}
	log.Info("point cache written", "path", cfg.Output, "points", f.PointCount())

	if cfg.PositionMap != "" {
		if err := writePositionMap(cfg.PositionMap, f, log); err != nil {
			return err
		}
	}
	if cfg.Preview != "" {
		doc, err := pcache.FileToGltf(f, "pointcache")
		if err != nil {
			return err
		}
		buf, err := pcache.GetGltfBinary(doc, 4)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Preview, buf, 0o644); err != nil {
			return err
		}
		log.Info("preview written", "path", cfg.Preview)
	}
	if cfg.Catalog != "" {
		cat, err := catalog.Open(ctx, cfg.Catalog)
		if err != nil {
			return err
		}
		defer cat.Close()
		rec, err := catalog.RecordFromFile(f, cfg.Output)
		if err != nil {
			return err
		}
		if err := cat.Put(ctx, rec); err != nil {
			return err
		}
		log.Debug("catalog updated", "id", rec.ID)
	}
	return nil
}

func writePositionMap(path string, f *pcache.File, log *slog.Logger) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	box, err := f.WritePositionMap(out)
	if err != nil {
		return err
	}
	log.Info("position map written", "path", path, "min", box.Min, "max", box.Max)
	return nil
}
