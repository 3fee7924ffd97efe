package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"time"

	pcache "github.com/flywave/go-pcache"
	"github.com/flywave/go-pcache/catalog"

	"github.com/gofiber/fiber/v3"
)

// ============================================================
// Bake Handlers
// ============================================================

type Config struct {
	// MaxPoints caps the point count a single request may ask for.
	MaxPoints   int
	BakeTimeout time.Duration
	Workers     int
	Catalog     *catalog.Catalog
	Logger      *slog.Logger
}

type Handler struct {
	cfg Config
	log *slog.Logger
}

func New(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = 1 << 20
	}
	if cfg.BakeTimeout <= 0 {
		cfg.BakeTimeout = time.Minute
	}
	return &Handler{cfg: cfg, log: log.With("component", "bake")}
}

// Bake samples the uploaded mesh and answers with the encoded point cache.
//
// multipart fields: mesh (glb/gltf, required), mask (image, optional),
// settings (BakeSettings JSON, optional).
func (h *Handler) Bake(c fiber.Ctx) error {
	meshFile, err := c.FormFile("mesh")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "mesh required in multipart/form-data",
		})
	}
	data, err := readFormFile(meshFile)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to read mesh",
		})
	}

	settings := pcache.DefaultBakeSettings()
	if raw := c.FormValue("settings"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &settings); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("invalid settings: %v", err),
			})
		}
	}
	if settings.PointCount > h.cfg.MaxPoints {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("point_count %d exceeds limit %d", settings.PointCount, h.cfg.MaxPoints),
		})
	}
	if settings.Workers == 0 {
		settings.Workers = h.cfg.Workers
	}

	req, err := settings.Request()
	if err != nil {
		return h.fail(c, err)
	}
	format, err := settings.OutputFormat()
	if err != nil {
		return h.fail(c, err)
	}
	req.Logger = h.log

	if maskFile, err := c.FormFile("mask"); err == nil {
		buf, err := readFormFile(maskFile)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read mask",
			})
		}
		mask, err := settings.NewMask(buf)
		if err != nil {
			return h.fail(c, err)
		}
		req.Mask = mask
	}

	mesh, err := pcache.DecodeGltfMesh(bytes.NewReader(data))
	if err != nil {
		return h.fail(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Context(), h.cfg.BakeTimeout)
	defer cancel()

	start := time.Now()
	f, err := pcache.Bake(ctx, mesh, req, nil)
	if err != nil {
		return h.fail(c, err)
	}
	out, err := f.Bytes(format)
	if err != nil {
		return h.fail(c, err)
	}

	id, _ := f.Metadata.String("bake_id")
	h.log.Info("bake served", "id", id, "points", f.PointCount(), "bytes", len(out), "elapsed", time.Since(start))

	if h.cfg.Catalog != nil {
		rec, err := catalog.RecordFromFile(f, meshFile.Filename)
		if err == nil {
			err = h.cfg.Catalog.Put(ctx, rec)
		}
		if err != nil {
			h.log.Warn("catalog record failed", "id", id, "error", err)
		}
	}

	c.Set("Content-Type", fiber.MIMEOctetStream)
	c.Set("X-Bake-Id", id)
	return c.Send(out)
}

// ListBakes returns the most recent catalog records.
func (h *Handler) ListBakes(c fiber.Ctx) error {
	if h.cfg.Catalog == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "catalog disabled"})
	}
	recs, err := h.cfg.Catalog.List(c.Context(), 100)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(recs)
}

func (h *Handler) GetBake(c fiber.Ctx) error {
	if h.cfg.Catalog == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "catalog disabled"})
	}
	rec, err := h.cfg.Catalog.Get(c.Context(), c.Params("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rec)
}

func (h *Handler) fail(c fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.log.Error("bake failed", "error", err)
	} else {
		h.log.Debug("bake rejected", "status", status, "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pcache.ErrConfiguration),
		errors.Is(err, pcache.ErrInvalidMesh),
		errors.Is(err, pcache.ErrCorruptCache):
		return fiber.StatusBadRequest
	case errors.Is(err, pcache.ErrSamplingTimeout):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, pcache.ErrCancelled):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
