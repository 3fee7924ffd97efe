package pcache

import (
	"context"
	"fmt"
	"log/slog"
)

// ProgressFunc receives (processed, target) at a fixed cadence and returns
// true to request cancellation.
type ProgressFunc func(processed, target int) bool

// Collector pulls samples from a Picker until the requested count is
// accepted. With a Mask bound, rejected samples do not count and the number
// of draws is capped at target*MAX_ITERATION_FACTOR.
type Collector struct {
	Picker   Picker
	Mask     MaskEvaluator
	Policy   UnmaskedPolicy
	Progress ProgressFunc
	Logger   *slog.Logger
}

func (c *Collector) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Collect returns exactly target accepted samples, ErrSamplingTimeout when
// the masked loop hits its cap, or ErrCancelled when the progress sink or
// ctx asks to stop.
func (c *Collector) Collect(ctx context.Context, target int) ([]SampledVertex, error) {
	if c.Picker == nil {
		return nil, fmt.Errorf("%w: collector has no picker", ErrConfiguration)
	}
	if target <= 0 {
		return nil, fmt.Errorf("%w: point count must be positive, got %d", ErrConfiguration, target)
	}
	if c.Mask == nil {
		return c.collectAll(ctx, target)
	}
	return c.collectMasked(ctx, target)
}

func (c *Collector) collectAll(ctx context.Context, target int) ([]SampledVertex, error) {
	out := make([]SampledVertex, 0, target)
	for i := 0; i < target; i++ {
		if i%PROGRESS_INTERVAL == 0 && c.cancelled(ctx, i, target) {
			return nil, ErrCancelled
		}
		out = append(out, c.Picker.Next())
	}
	return out, nil
}

func (c *Collector) collectMasked(ctx context.Context, target int) ([]SampledVertex, error) {
	out := make([]SampledVertex, 0, target)
	maxIteration := target * MAX_ITERATION_FACTOR
	iteration := 0
	for len(out) < target {
		iteration++
		if iteration > maxIteration {
			c.logger().Warn("mask rejected too many samples",
				"accepted", len(out), "target", target, "iterations", maxIteration)
			return nil, fmt.Errorf("%w: %d of %d accepted after %d draws", ErrSamplingTimeout, len(out), target, maxIteration)
		}
		if iteration%PROGRESS_INTERVAL == 0 && c.cancelled(ctx, len(out), target) {
			return nil, ErrCancelled
		}

		s := c.Picker.Next()
		if c.accepts(&s) {
			out = append(out, s)
		}
	}
	c.logger().Debug("masked collection done", "target", target, "iterations", iteration)
	return out, nil
}

func (c *Collector) accepts(s *SampledVertex) bool {
	if !s.HasUV() {
		return c.Policy == UNMASKED_ACCEPT
	}
	return MaskAccepts(c.Mask.Sample(s.UVs[0]))
}

func (c *Collector) cancelled(ctx context.Context, processed, target int) bool {
	if ctx != nil && ctx.Err() != nil {
		return true
	}
	return c.Progress != nil && c.Progress(processed, target)
}
