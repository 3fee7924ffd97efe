package pcache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cogentcore.org/core/base/randx"
	"golang.org/x/sync/errgroup"
)

// ParallelCollector splits a random bake across worker goroutines. Each
// worker owns its own picker seeded from a sequence derived from Seed, so the
// merged result only depends on Seed and Workers. Results are concatenated in
// worker order.
type ParallelCollector struct {
	Cache        *MeshDataCache
	Distribution Distribution
	Mode         BakeMode
	Seed         int64
	Workers      int
	Mask         MaskEvaluator
	Policy       UnmaskedPolicy
	Progress     ProgressFunc
	Logger       *slog.Logger
}

// DeriveSeeds returns n worker seeds drawn from a generator seeded with seed.
func DeriveSeeds(seed int64, n int) []int64 {
	rnd := randx.NewSysRand(seed)
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = rnd.Int63()
	}
	return seeds
}

func splitCount(target, workers int) []int {
	counts := make([]int, workers)
	for i := range counts {
		counts[i] = target / workers
		if i < target%workers {
			counts[i]++
		}
	}
	return counts
}

func (p *ParallelCollector) Collect(ctx context.Context, target int) ([]SampledVertex, error) {
	if target <= 0 {
		return nil, fmt.Errorf("%w: point count must be positive, got %d", ErrConfiguration, target)
	}
	workers := p.Workers
	if workers > target {
		workers = target
	}
	if workers < 1 {
		workers = 1
	}
	if p.Distribution == DISTRIBUTION_SEQUENTIAL {
		// sequential pickers share one cursor
		workers = 1
	}

	seeds := []int64{p.Seed}
	if workers > 1 {
		seeds = DeriveSeeds(p.Seed, workers)
	}
	counts := splitCount(target, workers)
	results := make([][]SampledVertex, workers)
	progress := newSharedProgress(p.Progress, workers, target)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		picker, err := NewPicker(p.Cache, p.Distribution, p.Mode, seeds[w])
		if err != nil {
			return nil, err
		}
		col := &Collector{
			Picker:   picker,
			Mask:     p.Mask,
			Policy:   p.Policy,
			Progress: progress.forWorker(w),
			Logger:   p.Logger,
		}
		g.Go(func() error {
			out, err := col.Collect(gctx, counts[w])
			if err != nil {
				return err
			}
			results[w] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]SampledVertex, 0, target)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// sharedProgress folds per-worker progress into one (processed, target)
// stream and serializes calls to the sink.
type sharedProgress struct {
	mu        sync.Mutex
	sink      ProgressFunc
	processed []int
	target    int
	cancel    bool
}

func newSharedProgress(sink ProgressFunc, workers, target int) *sharedProgress {
	return &sharedProgress{sink: sink, processed: make([]int, workers), target: target}
}

func (s *sharedProgress) forWorker(w int) ProgressFunc {
	if s.sink == nil {
		return nil
	}
	return func(processed, _ int) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.cancel {
			return true
		}
		s.processed[w] = processed
		total := 0
		for _, n := range s.processed {
			total += n
		}
		s.cancel = s.sink(total, s.target)
		return s.cancel
	}
}
