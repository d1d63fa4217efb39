package montecarlo

import (
	"context"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

// chunkSize fixes how scenarios are split into independently seeded streams.
// Results depend on it, so it is not derived from the worker count.
const chunkSize = 1 << 14

// chunkSource derives the stream for one chunk from the run seed
func chunkSource(seed uint64, chunk int) *rand.Rand {
	return rand.New(rand.NewSource(seed ^ (uint64(chunk+1) * 0x9E3779B97F4A7C15)))
}

// runChunks evaluates fn over ⌈total/chunkSize⌉ chunks on at most workers
// goroutines. Outputs are returned in chunk order so reductions over them are
// bit-identical whatever the scheduling.
func runChunks[A any](ctx context.Context, total int, seed uint64, workers int,
	fn func(chunk, offset, size int, rng *rand.Rand) (A, error)) ([]A, error) {

	n := (total + chunkSize - 1) / chunkSize
	out := make([]A, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		offset := i * chunkSize
		size := min(chunkSize, total-offset)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := fn(i, offset, size, chunkSource(seed, i))
			if err != nil {
				return err
			}
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
