package sim

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BuildFunc constructs the i-th independent simulator of a sweep.
type BuildFunc func(i int) (*Simulator, error)

// Sweep runs n independent simulators concurrently, at most workers at a
// time (unbounded when workers <= 0). Each simulator owns its system, so no
// state is shared. Results keep index order; the first error cancels the rest.
func Sweep(ctx context.Context, n int, build BuildFunc, cfg Config, workers int) ([]*Result, error) {
	results := make([]*Result, n)

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}

	for i := 0; i < n; i++ {
		g.Go(func() error {
			s, err := build(i)
			if err != nil {
				return err
			}
			r, err := s.Run(ctx, cfg)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
