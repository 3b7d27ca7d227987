package core

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/valter-silva-au/schedy/pkg/models"
)

// RunBatch processes requests on at most workers goroutines and returns
// the results in input order. A non-positive workers uses GOMAXPROCS.
// The first error cancels the remaining work.
func RunBatch(ctx context.Context, p Processor, reqs []Request, workers int) ([]models.Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]models.Result, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := p.Process(gctx, req)
			if err != nil {
				return fmt.Errorf("processing utterance %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
