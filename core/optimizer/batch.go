package optimizer

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/cogendispatch/core/model"
)

// BatchResult is the answer to one request of a batch.
type BatchResult struct {
	Report *model.DispatchReport
	Err    error
}

// OptimizeBatch solves independent requests in parallel with at most
// workers solves in flight. Results keep the order of reqs. Per-request
// failures are kept in the results; the returned error is only set when ctx
// ends before every request ran.
func (s *Service) OptimizeBatch(ctx context.Context, reqs []model.DemandRequest, workers int) ([]BatchResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]BatchResult, len(reqs))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, req := range reqs {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return out, err
		}
		g.Go(func() error {
			rep, err := s.Optimize(ctx, req)
			out[i] = BatchResult{Report: rep, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out, ctx.Err()
}
