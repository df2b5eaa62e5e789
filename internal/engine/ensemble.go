package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Ensemble relaxes several systems concurrently, typically the images of one
// chain. Each run gets its own metric instances from newMetrics.
type Ensemble struct {
	newMetrics func() []Metric
	limit      int
}

func NewEnsemble(newMetrics func() []Metric, limit int) *Ensemble {
	if newMetrics == nil {
		newMetrics = func() []Metric { return nil }
	}
	return &Ensemble{newMetrics: newMetrics, limit: limit}
}

// Run returns one result per system, in order. The first failing run cancels
// the rest.
func (e *Ensemble) Run(ctx context.Context, systems []System, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(systems))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, sys := range systems {
		g.Go(func() error {
			r := New()
			for _, m := range e.newMetrics() {
				r.AddMetric(m)
			}
			res, err := r.Run(ctx, sys, cfg)
			results[i] = res
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
