package solver

import (
	"context"

	"github.com/sells-group/location-optimizer/internal/resilience"
)

// retrying re-runs solves that failed transiently, such as a backend
// process killed by a signal.
type retrying struct {
	inner Solver
	cfg   resilience.RetryConfig
}

// WithRetry wraps s so transient failures are retried per cfg.
func WithRetry(s Solver, cfg resilience.RetryConfig) Solver {
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("solver", s.Name())
	}
	return &retrying{inner: s, cfg: cfg}
}

func (r *retrying) Name() string { return r.inner.Name() }

func (r *retrying) Solve(ctx context.Context, p *Problem) (*Solution, error) {
	return resilience.DoVal(ctx, r.cfg, func(ctx context.Context) (*Solution, error) {
		return r.inner.Solve(ctx, p)
	})
}
