package solver

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/location-optimizer/internal/resilience"
)

// Options selects and tunes a process backend.
type Options struct {
	Backend   string
	Path      string
	Threads   int
	TimeLimit time.Duration
	TempDir   string

	// MaxAttempts > 1 retries solves whose process was killed.
	MaxAttempts int
}

// New returns the backend named by opts.Backend.
func New(opts Options) (Solver, error) {
	s, err := newBackend(opts)
	if err != nil {
		return nil, err
	}
	if opts.MaxAttempts > 1 {
		s = WithRetry(s, resilience.FromSettings(opts.MaxAttempts, 0))
	}
	return s, nil
}

func newBackend(opts Options) (Solver, error) {
	switch opts.Backend {
	case "", "cbc":
		return NewCBC(opts.Path,
			WithCBCThreads(opts.Threads),
			WithCBCTimeLimit(opts.TimeLimit),
			WithCBCTempDir(opts.TempDir),
		), nil
	case "glpk":
		return NewGLPK(opts.Path,
			WithGLPKTimeLimit(opts.TimeLimit),
			WithGLPKTempDir(opts.TempDir),
		), nil
	default:
		return nil, eris.Errorf("solver: unknown backend %q", opts.Backend)
	}
}
