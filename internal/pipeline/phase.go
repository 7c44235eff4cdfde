package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/model"
)

// tracker records phases of one run on the store and in the run result.
type tracker struct {
	runner *Runner
	runID  string
	log    *zap.Logger
	result *model.RunResult
}

func (t *tracker) setStatus(ctx context.Context, status model.RunStatus) {
	if t.runner.store == nil || t.runID == "" {
		return
	}
	if err := t.runner.store.UpdateRunStatus(ctx, t.runID, status); err != nil {
		t.log.Warn("pipeline: failed to update status", zap.Error(err))
	}
}

// phase runs fn as the named phase and returns its error.
func (t *tracker) phase(ctx context.Context, name string, fn func() (map[string]any, error)) error {
	st := t.runner.store
	var phase *model.RunPhase
	if st != nil && t.runID != "" {
		p, err := st.CreatePhase(ctx, t.runID, name)
		if err != nil {
			t.log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(err))
		}
		phase = p
	}

	start := time.Now()
	meta, fnErr := fn()
	duration := time.Since(start).Milliseconds()

	pr := model.PhaseResult{Name: name, Duration: duration, Metadata: meta}
	if fnErr != nil {
		pr.Status = model.PhaseStatusFailed
		pr.Error = fnErr.Error()
		t.log.Debug("pipeline: phase failed", zap.String("phase", name), zap.Int64("duration_ms", duration))
	} else {
		pr.Status = model.PhaseStatusComplete
		t.log.Info("pipeline: phase complete", zap.String("phase", name), zap.Int64("duration_ms", duration))
	}

	if phase != nil {
		if err := st.CompletePhase(context.WithoutCancel(ctx), phase.ID, &pr); err != nil {
			t.log.Warn("pipeline: failed to complete phase", zap.String("phase", name), zap.Error(err))
		}
	}
	t.result.Phases = append(t.result.Phases, pr)
	return fnErr
}
