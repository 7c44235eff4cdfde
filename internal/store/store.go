// Package store persists optimization runs, their phases and per-site
// results in SQLite or Postgres.
package store

import (
	"context"
	"time"

	"github.com/sells-group/location-optimizer/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status        model.RunStatus `json:"status,omitempty"`
	ConstraintSet string          `json:"constraint_set,omitempty"`
	CreatedAfter  time.Time       `json:"created_after,omitempty"`
	Limit         int             `json:"limit,omitempty"`
	Offset        int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for optimization runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, cs model.ConstraintSet) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error
	ListPhases(ctx context.Context, runID string) ([]model.RunPhase, error)

	// Site results
	SaveSiteResults(ctx context.Context, runID string, results []model.SiteResult) error
	ListSiteResults(ctx context.Context, runID string, openedOnly bool) ([]model.SiteResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100
