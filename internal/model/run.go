package model

import "time"

// RunStatus represents the current state of an optimization run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusCoverage  RunStatus = "coverage"
	RunStatusSolving   RunStatus = "solving"
	RunStatusResolving RunStatus = "resolving"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one evaluation of a constraint set.
type Run struct {
	ID            string        `json:"id"`
	ConstraintSet ConstraintSet `json:"constraint_set"`
	Status        RunStatus     `json:"status"`
	Result        *RunResult    `json:"result,omitempty"`
	Error         string        `json:"error,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
)

// RunPhase represents a phase within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// RunResult is the summary persisted for a completed run.
type RunResult struct {
	SolverStatus    string        `json:"solver_status"`
	Objective       float64       `json:"objective"`
	SitesOpened     int           `json:"sites_opened"`
	TotalWeight     int64         `json:"total_weight"`
	ServedWeight    int64         `json:"served_weight"`
	UniqueAssigned  int64         `json:"unique_assigned"`
	RequiredLevel   float64       `json:"required_level"`
	AchievedLevel   float64       `json:"achieved_level"`
	MaxAchievable   float64       `json:"max_achievable"`
	UncoveredPoints int           `json:"uncovered_points"`
	Warnings        []string      `json:"warnings,omitempty"`
	Phases          []PhaseResult `json:"phases"`
	DurationMS      int64         `json:"duration_ms"`
}

// SiteResult is the per-site reporting record of a run. Only opened sites
// carry non-zero unique totals.
type SiteResult struct {
	RunID              string  `json:"run_id,omitempty"`
	SiteID             string  `json:"site_id"`
	Name               string  `json:"name"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
	SiteClass          string  `json:"site_class"`
	Prestige           bool    `json:"prestige"`
	Opened             bool    `json:"opened"`
	CustomersTotal     int64   `json:"customers_covered_total"`
	CustomersWeighted  float64 `json:"customers_covered_weighted"`
	CustomersReachable float64 `json:"customers_reachable"`
}
