package config

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/solver"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.90, cfg.Optimization.ServiceLevel, 0.001)
	assert.InDelta(t, 0.2, cfg.Optimization.CustomerBonus, 0.001)
	assert.InDelta(t, 0.1, cfg.Optimization.PrestigeBonus, 0.001)
	assert.InDelta(t, 0.5, cfg.Optimization.MinWeightAtMax, 0.001)
	assert.InDelta(t, 6371.0, cfg.Optimization.EarthRadiusKM, 0.001)
	assert.Equal(t, 4, cfg.Optimization.Workers)
	assert.Equal(t, 47.0, cfg.Validation.Bounds.MinLat)
	assert.Equal(t, 55.0, cfg.Validation.Bounds.MaxLat)
	assert.Equal(t, 6.0, cfg.Validation.Bounds.MinLon)
	assert.Equal(t, 15.0, cfg.Validation.Bounds.MaxLon)
	assert.InDelta(t, 0.05, cfg.Validation.GeocodingWarningThreshold, 0.001)
	assert.Equal(t, 5, cfg.Validation.KeyLength)
	assert.Equal(t, 200, cfg.Input.PrestigeN)
	assert.Equal(t, "cbc", cfg.Solver.Backend)
	assert.Equal(t, 300, cfg.Solver.TimeoutSecs)
	assert.Equal(t, 1, cfg.Solver.MaxAttempts)
	assert.Equal(t, 3, cfg.Store.ConnectAttempts)
	assert.Equal(t, 1, cfg.Pipeline.MaxConcurrentSets)
	assert.Equal(t, "output", cfg.Output.Dir)
	assert.Equal(t, "table", cfg.Output.Format)
	assert.True(t, cfg.Output.GeoJSON)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "locopt.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	sets, err := cfg.ConstraintSets()
	require.NoError(t, err)
	assert.Equal(t, DefaultConstraintSets(), sets)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
optimization:
  service_level: 0.85
constraint_sets:
  - name: Regional
    max_distance_km: 60
    decay_start_km: 30
    cost_prestige: 0.6
    cost_standard: 0.8
solver:
  backend: glpk
  timeout_secs: 60
log:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 0.85, cfg.Optimization.ServiceLevel, 0.001)
	assert.Equal(t, "glpk", cfg.Solver.Backend)
	assert.Equal(t, time.Minute, cfg.SolverTimeout())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	// Defaults still apply for unset values
	assert.InDelta(t, 0.2, cfg.Optimization.CustomerBonus, 0.001)

	sets, err := cfg.ConstraintSets()
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, model.ConstraintSet{Name: "Regional", MaxDistanceKM: 60, DecayStartKM: 30, CostPrestige: 0.6, CostStandard: 0.8}, sets[0])
}

func TestLoadFrom_ExplicitPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "optimizer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: postgres\n  database_url: postgres://localhost/locopt\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/locopt", cfg.Store.DatabaseURL)
}

func TestLoadFrom_MissingExplicitPath(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LOCOPT_STORE_DRIVER", "postgres")
	t.Setenv("LOCOPT_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	t.Setenv("LOCOPT_OPTIMIZATION_SERVICE_LEVEL", "0.75")
	t.Setenv("LOCOPT_SOLVER_TIMEOUT_SECS", "30")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.75, cfg.Optimization.ServiceLevel, 0.001)
	assert.Equal(t, 30, cfg.Solver.TimeoutSecs)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Optimization = OptimizationConfig{ServiceLevel: 0.9, CustomerBonus: 0.2, PrestigeBonus: 0.1, MinWeightAtMax: 0.5, EarthRadiusKM: 6371, Workers: 4}
	cfg.ConstraintSetList = DefaultConstraintSets()
	cfg.Validation.Bounds.MinLat, cfg.Validation.Bounds.MaxLat = 47, 55
	cfg.Validation.Bounds.MinLon, cfg.Validation.Bounds.MaxLon = 6, 15
	cfg.Validation.GeocodingWarningThreshold = 0.05
	cfg.Input.PrestigeN = 200
	cfg.Solver.Backend = "cbc"
	cfg.Solver.TimeoutSecs = 300
	cfg.Pipeline.MaxConcurrentSets = 1
	cfg.Output.Format = "table"
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "locopt.db"
	return cfg
}

func TestValidate_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"service level", func(c *Config) { c.Optimization.ServiceLevel = 0 }, "service_level must be between 0 and 1"},
		{"concurrency low", func(c *Config) { c.Pipeline.MaxConcurrentSets = 0 }, "max_concurrent_sets must be between 1 and 16"},
		{"concurrency high", func(c *Config) { c.Pipeline.MaxConcurrentSets = 17 }, "max_concurrent_sets must be between 1 and 16"},
		{"bounds", func(c *Config) { c.Validation.Bounds.MinLat = 60 }, "invalid bounds"},
		{"backend", func(c *Config) { c.Solver.Backend = "gurobi" }, `solver.backend must be cbc or glpk, got "gurobi"`},
		{"timeout", func(c *Config) { c.Solver.TimeoutSecs = 0 }, "solver.timeout_secs must be > 0"},
		{"format", func(c *Config) { c.Output.Format = "xml" }, "output.format must be table or csv"},
		{"driver", func(c *Config) { c.Store.Driver = "mysql" }, "store.driver must be sqlite, postgres or none"},
		{"database url", func(c *Config) { c.Store.DatabaseURL = "" }, "store.database_url is required"},
		{"no sets", func(c *Config) { c.ConstraintSetList = nil }, "at least one constraint set is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NoStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "none"
	cfg.Store.DatabaseURL = ""
	assert.NoError(t, cfg.Validate())
}

func TestParams(t *testing.T) {
	assert.Equal(t, model.DefaultParams(), validDefaults().Params())
}

func TestSolverOptions(t *testing.T) {
	cfg := validDefaults()
	cfg.Solver.Path = "/opt/cbc/bin/cbc"
	cfg.Solver.Threads = 4
	cfg.Solver.MaxAttempts = 3

	opts := cfg.SolverOptions()
	assert.Equal(t, "cbc", opts.Backend)
	assert.Equal(t, "/opt/cbc/bin/cbc", opts.Path)
	assert.Equal(t, 4, opts.Threads)
	assert.Equal(t, 300*time.Second, opts.TimeLimit)
	assert.Equal(t, 3, opts.MaxAttempts)
}

func TestDefaultSolverLaunchesOnce(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })

	cfg, err := Load()
	require.NoError(t, err)

	// A killed process is the one failure a retrying solver would repeat.
	counter := filepath.Join(dir, "launches")
	bin := filepath.Join(dir, "cbc")
	script := "#!/bin/sh\necho x >> \"" + counter + "\"\nkill -9 $$\n"
	require.NoError(t, os.WriteFile(bin, []byte(script), 0o755))
	cfg.Solver.Path = bin

	s, err := solver.New(cfg.SolverOptions())
	require.NoError(t, err)
	_, isCBC := s.(*solver.CBC)
	assert.True(t, isCBC)

	p := solver.NewProblem("cover", solver.Minimize)
	open := p.AddBinary("open_0", 1)
	p.AddConstraint("cover_0", []solver.Term{{Var: open, Coef: 1}}, solver.GreaterEq, 1)

	_, err = s.Solve(context.Background(), p)
	require.Error(t, err)

	data, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))
}

func TestConstraintSets_Invalid(t *testing.T) {
	cfg := validDefaults()
	cfg.ConstraintSetList[1].DecayStartKM = 40

	_, err := cfg.ConstraintSets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid constraint set "Moderate"`)
}

func TestConstraintSets_Duplicate(t *testing.T) {
	cfg := validDefaults()
	cfg.ConstraintSetList = append(cfg.ConstraintSetList, model.ConstraintSet{Name: "moderate", MaxDistanceKM: 10, DecayStartKM: 1, CostPrestige: 1, CostStandard: 1})

	_, err := cfg.ConstraintSets()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate constraint set "moderate"`)
}

func TestConstraintSets_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.yaml")
	content := `
constraint_sets:
  - name: Urban
    max_distance_km: 20
    decay_start_km: 5
    cost_prestige: 0.9
    cost_standard: 1.1
  - name: Rural
    max_distance_km: 120
    decay_start_km: 60
    cost_prestige: 0.8
    cost_standard: 1.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := validDefaults()
	cfg.ConstraintSetsFile = path

	sets, err := cfg.ConstraintSets()
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "Urban", sets[0].Name)
	assert.Equal(t, 120.0, sets[1].MaxDistanceKM)
}

func TestLoadConstraintSets_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConstraintSets(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read constraint sets")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("constraint_sets: [unclosed"), 0644))
	_, err = LoadConstraintSets(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse constraint sets")

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("other: 1\n"), 0644))
	_, err = LoadConstraintSets(empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "defines no constraint sets")
}
