package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/location-optimizer/internal/geo"
	"github.com/sells-group/location-optimizer/internal/model"
	"github.com/sells-group/location-optimizer/internal/solver"
)

// Config holds the full application configuration.
type Config struct {
	Optimization       OptimizationConfig    `yaml:"optimization" mapstructure:"optimization"`
	ConstraintSetList  []model.ConstraintSet `yaml:"constraint_sets" mapstructure:"constraint_sets"`
	ConstraintSetsFile string                `yaml:"constraint_sets_file" mapstructure:"constraint_sets_file"`
	Validation         ValidationConfig      `yaml:"validation" mapstructure:"validation"`
	Input              InputConfig           `yaml:"input" mapstructure:"input"`
	Solver             SolverConfig          `yaml:"solver" mapstructure:"solver"`
	Pipeline           PipelineConfig        `yaml:"pipeline" mapstructure:"pipeline"`
	Output             OutputConfig          `yaml:"output" mapstructure:"output"`
	Store              StoreConfig           `yaml:"store" mapstructure:"store"`
	Metrics            MetricsConfig         `yaml:"metrics" mapstructure:"metrics"`
	Log                LogConfig             `yaml:"log" mapstructure:"log"`
}

// OptimizationConfig holds the parameters shared by every constraint set.
type OptimizationConfig struct {
	ServiceLevel   float64 `yaml:"service_level" mapstructure:"service_level"`
	CustomerBonus  float64 `yaml:"customer_bonus" mapstructure:"customer_bonus"`
	PrestigeBonus  float64 `yaml:"prestige_bonus" mapstructure:"prestige_bonus"`
	MinWeightAtMax float64 `yaml:"min_weight_at_max" mapstructure:"min_weight_at_max"`
	EarthRadiusKM  float64 `yaml:"earth_radius_km" mapstructure:"earth_radius_km"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
}

// ValidationConfig configures data-quality checks.
type ValidationConfig struct {
	Bounds                    geo.Bounds `yaml:"bounds" mapstructure:"bounds"`
	GeocodingWarningThreshold float64    `yaml:"geocoding_warning_threshold" mapstructure:"geocoding_warning_threshold"`
	ExpectedTotal             int64      `yaml:"expected_total" mapstructure:"expected_total"`
	KeyLength                 int        `yaml:"key_length" mapstructure:"key_length"`
}

// InputConfig locates the input tables.
type InputConfig struct {
	SitesPath  string `yaml:"sites_path" mapstructure:"sites_path"`
	DemandPath string `yaml:"demand_path" mapstructure:"demand_path"`
	Sheet      string `yaml:"sheet" mapstructure:"sheet"`
	PrestigeN  int    `yaml:"prestige_top_n" mapstructure:"prestige_top_n"`
}

// SolverConfig selects the solver backend.
type SolverConfig struct {
	Backend     string `yaml:"backend" mapstructure:"backend"`
	Path        string `yaml:"path" mapstructure:"path"`
	Threads     int    `yaml:"threads" mapstructure:"threads"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	TempDir     string `yaml:"temp_dir" mapstructure:"temp_dir"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// PipelineConfig configures constraint-set evaluation.
type PipelineConfig struct {
	MaxConcurrentSets int `yaml:"max_concurrent_sets" mapstructure:"max_concurrent_sets"`
}

// OutputConfig configures result files.
type OutputConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Format  string `yaml:"format" mapstructure:"format"`
	GeoJSON bool   `yaml:"geojson" mapstructure:"geojson"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	ConnectAttempts int    `yaml:"connect_attempts" mapstructure:"connect_attempts"`
}

// MetricsConfig configures the metrics text dump.
type MetricsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConstraintSets are the scenarios evaluated when none are configured.
func DefaultConstraintSets() []model.ConstraintSet {
	return []model.ConstraintSet{
		{Name: "Conservative", MaxDistanceKM: 100, DecayStartKM: 90, CostPrestige: 0.8, CostStandard: 1.0},
		{Name: "Moderate", MaxDistanceKM: 40, DecayStartKM: 15, CostPrestige: 0.75, CostStandard: 0.95},
		{Name: "Aggressive", MaxDistanceKM: 45, DecayStartKM: 20, CostPrestige: 0.7, CostStandard: 0.9},
	}
}

func constraintSetDefaults() []map[string]any {
	sets := DefaultConstraintSets()
	out := make([]map[string]any, len(sets))
	for i, cs := range sets {
		out[i] = map[string]any{
			"name":            cs.Name,
			"max_distance_km": cs.MaxDistanceKM,
			"decay_start_km":  cs.DecayStartKM,
			"cost_prestige":   cs.CostPrestige,
			"cost_standard":   cs.CostStandard,
		}
	}
	return out
}

// Load reads configuration from ./config.yaml and the environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration from path, or from ./config.yaml when path
// is empty, and the environment. A missing default file is not an error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("LOCOPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("optimization.service_level", 0.90)
	v.SetDefault("optimization.customer_bonus", 0.2)
	v.SetDefault("optimization.prestige_bonus", 0.1)
	v.SetDefault("optimization.min_weight_at_max", 0.5)
	v.SetDefault("optimization.earth_radius_km", model.DefaultEarthRadiusKM)
	v.SetDefault("optimization.workers", 4)
	v.SetDefault("constraint_sets", constraintSetDefaults())
	v.SetDefault("constraint_sets_file", "")
	v.SetDefault("validation.bounds.min_lat", geo.Germany.MinLat)
	v.SetDefault("validation.bounds.max_lat", geo.Germany.MaxLat)
	v.SetDefault("validation.bounds.min_lon", geo.Germany.MinLon)
	v.SetDefault("validation.bounds.max_lon", geo.Germany.MaxLon)
	v.SetDefault("validation.geocoding_warning_threshold", 0.05)
	v.SetDefault("validation.expected_total", 0)
	v.SetDefault("validation.key_length", 5)
	v.SetDefault("input.sites_path", "cities.xlsx")
	v.SetDefault("input.demand_path", "customers.csv")
	v.SetDefault("input.sheet", "")
	v.SetDefault("input.prestige_top_n", 200)
	v.SetDefault("solver.backend", "cbc")
	v.SetDefault("solver.path", "")
	v.SetDefault("solver.threads", 0)
	v.SetDefault("solver.timeout_secs", 300)
	v.SetDefault("solver.temp_dir", "")
	v.SetDefault("solver.max_attempts", 1)
	v.SetDefault("pipeline.max_concurrent_sets", 1)
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.format", "table")
	v.SetDefault("output.geojson", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "locopt.db")
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("metrics.file", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional unless named explicitly)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if err := c.Params().Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Optimization.Workers < 0 {
		errs = append(errs, "optimization.workers must be >= 0")
	}
	if c.Pipeline.MaxConcurrentSets < 1 || c.Pipeline.MaxConcurrentSets > 16 {
		errs = append(errs, fmt.Sprintf("pipeline.max_concurrent_sets must be between 1 and 16, got %d", c.Pipeline.MaxConcurrentSets))
	}
	if err := c.Validation.Bounds.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if t := c.Validation.GeocodingWarningThreshold; t < 0 || t > 1 {
		errs = append(errs, "validation.geocoding_warning_threshold must be between 0 and 1")
	}
	if c.Input.PrestigeN < 0 {
		errs = append(errs, "input.prestige_top_n must be >= 0")
	}
	switch c.Solver.Backend {
	case "cbc", "glpk":
	default:
		errs = append(errs, fmt.Sprintf("solver.backend must be cbc or glpk, got %q", c.Solver.Backend))
	}
	if c.Solver.TimeoutSecs <= 0 {
		errs = append(errs, "solver.timeout_secs must be > 0")
	}
	switch c.Output.Format {
	case "table", "csv":
	default:
		errs = append(errs, fmt.Sprintf("output.format must be table or csv, got %q", c.Output.Format))
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
	case "none":
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite, postgres or none, got %q", c.Store.Driver))
	}
	if c.ConstraintSetsFile == "" && len(c.ConstraintSetList) == 0 {
		errs = append(errs, "at least one constraint set is required")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Params builds the optimization parameters.
func (c *Config) Params() model.Params {
	return model.Params{
		ServiceLevel:   c.Optimization.ServiceLevel,
		CustomerBonus:  c.Optimization.CustomerBonus,
		PrestigeBonus:  c.Optimization.PrestigeBonus,
		MinWeightAtMax: c.Optimization.MinWeightAtMax,
		EarthRadiusKM:  c.Optimization.EarthRadiusKM,
	}
}

// ConstraintSets returns the configured constraint sets, read from
// constraint_sets_file when set, each validated and uniquely named.
func (c *Config) ConstraintSets() ([]model.ConstraintSet, error) {
	sets := c.ConstraintSetList
	if c.ConstraintSetsFile != "" {
		var err error
		sets, err = LoadConstraintSets(c.ConstraintSetsFile)
		if err != nil {
			return nil, err
		}
	}
	if len(sets) == 0 {
		return nil, eris.New("config: no constraint sets configured")
	}

	seen := make(map[string]bool, len(sets))
	for _, cs := range sets {
		if err := cs.Validate(); err != nil {
			return nil, eris.Wrap(err, "config: constraint sets")
		}
		key := strings.ToLower(cs.Name)
		if seen[key] {
			return nil, eris.Errorf("config: duplicate constraint set %q", cs.Name)
		}
		seen[key] = true
	}
	return append([]model.ConstraintSet(nil), sets...), nil
}

// SolverOptions maps the solver section onto backend options.
func (c *Config) SolverOptions() solver.Options {
	return solver.Options{
		Backend:   c.Solver.Backend,
		Path:      c.Solver.Path,
		Threads:   c.Solver.Threads,
		TimeLimit: c.SolverTimeout(),
		TempDir:   c.Solver.TempDir,

		MaxAttempts: c.Solver.MaxAttempts,
	}
}

// SolverTimeout is the wall-clock budget of one solve.
func (c *Config) SolverTimeout() time.Duration {
	return time.Duration(c.Solver.TimeoutSecs) * time.Second
}

type constraintSetFile struct {
	ConstraintSets []model.ConstraintSet `yaml:"constraint_sets"`
}

// LoadConstraintSets reads constraint sets from a YAML file of the form
//
//	constraint_sets:
//	  - name: Moderate
//	    max_distance_km: 40
//	    decay_start_km: 15
//	    cost_prestige: 0.75
//	    cost_standard: 0.95
func LoadConstraintSets(path string) ([]model.ConstraintSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "config: read constraint sets %s", path)
	}
	var f constraintSetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "config: parse constraint sets %s", path)
	}
	if len(f.ConstraintSets) == 0 {
		return nil, eris.Errorf("config: %s defines no constraint sets", path)
	}
	return f.ConstraintSets, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
