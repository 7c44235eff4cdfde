package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ConstraintSet is a named scenario: reachability radius, decay onset and
// opening cost per site class.
type ConstraintSet struct {
	Name          string  `json:"name" yaml:"name" mapstructure:"name"`
	MaxDistanceKM float64 `json:"max_distance_km" yaml:"max_distance_km" mapstructure:"max_distance_km"`
	DecayStartKM  float64 `json:"decay_start_km" yaml:"decay_start_km" mapstructure:"decay_start_km"`
	CostPrestige  float64 `json:"cost_prestige" yaml:"cost_prestige" mapstructure:"cost_prestige"`
	CostStandard  float64 `json:"cost_standard" yaml:"cost_standard" mapstructure:"cost_standard"`
}

// Validate checks the internal consistency of the set.
func (cs ConstraintSet) Validate() error {
	var errs []string
	if strings.TrimSpace(cs.Name) == "" {
		errs = append(errs, "name is required")
	}
	if cs.DecayStartKM < 0 {
		errs = append(errs, fmt.Sprintf("decay_start_km (%g) must be >= 0", cs.DecayStartKM))
	}
	if cs.MaxDistanceKM <= cs.DecayStartKM {
		errs = append(errs, fmt.Sprintf("max_distance_km (%g) must be > decay_start_km (%g)", cs.MaxDistanceKM, cs.DecayStartKM))
	}
	if cs.CostPrestige <= 0 || cs.CostStandard <= 0 {
		errs = append(errs, "cost values must be positive")
	}
	if len(errs) > 0 {
		return eris.Errorf("invalid constraint set %q: %s", cs.Name, strings.Join(errs, "; "))
	}
	return nil
}

// BaseCost returns the opening cost for a site of the given class.
func (cs ConstraintSet) BaseCost(prestige bool) float64 {
	if prestige {
		return cs.CostPrestige
	}
	return cs.CostStandard
}

// Params are the run-wide optimization parameters shared by every
// constraint set.
type Params struct {
	ServiceLevel   float64 `json:"service_level"`
	CustomerBonus  float64 `json:"customer_bonus"`
	PrestigeBonus  float64 `json:"prestige_bonus"`
	MinWeightAtMax float64 `json:"min_weight_at_max"`
	EarthRadiusKM  float64 `json:"earth_radius_km"`
}

// DefaultEarthRadiusKM is the mean Earth radius.
const DefaultEarthRadiusKM = 6371.0

// DefaultParams returns the parameters the planner ships with.
func DefaultParams() Params {
	return Params{
		ServiceLevel:   0.90,
		CustomerBonus:  0.2,
		PrestigeBonus:  0.1,
		MinWeightAtMax: 0.5,
		EarthRadiusKM:  DefaultEarthRadiusKM,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	var errs []string
	if !(p.ServiceLevel > 0 && p.ServiceLevel <= 1) {
		errs = append(errs, fmt.Sprintf("service_level must be between 0 and 1, got %g", p.ServiceLevel))
	}
	if p.MinWeightAtMax < 0 || p.MinWeightAtMax > 1 {
		errs = append(errs, fmt.Sprintf("min_weight_at_max must be within [0,1], got %g", p.MinWeightAtMax))
	}
	if p.CustomerBonus < 0 || p.PrestigeBonus < 0 {
		errs = append(errs, "bonus weights must be >= 0")
	}
	if p.EarthRadiusKM <= 0 {
		errs = append(errs, "earth_radius_km must be > 0")
	}
	if len(errs) > 0 {
		return eris.Errorf("invalid optimization params: %s", strings.Join(errs, "; "))
	}
	return nil
}
