package main

import (
	"github.com/sells-group/location-optimizer/internal/ingest"
	"github.com/sells-group/location-optimizer/internal/pipeline"
	"github.com/sells-group/location-optimizer/internal/validation"
)

func ingestOptions() ingest.Options {
	return ingest.Options{
		Sheet:              cfg.Input.Sheet,
		PrestigeTopN:       cfg.Input.PrestigeN,
		KeyLength:          cfg.Validation.KeyLength,
		Bounds:             cfg.Validation.Bounds,
		GeocodingThreshold: cfg.Validation.GeocodingWarningThreshold,
		ExpectedTotal:      cfg.Validation.ExpectedTotal,
	}
}

// loadInputs reads sites and demand, adding data-quality warnings to w.
func loadInputs(w *validation.Warnings) (pipeline.Inputs, error) {
	opts := ingestOptions()

	sites, ws, err := ingest.ReadSites(cfg.Input.SitesPath, opts)
	w.Add(ws...)
	if err != nil {
		return pipeline.Inputs{}, err
	}
	demand, ws, err := ingest.ReadDemand(cfg.Input.DemandPath, opts)
	w.Add(ws...)
	if err != nil {
		return pipeline.Inputs{}, err
	}
	return pipeline.Inputs{Sites: sites, Demand: demand}, nil
}
