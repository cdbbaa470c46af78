// Package config loads engine configuration from JSON files. The schema
// mirrors the impute.Options surface so the same file drives both the CLI
// and embedded use. Fields omitted from the JSON keep their defaults, so
// partial configs are safe.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aquanet-data/telemetry.fill/internal/impute"
)

// EngineConfig is the on-disk configuration for an imputation run. All
// fields are pointers so an absent key is distinguishable from a zero
// value.
type EngineConfig struct {
	// Fill strategy: "linear", "svd" or "hybrid".
	Strategy *string `json:"strategy,omitempty"`

	// SVD params
	NComponents   *int     `json:"n_components,omitempty"`
	MaxIterations *int     `json:"max_iterations,omitempty"`
	Tolerance     *float64 `json:"tolerance,omitempty"`

	// Post-processing
	EnforceMonotonicity *bool   `json:"enforce_monotonicity,omitempty"`
	SmoothingEnabled    *bool   `json:"smoothing_enabled,omitempty"`
	SmoothingMethod     *string `json:"smoothing_method,omitempty"` // "moving_avg", "spline", "savgol"
	SmoothingWindow     *int    `json:"smoothing_window,omitempty"`

	// Hybrid-mode small/large gap boundary, in hours.
	GapThresholdHours *int `json:"gap_threshold_hours,omitempty"`

	// Worker pool size; 0 or absent means one worker per CPU.
	Workers *int `json:"workers,omitempty"`
}

// Empty returns an EngineConfig with all fields unset.
func Empty() *EngineConfig {
	return &EngineConfig{}
}

// Load reads an EngineConfig from a JSON file.
func Load(path string) (*EngineConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges for all set fields.
func (c *EngineConfig) Validate() error {
	if c.Strategy != nil {
		switch impute.Strategy(*c.Strategy) {
		case impute.StrategyLinear, impute.StrategySVD, impute.StrategyHybrid:
		default:
			return fmt.Errorf("strategy must be linear, svd or hybrid, got %q", *c.Strategy)
		}
	}
	if c.NComponents != nil && *c.NComponents < 1 {
		return fmt.Errorf("n_components must be >= 1, got %d", *c.NComponents)
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be >= 1, got %d", *c.MaxIterations)
	}
	if c.Tolerance != nil && *c.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be > 0, got %g", *c.Tolerance)
	}
	if c.SmoothingMethod != nil {
		switch impute.SmoothMethod(*c.SmoothingMethod) {
		case impute.SmoothMovingAvg, impute.SmoothSpline, impute.SmoothSavgol:
		default:
			return fmt.Errorf("smoothing_method must be moving_avg, spline or savgol, got %q", *c.SmoothingMethod)
		}
	}
	if c.SmoothingWindow != nil && *c.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing_window must be >= 1, got %d", *c.SmoothingWindow)
	}
	if c.GapThresholdHours != nil && *c.GapThresholdHours < 1 {
		return fmt.Errorf("gap_threshold_hours must be >= 1, got %d", *c.GapThresholdHours)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", *c.Workers)
	}
	return nil
}

// Options converts the config into engine options, applying engine defaults
// for any unset field.
func (c *EngineConfig) Options() impute.Options {
	opts := impute.DefaultOptions()
	if c.Strategy != nil {
		opts.Strategy = impute.Strategy(*c.Strategy)
	}
	if c.NComponents != nil {
		opts.NComponents = *c.NComponents
	}
	if c.MaxIterations != nil {
		opts.MaxIterations = *c.MaxIterations
	}
	if c.Tolerance != nil {
		opts.Tolerance = *c.Tolerance
	}
	if c.EnforceMonotonicity != nil {
		opts.EnforceMonotonicity = *c.EnforceMonotonicity
	}
	if c.SmoothingEnabled != nil {
		opts.Smoothing.Enabled = *c.SmoothingEnabled
	}
	if c.SmoothingMethod != nil {
		opts.Smoothing.Method = impute.SmoothMethod(*c.SmoothingMethod)
	}
	if c.SmoothingWindow != nil {
		opts.Smoothing.Window = *c.SmoothingWindow
	}
	if c.GapThresholdHours != nil {
		opts.GapThresholdHours = *c.GapThresholdHours
	}
	if c.Workers != nil {
		opts.Workers = *c.Workers
	}
	return opts
}
