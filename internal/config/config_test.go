package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquanet-data/telemetry.fill/internal/impute"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `{
		"strategy": "svd",
		"n_components": 20,
		"max_iterations": 15,
		"tolerance": 0.001,
		"enforce_monotonicity": false,
		"smoothing_enabled": true,
		"smoothing_method": "savgol",
		"smoothing_window": 7,
		"gap_threshold_hours": 48,
		"workers": 2
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	opts := cfg.Options()
	assert.Equal(t, impute.StrategySVD, opts.Strategy)
	assert.Equal(t, 20, opts.NComponents)
	assert.Equal(t, 15, opts.MaxIterations)
	assert.Equal(t, 0.001, opts.Tolerance)
	assert.False(t, opts.EnforceMonotonicity)
	assert.True(t, opts.Smoothing.Enabled)
	assert.Equal(t, impute.SmoothSavgol, opts.Smoothing.Method)
	assert.Equal(t, 7, opts.Smoothing.Window)
	assert.Equal(t, 48, opts.GapThresholdHours)
	assert.Equal(t, 2, opts.Workers)
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `{"strategy": "linear"}`)
	cfg, err := Load(path)
	require.NoError(t, err)

	opts := cfg.Options()
	def := impute.DefaultOptions()
	assert.Equal(t, impute.StrategyLinear, opts.Strategy)
	assert.Equal(t, def.NComponents, opts.NComponents)
	assert.True(t, opts.EnforceMonotonicity, "default must survive a partial config")
	assert.False(t, opts.Smoothing.Enabled)
}

func TestEmptyConfigIsDefaults(t *testing.T) {
	opts := Empty().Options()
	def := impute.DefaultOptions()
	assert.Equal(t, def.Strategy, opts.Strategy)
	assert.Equal(t, def.NComponents, opts.NComponents)
	assert.Equal(t, def.GapThresholdHours, opts.GapThresholdHours)
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	_, err := Load("engine.yaml")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	_, err := Load(writeConfig(t, `{"strategy": `))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"bad strategy", `{"strategy": "cubic"}`},
		{"zero components", `{"n_components": 0}`},
		{"zero iterations", `{"max_iterations": 0}`},
		{"negative tolerance", `{"tolerance": -1}`},
		{"bad smoothing method", `{"smoothing_method": "median"}`},
		{"zero window", `{"smoothing_window": 0}`},
		{"zero threshold", `{"gap_threshold_hours": 0}`},
		{"negative workers", `{"workers": -1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
