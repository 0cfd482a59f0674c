package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/virtualdyno/internal/config"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

func writeConfig(t *testing.T, content string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "virtualdyno.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("VIRTUALDYNO_CONFIG", path)
}

func resetArgs(t *testing.T) {
	t.Helper()

	oldArgs := os.Args
	os.Args = []string{"virtualdyno"}
	t.Cleanup(func() { os.Args = oldArgs })
}

func TestLoad(t *testing.T) {
	resetArgs(t)
	writeConfig(t, `
log_level = "debug"
database = "/var/lib/virtualdyno/runs.db"
chart = "run.html"

[analysis]
min_pull_rpm = 2200.0
min_pull_samples = 12
guard_window_sec = 0.75

[analysis.safety]
max_coolant_temp_c = 105.0

[vehicle]
version = "gti-mk7"
mass_kg = 1450.0
drag_coefficient = 0.31
frontal_area_m2 = 2.23
rolling_resistance = 0.012
gear_ratios = [3.77, 2.27, 1.53, 1.12, 1.18, 0.94]
final_drive = 3.45
drivetrain_efficiency = 0.86
tire_radius_m = 0.317
transmission = "dual_clutch"
drivetrain = "fwd"
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/var/lib/virtualdyno/runs.db", cfg.Database)
	assert.Equal(t, "run.html", cfg.Chart)

	analysis, err := cfg.AnalysisConfig()
	require.NoError(t, err)
	assert.InDelta(t, 2200, analysis.MinPullRPM, 1e-9)
	assert.Equal(t, 12, analysis.MinPullSamples)
	assert.InDelta(t, 0.75, analysis.GuardWindowSec, 1e-9)
	assert.InDelta(t, 105, analysis.Safety.MaxCoolantTempC, 1e-9)

	// Untouched thresholds keep their defaults.
	assert.InDelta(t, 6500, analysis.MaxPullRPM, 1e-9)
	assert.InDelta(t, 80, analysis.Safety.MaxIntakeTempC, 1e-9)

	veh, err := cfg.VehicleConstants()
	require.NoError(t, err)
	assert.Equal(t, "gti-mk7", veh.Version)
	assert.Equal(t, vehicle.TransmissionDualClutch, veh.Transmission)

	// Physical defaults are filled in when the file omits them.
	assert.InDelta(t, 9.81, veh.GravityMS2, 1e-9)
	assert.InDelta(t, 1.225, veh.AirDensityKgM3, 1e-9)

	storeCfg := cfg.StoreConfig()
	assert.True(t, storeCfg.Enabled)
	assert.Equal(t, "/var/lib/virtualdyno/runs.db", storeCfg.DBPath)
}

func TestLoadDefaults(t *testing.T) {
	resetArgs(t)
	t.Setenv("VIRTUALDYNO_CONFIG", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultLogLevel, cfg.LogLevel)
	assert.Empty(t, cfg.Database)
	assert.False(t, cfg.StoreConfig().Enabled)

	analysis, err := cfg.AnalysisConfig()
	require.NoError(t, err)
	assert.InDelta(t, 2000, analysis.MinPullRPM, 1e-9)
	assert.Equal(t, 10, analysis.MinPullSamples)
}

func TestLoadInvalidFormat(t *testing.T) {
	resetArgs(t)
	writeConfig(t, "This is not a valid TOML file")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to read configuration")
}

func TestLoadInvalidLogLevel(t *testing.T) {
	resetArgs(t)
	writeConfig(t, `log_level = "loud"`)

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid log level")
}

func TestLogLevelFlag(t *testing.T) {
	t.Setenv("VIRTUALDYNO_CONFIG", "")

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"virtualdyno", "--log-level", "debug"}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestVehicleConstantsStillValidated(t *testing.T) {
	resetArgs(t)
	writeConfig(t, `
[vehicle]
version = "bad"
mass_kg = -1.0
`)

	cfg, err := config.Load()
	require.NoError(t, err)

	_, err = cfg.VehicleConstants()
	require.Error(t, err)
}
