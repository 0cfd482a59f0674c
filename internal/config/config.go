// Package config loads the application configuration from a TOML file,
// environment variables and command-line flags, in that order of
// increasing precedence. The VIRTUALDYNO_CONFIG environment variable
// points at an explicit config file; without it only defaults, env and
// flags apply.
package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/virtualdyno/internal/dyno"
	"codeberg.org/mutker/virtualdyno/internal/errors"
	"codeberg.org/mutker/virtualdyno/internal/store"
	"codeberg.org/mutker/virtualdyno/internal/vehicle"
)

const (
	DefaultLogLevel = "info"

	envPrefix    = "VIRTUALDYNO"
	envConfigVar = "VIRTUALDYNO_CONFIG"

	// Physical defaults applied when the vehicle section omits them.
	defaultGravityMS2     = 9.81
	defaultAirDensityKgM3 = 1.225
)

type Config struct {
	LogLevel string `mapstructure:"log_level"`

	// Database enables run persistence when non-empty.
	Database string `mapstructure:"database"`

	// Chart is the output path for rendered curve charts.
	Chart string `mapstructure:"chart"`

	Analysis AnalysisOverrides `mapstructure:"analysis"`
	Vehicle  vehicle.Constants `mapstructure:"vehicle"`
}

// AnalysisOverrides carries optional per-file overrides of the analysis
// thresholds. Pointer fields distinguish "not set" from an explicit
// zero; unset fields keep the documented defaults.
type AnalysisOverrides struct {
	MinPullRPM          *float64 `mapstructure:"min_pull_rpm"`
	MaxPullRPM          *float64 `mapstructure:"max_pull_rpm"`
	MinPullThrottlePct  *float64 `mapstructure:"min_pull_throttle_pct"`
	MinPullSamples      *int     `mapstructure:"min_pull_samples"`
	MinAccelerationMps2 *float64 `mapstructure:"min_acceleration_mps2"`

	RatioChangeThreshold  *float64 `mapstructure:"ratio_change_threshold"`
	GuardWindowSec        *float64 `mapstructure:"guard_window_sec"`
	MinSegmentDurationSec *float64 `mapstructure:"min_segment_duration_sec"`

	CurveBinWidthRPM *float64 `mapstructure:"curve_bin_width_rpm"`

	Safety SafetyOverrides `mapstructure:"safety"`
}

// SafetyOverrides mirrors the safety limit table with optional fields.
type SafetyOverrides struct {
	MaxCoolantTempC *float64 `mapstructure:"max_coolant_temp_c"`
	MaxIntakeTempC  *float64 `mapstructure:"max_intake_temp_c"`
	MinAFR          *float64 `mapstructure:"min_afr"`
	MaxAFR          *float64 `mapstructure:"max_afr"`
	MaxBoostKPa     *float64 `mapstructure:"max_boost_kpa"`
	MinThrottlePct  *float64 `mapstructure:"min_throttle_pct"`
}

func Load() (*Config, error) {
	errFactory := errors.New()

	fs := pflag.NewFlagSet("virtualdyno", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	configFlag := fs.String("config", "", "Path to the configuration file")
	logLevelFlag := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	databaseFlag := fs.String("database", "", "Path to the run database")
	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := os.Getenv(envConfigVar)
	if *configFlag != "" {
		configPath = *configFlag
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errFactory.Wrap(errors.ErrReadConfig, err)
		}
	}

	if *logLevelFlag != "" {
		v.Set("log_level", *logLevelFlag)
	}
	if *databaseFlag != "" {
		v.Set("database", *databaseFlag)
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadConfig, err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	errFactory := errors.New()

	switch c.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// AnalysisConfig applies the file overrides onto the documented
// defaults and validates the result.
func (c *Config) AnalysisConfig() (dyno.Config, error) {
	cfg := dyno.DefaultConfig()

	setF := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	setF(&cfg.MinPullRPM, c.Analysis.MinPullRPM)
	setF(&cfg.MaxPullRPM, c.Analysis.MaxPullRPM)
	setF(&cfg.MinPullThrottlePct, c.Analysis.MinPullThrottlePct)
	if c.Analysis.MinPullSamples != nil {
		cfg.MinPullSamples = *c.Analysis.MinPullSamples
	}
	setF(&cfg.MinAccelerationMps2, c.Analysis.MinAccelerationMps2)
	setF(&cfg.RatioChangeThreshold, c.Analysis.RatioChangeThreshold)
	setF(&cfg.GuardWindowSec, c.Analysis.GuardWindowSec)
	setF(&cfg.MinSegmentDurationSec, c.Analysis.MinSegmentDurationSec)
	setF(&cfg.CurveBinWidthRPM, c.Analysis.CurveBinWidthRPM)

	setF(&cfg.Safety.MaxCoolantTempC, c.Analysis.Safety.MaxCoolantTempC)
	setF(&cfg.Safety.MaxIntakeTempC, c.Analysis.Safety.MaxIntakeTempC)
	setF(&cfg.Safety.MinAFR, c.Analysis.Safety.MinAFR)
	setF(&cfg.Safety.MaxAFR, c.Analysis.Safety.MaxAFR)
	setF(&cfg.Safety.MaxBoostKPa, c.Analysis.Safety.MaxBoostKPa)
	setF(&cfg.Safety.MinThrottlePct, c.Analysis.Safety.MinThrottlePct)

	if err := cfg.Validate(); err != nil {
		return dyno.Config{}, err
	}

	return cfg, nil
}

// VehicleConstants returns the configured vehicle parameter set with
// physical defaults filled in, validated.
func (c *Config) VehicleConstants() (vehicle.Constants, error) {
	veh := c.Vehicle
	if veh.GravityMS2 == 0 {
		veh.GravityMS2 = defaultGravityMS2
	}
	if veh.AirDensityKgM3 == 0 {
		veh.AirDensityKgM3 = defaultAirDensityKgM3
	}

	if err := veh.Validate(); err != nil {
		return vehicle.Constants{}, err
	}

	return veh, nil
}

// StoreConfig derives the persistence configuration: enabled only when
// a database path is configured.
func (c *Config) StoreConfig() store.Config {
	cfg := store.DefaultConfig()
	if c.Database != "" {
		cfg.DBPath = c.Database
		cfg.Enabled = true
	}

	return cfg
}
