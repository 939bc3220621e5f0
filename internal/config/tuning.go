package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the navigation unit's
// tuning parameters. Pointer fields distinguish "absent from the file" from
// explicit zeros, so partial configs are safe.
type TuningConfig struct {
	// Motion params
	SpeedMPS        *float64 `json:"speed_mps,omitempty"`
	GyroDeadbandRad *float64 `json:"gyro_deadband_rad,omitempty"`

	// Navigation params
	TargetThresholdM *float64 `json:"target_threshold_m,omitempty"`
	ReachedHoldMs    *int64   `json:"reached_hold_ms,omitempty"`

	// Reporting params
	ReportIntervalMs *int64 `json:"report_interval_ms,omitempty"`

	// Loop params
	TickInterval *string `json:"tick_interval,omitempty"` // duration string like "5ms"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd subdirectories
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.SpeedMPS != nil {
		if *c.SpeedMPS <= 0 {
			return fmt.Errorf("speed_mps must be positive, got %f", *c.SpeedMPS)
		}
	}

	if c.GyroDeadbandRad != nil {
		if *c.GyroDeadbandRad < 0 {
			return fmt.Errorf("gyro_deadband_rad must be non-negative, got %f", *c.GyroDeadbandRad)
		}
	}

	if c.TargetThresholdM != nil {
		if *c.TargetThresholdM <= 0 {
			return fmt.Errorf("target_threshold_m must be positive, got %f", *c.TargetThresholdM)
		}
	}

	if c.ReachedHoldMs != nil {
		if *c.ReachedHoldMs < 0 {
			return fmt.Errorf("reached_hold_ms must be non-negative, got %d", *c.ReachedHoldMs)
		}
	}

	if c.ReportIntervalMs != nil {
		if *c.ReportIntervalMs <= 0 {
			return fmt.Errorf("report_interval_ms must be positive, got %d", *c.ReportIntervalMs)
		}
	}

	// Validate TickInterval can be parsed if set
	if c.TickInterval != nil && *c.TickInterval != "" {
		d, err := time.ParseDuration(*c.TickInterval)
		if err != nil {
			return fmt.Errorf("invalid tick_interval '%s': %w", *c.TickInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("tick_interval must be positive, got %s", d)
		}
	}

	return nil
}

// GetSpeedMPS returns the speed_mps value or the default.
// The unit dead-reckons at a constant forward speed.
func (c *TuningConfig) GetSpeedMPS() float64 {
	if c.SpeedMPS == nil {
		return 1.0 // default
	}
	return *c.SpeedMPS
}

// GetGyroDeadbandRad returns the gyro_deadband_rad value or the default.
// Rates at or below the deadband are treated as sensor noise.
func (c *TuningConfig) GetGyroDeadbandRad() float64 {
	if c.GyroDeadbandRad == nil {
		return 0.05 // default
	}
	return *c.GyroDeadbandRad
}

// GetTargetThresholdM returns the target_threshold_m value or the default.
func (c *TuningConfig) GetTargetThresholdM() float64 {
	if c.TargetThresholdM == nil {
		return 1.0 // default
	}
	return *c.TargetThresholdM
}

// GetReachedHoldMs returns the reached_hold_ms value or the default.
func (c *TuningConfig) GetReachedHoldMs() int64 {
	if c.ReachedHoldMs == nil {
		return 10000 // default: 10 seconds
	}
	return *c.ReachedHoldMs
}

// GetReportIntervalMs returns the report_interval_ms value or the default.
func (c *TuningConfig) GetReportIntervalMs() int64 {
	if c.ReportIntervalMs == nil {
		return 1000 // default
	}
	return *c.ReportIntervalMs
}

// GetTickInterval parses and returns the TickInterval as a time.Duration.
func (c *TuningConfig) GetTickInterval() time.Duration {
	if c.TickInterval == nil || *c.TickInterval == "" {
		return 5 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.TickInterval)
	if err != nil {
		return 5 * time.Millisecond // default on parse error
	}
	return d
}
