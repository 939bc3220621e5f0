package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadTuningConfig(t *testing.T) {
	// Create temporary directory
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	// Write test config with flat schema
	testJSON := `{
  "speed_mps": 0.5,
  "gyro_deadband_rad": 0.02,
  "target_threshold_m": 0.25,
  "reached_hold_ms": 5000,
  "report_interval_ms": 250,
  "tick_interval": "2ms"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	// Load the config
	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify values
	if cfg.SpeedMPS == nil || *cfg.SpeedMPS != 0.5 {
		t.Errorf("Expected SpeedMPS 0.5, got %v", cfg.SpeedMPS)
	}
	if cfg.GyroDeadbandRad == nil || *cfg.GyroDeadbandRad != 0.02 {
		t.Errorf("Expected GyroDeadbandRad 0.02, got %v", cfg.GyroDeadbandRad)
	}
	if cfg.TargetThresholdM == nil || *cfg.TargetThresholdM != 0.25 {
		t.Errorf("Expected TargetThresholdM 0.25, got %v", cfg.TargetThresholdM)
	}
	if cfg.ReachedHoldMs == nil || *cfg.ReachedHoldMs != 5000 {
		t.Errorf("Expected ReachedHoldMs 5000, got %v", cfg.ReachedHoldMs)
	}
	if cfg.ReportIntervalMs == nil || *cfg.ReportIntervalMs != 250 {
		t.Errorf("Expected ReportIntervalMs 250, got %v", cfg.ReportIntervalMs)
	}
	if cfg.TickInterval == nil || *cfg.TickInterval != "2ms" {
		t.Errorf("Expected TickInterval '2ms', got %v", cfg.TickInterval)
	}
}

func TestLoadTuningConfigMissing(t *testing.T) {
	_, err := LoadTuningConfig("/nonexistent/path/to/config.json")
	if err == nil {
		t.Error("Expected error when loading missing file, got nil")
	}
}

func TestLoadTuningConfigInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid_config.json")

	// Write invalid JSON
	invalidJSON := `{
  "speed_mps": "invalid"
`
	if err := os.WriteFile(configPath, []byte(invalidJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid JSON, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *TuningConfig
		wantErr bool
	}{
		{
			name:    "empty config is valid",
			cfg:     &TuningConfig{},
			wantErr: false,
		},
		{
			name: "valid explicit config",
			cfg: &TuningConfig{
				SpeedMPS:         ptrFloat64(1.0),
				GyroDeadbandRad:  ptrFloat64(0.05),
				TargetThresholdM: ptrFloat64(1.0),
				ReachedHoldMs:    ptrInt64(10000),
				ReportIntervalMs: ptrInt64(1000),
				TickInterval:     ptrString("5ms"),
			},
			wantErr: false,
		},
		{
			name: "zero speed",
			cfg: &TuningConfig{
				SpeedMPS: ptrFloat64(0),
			},
			wantErr: true,
		},
		{
			name: "negative deadband",
			cfg: &TuningConfig{
				GyroDeadbandRad: ptrFloat64(-0.01),
			},
			wantErr: true,
		},
		{
			name: "zero threshold",
			cfg: &TuningConfig{
				TargetThresholdM: ptrFloat64(0),
			},
			wantErr: true,
		},
		{
			name: "negative hold",
			cfg: &TuningConfig{
				ReachedHoldMs: ptrInt64(-1),
			},
			wantErr: true,
		},
		{
			name: "zero report interval",
			cfg: &TuningConfig{
				ReportIntervalMs: ptrInt64(0),
			},
			wantErr: true,
		},
		{
			name: "invalid tick interval",
			cfg: &TuningConfig{
				TickInterval: ptrString("invalid"),
			},
			wantErr: true,
		},
		{
			name: "negative tick interval",
			cfg: &TuningConfig{
				TickInterval: ptrString("-5ms"),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetTickInterval(t *testing.T) {
	tests := []struct {
		name string
		cfg  *TuningConfig
		want time.Duration
	}{
		{
			name: "2 milliseconds",
			cfg: &TuningConfig{
				TickInterval: ptrString("2ms"),
			},
			want: 2 * time.Millisecond,
		},
		{
			name: "1 second",
			cfg: &TuningConfig{
				TickInterval: ptrString("1s"),
			},
			want: 1 * time.Second,
		},
		{
			name: "nil pointer returns default",
			cfg:  &TuningConfig{},
			want: 5 * time.Millisecond,
		},
		{
			name: "empty string returns default",
			cfg: &TuningConfig{
				TickInterval: ptrString(""),
			},
			want: 5 * time.Millisecond,
		},
		{
			name: "invalid duration returns default",
			cfg: &TuningConfig{
				TickInterval: ptrString("invalid"),
			},
			want: 5 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cfg.GetTickInterval()
			if got != tt.want {
				t.Errorf("GetTickInterval() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadDefaultConfigFile(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	if cfg.GetSpeedMPS() != 1.0 {
		t.Errorf("Expected 1.0, got %f", cfg.GetSpeedMPS())
	}
	if cfg.GetGyroDeadbandRad() != 0.05 {
		t.Errorf("Expected 0.05, got %f", cfg.GetGyroDeadbandRad())
	}
	if cfg.GetReachedHoldMs() != 10000 {
		t.Errorf("Expected 10000, got %d", cfg.GetReachedHoldMs())
	}
}

func TestLoadTuningConfigPartial(t *testing.T) {
	// Partial config: only override speed; everything else should keep defaults.
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "partial.json")

	partialJSON := `{
  "speed_mps": 2.0
}`
	if err := os.WriteFile(configPath, []byte(partialJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load partial config: %v", err)
	}

	// Overridden value
	if cfg.GetSpeedMPS() != 2.0 {
		t.Errorf("Expected overridden SpeedMPS 2.0, got %f", cfg.GetSpeedMPS())
	}
	// Default values should be preserved
	if cfg.GetGyroDeadbandRad() != 0.05 {
		t.Errorf("Expected default GyroDeadbandRad 0.05, got %f", cfg.GetGyroDeadbandRad())
	}
	if cfg.GetTargetThresholdM() != 1.0 {
		t.Errorf("Expected default TargetThresholdM 1.0, got %f", cfg.GetTargetThresholdM())
	}
	if cfg.GetReachedHoldMs() != 10000 {
		t.Errorf("Expected default ReachedHoldMs 10000, got %d", cfg.GetReachedHoldMs())
	}
	if cfg.GetReportIntervalMs() != 1000 {
		t.Errorf("Expected default ReportIntervalMs 1000, got %d", cfg.GetReportIntervalMs())
	}
	if cfg.GetTickInterval() != 5*time.Millisecond {
		t.Errorf("Expected default TickInterval 5ms, got %v", cfg.GetTickInterval())
	}
}

func TestLoadTuningConfigRejectsNonJSON(t *testing.T) {
	_, err := LoadTuningConfig("/some/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-.json extension, got nil")
	}
}

func TestLoadTuningConfigRejectsLargeFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "large.json")

	// Create a file larger than 1MB
	largeData := make([]byte, 2*1024*1024) // 2MB
	if err := os.WriteFile(configPath, largeData, 0644); err != nil {
		t.Fatalf("Failed to write large file: %v", err)
	}

	_, err := LoadTuningConfig(configPath)
	if err == nil {
		t.Error("Expected error for file size > 1MB, got nil")
	}
}

func TestGetterDefaults(t *testing.T) {
	// Test that getter methods return expected defaults when pointers are nil
	cfg := &TuningConfig{} // empty config

	if cfg.GetSpeedMPS() != 1.0 {
		t.Errorf("GetSpeedMPS() = %f, want 1.0", cfg.GetSpeedMPS())
	}
	if cfg.GetGyroDeadbandRad() != 0.05 {
		t.Errorf("GetGyroDeadbandRad() = %f, want 0.05", cfg.GetGyroDeadbandRad())
	}
	if cfg.GetTargetThresholdM() != 1.0 {
		t.Errorf("GetTargetThresholdM() = %f, want 1.0", cfg.GetTargetThresholdM())
	}
	if cfg.GetReachedHoldMs() != 10000 {
		t.Errorf("GetReachedHoldMs() = %d, want 10000", cfg.GetReachedHoldMs())
	}
	if cfg.GetReportIntervalMs() != 1000 {
		t.Errorf("GetReportIntervalMs() = %d, want 1000", cfg.GetReportIntervalMs())
	}
	if cfg.GetTickInterval() != 5*time.Millisecond {
		t.Errorf("GetTickInterval() = %v, want 5ms", cfg.GetTickInterval())
	}
}
