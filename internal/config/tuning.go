package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Default tuning values. The defaults file mirrors these so a partial JSON file
// always resolves to a complete configuration through the Get* methods.
const (
	DefaultFilterWindow     = 10
	DefaultTriggerLowerCM   = 1.0
	DefaultTriggerUpperCM   = 10.0
	DefaultServoMovingTime  = 700 * time.Millisecond
	DefaultDecisionInterval = 100 * time.Millisecond
	DefaultSensingInterval  = 10 * time.Millisecond
	DefaultPitchPWMMin      = 1700
	DefaultPitchPWMMax      = 1850
	DefaultYawPWMMin        = 1000
	DefaultYawPWMMax        = 2000
)

// TuningConfig holds the filter, trigger and actuator parameters. Every field
// is optional; unset fields fall back to the defaults above.
type TuningConfig struct {
	// Median filter
	FilterWindow *int `json:"filter_window,omitempty"`

	// Trigger window: a change fires when lower < |distance - baseline| < upper.
	TriggerLowerCM *float64 `json:"trigger_lower_cm,omitempty"`
	TriggerUpperCM *float64 `json:"trigger_upper_cm,omitempty"`

	// Loop timing, as duration strings like "700ms"
	ServoMovingTime  *string `json:"servo_moving_time,omitempty"`
	DecisionInterval *string `json:"decision_interval,omitempty"`
	SensingInterval  *string `json:"sensing_interval,omitempty"`

	// Servo pulse-width limits in microseconds
	PitchPWMMin *int `json:"pitch_pwm_min,omitempty"`
	PitchPWMMax *int `json:"pitch_pwm_max,omitempty"`
	YawPWMMin   *int `json:"yaw_pwm_min,omitempty"`
	YawPWMMax   *int `json:"yaw_pwm_max,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated from
// the package defaults.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		FilterWindow:     ptrInt(DefaultFilterWindow),
		TriggerLowerCM:   ptrFloat64(DefaultTriggerLowerCM),
		TriggerUpperCM:   ptrFloat64(DefaultTriggerUpperCM),
		ServoMovingTime:  ptrString(DefaultServoMovingTime.String()),
		DecisionInterval: ptrString(DefaultDecisionInterval.String()),
		SensingInterval:  ptrString(DefaultSensingInterval.String()),
		PitchPWMMin:      ptrInt(DefaultPitchPWMMin),
		PitchPWMMax:      ptrInt(DefaultPitchPWMMax),
		YawPWMMin:        ptrInt(DefaultYawPWMMin),
		YawPWMMax:        ptrInt(DefaultYawPWMMax),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.FilterWindow != nil && *c.FilterWindow < 1 {
		return fmt.Errorf("filter_window must be at least 1, got %d", *c.FilterWindow)
	}

	if c.TriggerLowerCM != nil && *c.TriggerLowerCM < 0 {
		return fmt.Errorf("trigger_lower_cm must be non-negative, got %f", *c.TriggerLowerCM)
	}
	if lower, upper := c.GetTriggerLowerCM(), c.GetTriggerUpperCM(); upper <= lower {
		return fmt.Errorf("trigger_upper_cm (%f) must be greater than trigger_lower_cm (%f)", upper, lower)
	}

	for name, v := range map[string]*string{
		"servo_moving_time": c.ServoMovingTime,
		"decision_interval": c.DecisionInterval,
		"sensing_interval":  c.SensingInterval,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if lo, hi := c.GetPitchPWMMin(), c.GetPitchPWMMax(); lo > hi {
		return fmt.Errorf("pitch_pwm_min (%d) exceeds pitch_pwm_max (%d)", lo, hi)
	}
	if lo, hi := c.GetYawPWMMin(), c.GetYawPWMMax(); lo > hi {
		return fmt.Errorf("yaw_pwm_min (%d) exceeds yaw_pwm_max (%d)", lo, hi)
	}

	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetFilterWindow returns the filter_window value or the default.
func (c *TuningConfig) GetFilterWindow() int {
	if c.FilterWindow == nil {
		return DefaultFilterWindow
	}
	return *c.FilterWindow
}

// GetTriggerLowerCM returns the trigger_lower_cm value or the default.
func (c *TuningConfig) GetTriggerLowerCM() float64 {
	if c.TriggerLowerCM == nil {
		return DefaultTriggerLowerCM
	}
	return *c.TriggerLowerCM
}

// GetTriggerUpperCM returns the trigger_upper_cm value or the default.
func (c *TuningConfig) GetTriggerUpperCM() float64 {
	if c.TriggerUpperCM == nil {
		return DefaultTriggerUpperCM
	}
	return *c.TriggerUpperCM
}

// GetServoMovingTime parses and returns the cool-down after a trigger.
func (c *TuningConfig) GetServoMovingTime() time.Duration {
	return durationOr(c.ServoMovingTime, DefaultServoMovingTime)
}

// GetDecisionInterval parses and returns the decision loop period.
func (c *TuningConfig) GetDecisionInterval() time.Duration {
	return durationOr(c.DecisionInterval, DefaultDecisionInterval)
}

// GetSensingInterval parses and returns the sensing loop period.
func (c *TuningConfig) GetSensingInterval() time.Duration {
	return durationOr(c.SensingInterval, DefaultSensingInterval)
}

// GetPitchPWMMin returns the pitch_pwm_min value or the default.
func (c *TuningConfig) GetPitchPWMMin() int {
	if c.PitchPWMMin == nil {
		return DefaultPitchPWMMin
	}
	return *c.PitchPWMMin
}

// GetPitchPWMMax returns the pitch_pwm_max value or the default.
func (c *TuningConfig) GetPitchPWMMax() int {
	if c.PitchPWMMax == nil {
		return DefaultPitchPWMMax
	}
	return *c.PitchPWMMax
}

// GetYawPWMMin returns the yaw_pwm_min value or the default.
func (c *TuningConfig) GetYawPWMMin() int {
	if c.YawPWMMin == nil {
		return DefaultYawPWMMin
	}
	return *c.YawPWMMin
}

// GetYawPWMMax returns the yaw_pwm_max value or the default.
func (c *TuningConfig) GetYawPWMMax() int {
	if c.YawPWMMax == nil {
		return DefaultYawPWMMax
	}
	return *c.YawPWMMax
}
