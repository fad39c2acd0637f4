// Package config describes a station-keeping session and loads it from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tuomaz/stationkeeper/internal/control"
	"github.com/tuomaz/stationkeeper/internal/spacecraft"
	"github.com/tuomaz/stationkeeper/internal/vecmath"
)

// Config is the parsed, immutable configuration of one session.
type Config struct {
	TickRateHz           float64         `yaml:"tick_rate_hz"`
	PIDGains             control.Gains   `yaml:"pid_gains"`
	IntegralClampBound   float64         `yaml:"integral_clamp_bound"`
	DerivativeEpsilon    float64         `yaml:"derivative_epsilon"`
	OnCourseThreshold    float64         `yaml:"on_course_threshold"`
	MaxThrustMagnitude   float64         `yaml:"max_thrust_magnitude"`
	DriftAcceleration    vecmath.Vector3 `yaml:"drift_acceleration"`
	SensorNoiseMagnitude float64         `yaml:"sensor_noise_magnitude"`
	SensorNoiseModel     string          `yaml:"sensor_noise_model"`
	Seed                 *uint64         `yaml:"seed,omitempty"`

	TelemetryBufferCapacity int  `yaml:"telemetry_buffer_capacity"`
	EventBufferCapacity     int  `yaml:"event_buffer_capacity"`
	PlotWindow              int  `yaml:"plot_window"`
	RecordHistory           bool `yaml:"record_history"`

	SatelliteMass   float64         `yaml:"satellite_mass"`
	InitialPosition vecmath.Vector3 `yaml:"initial_position"`
	InitialVelocity vecmath.Vector3 `yaml:"initial_velocity"`
	TargetPosition  vecmath.Vector3 `yaml:"target_position"`
}

// Default returns the mission defaults: the satellite starts on station at
// (100, 200, 300) and drifts slowly along x.
func Default() Config {
	target := vecmath.New(100, 200, 300)
	return Config{
		TickRateHz:              1,
		PIDGains:                control.Gains{Kp: 0.5, Ki: 0.01, Kd: 0.1},
		IntegralClampBound:      50,
		DerivativeEpsilon:       control.DefaultDerivativeEpsilon,
		OnCourseThreshold:       0.1,
		MaxThrustMagnitude:      5,
		DriftAcceleration:       vecmath.New(0.02, -0.01, 0.005),
		SensorNoiseMagnitude:    0.01,
		SensorNoiseModel:        string(spacecraft.NoiseUniform),
		TelemetryBufferCapacity: 1000,
		EventBufferCapacity:     500,
		PlotWindow:              100,
		RecordHistory:           true,
		SatelliteMass:           1,
		InitialPosition:         target,
		TargetPosition:          target,
	}
}

// ValidationError reports an unusable configuration value.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// Validate checks every field and returns all problems joined together.
func (c Config) Validate() error {
	var errs []error
	fail := func(field, reason string) {
		errs = append(errs, &ValidationError{Field: field, Reason: reason})
	}
	positive := func(field string, v float64) {
		if !(v > 0) || !vecmath.IsFinite(v) {
			fail(field, "must be positive")
		}
	}
	nonNegative := func(field string, v float64) {
		if !(v >= 0) || !vecmath.IsFinite(v) {
			fail(field, "must not be negative")
		}
	}
	finite := func(field string, v vecmath.Vector3) {
		if !v.IsFinite() {
			fail(field, "must be finite")
		}
	}

	positive("tick_rate_hz", c.TickRateHz)
	positive("satellite_mass", c.SatelliteMass)
	if !vecmath.New(c.PIDGains.Kp, c.PIDGains.Ki, c.PIDGains.Kd).IsFinite() {
		fail("pid_gains", "must be finite")
	}
	nonNegative("integral_clamp_bound", c.IntegralClampBound)
	nonNegative("derivative_epsilon", c.DerivativeEpsilon)
	nonNegative("on_course_threshold", c.OnCourseThreshold)
	nonNegative("max_thrust_magnitude", c.MaxThrustMagnitude)
	nonNegative("sensor_noise_magnitude", c.SensorNoiseMagnitude)
	if _, err := spacecraft.ParseNoiseModel(c.SensorNoiseModel); err != nil {
		fail("sensor_noise_model", err.Error())
	}
	if c.TelemetryBufferCapacity < 0 {
		fail("telemetry_buffer_capacity", "must not be negative")
	}
	if c.EventBufferCapacity < 0 {
		fail("event_buffer_capacity", "must not be negative")
	}
	if c.PlotWindow < 0 {
		fail("plot_window", "must not be negative")
	}
	finite("drift_acceleration", c.DriftAcceleration)
	finite("initial_position", c.InitialPosition)
	finite("initial_velocity", c.InitialVelocity)
	finite("target_position", c.TargetPosition)

	return errors.Join(errs...)
}

// Load reads a YAML file on top of Default. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
