// Package replay drives the flush controller from scripted presence traces.
// Scenarios are described in YAML files and replayed at a fixed sampling
// step, which makes controller tuning reproducible without a live sensor.
package replay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario represents a complete replay scenario
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Timing      TimingSpec    `yaml:"timing"`
	Duration    float64       `yaml:"duration_seconds"`
	Step        float64       `yaml:"step_seconds"`
	Presence    []Interval    `yaml:"presence"`
	Expect      *Expectations `yaml:"expect,omitempty"`
}

// TimingSpec holds the controller timing in seconds
type TimingSpec struct {
	MinUseSeconds     float64 `yaml:"min_use_seconds"`
	FlushDelaySeconds float64 `yaml:"flush_delay_seconds"`
	CooldownSeconds   float64 `yaml:"cooldown_seconds"`
}

// Interval is a half-open [start, end) presence window in seconds from run start
type Interval struct {
	Start float64 `yaml:"start"`
	End   float64 `yaml:"end"`
}

// Expectations describes the expected outcome of a replay run
type Expectations struct {
	FlushCount     *int64    `yaml:"flush_count,omitempty"`
	PresenceEvents *int64    `yaml:"presence_events,omitempty"`
	FlushTimes     []float64 `yaml:"flush_times,omitempty"` // seconds from run start
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(filepath string) (*Scenario, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return LoadScenarioFromBytes(data)
}

// LoadScenarioFromBytes loads a scenario from byte data (useful for testing)
func LoadScenarioFromBytes(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if err := ValidateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("scenario validation failed: %w", err)
	}

	return &scenario, nil
}

// ValidateScenario performs validation checks on a loaded scenario
func ValidateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("scenario name is required")
	}

	if s.Timing.MinUseSeconds < 0 || s.Timing.FlushDelaySeconds < 0 || s.Timing.CooldownSeconds < 0 {
		return fmt.Errorf("timing values must be >= 0")
	}

	if s.Duration <= 0 {
		return fmt.Errorf("duration_seconds must be positive")
	}

	if s.Step <= 0 {
		return fmt.Errorf("step_seconds must be positive")
	}

	for i, iv := range s.Presence {
		if iv.Start < 0 {
			return fmt.Errorf("presence interval %d: start must be >= 0", i)
		}
		if iv.End <= iv.Start {
			return fmt.Errorf("presence interval %d: end must be after start", i)
		}
	}

	if s.Expect != nil {
		for i, ft := range s.Expect.FlushTimes {
			if ft < 0 || ft > s.Duration {
				return fmt.Errorf("expected flush time %d is outside the run: %v", i, ft)
			}
		}
	}

	return nil
}
