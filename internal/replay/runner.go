package replay

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/flushworks/flushd/internal/flush"
)

// Result summarizes one replay run
type Result struct {
	Scenario   *Scenario
	FlushTimes []time.Duration // offsets from run start
	Metrics    flush.Metrics
	FinalState flush.State
	Failures   []string
}

// Passed reports whether every expectation held
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// recordingActuator captures firing offsets instead of touching hardware
type recordingActuator struct {
	base  time.Time
	fired []time.Duration
}

func (a *recordingActuator) Flush(now time.Time) error {
	a.fired = append(a.fired, now.Sub(a.base))
	return nil
}

// Run replays a scenario against a fresh controller at the scenario's
// sampling step and checks the result against its expectations.
func Run(s *Scenario, logger *slog.Logger) (*Result, error) {
	timing := flush.Timing{
		MinUse:     time.Duration(s.Timing.MinUseSeconds * float64(time.Second)),
		FlushDelay: time.Duration(s.Timing.FlushDelaySeconds * float64(time.Second)),
		Cooldown:   time.Duration(s.Timing.CooldownSeconds * float64(time.Second)),
	}

	base := time.Unix(0, 0).UTC()
	actuator := &recordingActuator{base: base}

	controller, err := flush.NewController(timing, actuator)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller: %w", err)
	}

	sensor := NewScriptedSensor(base, s.Presence)
	step := time.Duration(s.Step * float64(time.Second))
	total := time.Duration(s.Duration * float64(time.Second))

	logger.Info("Replaying scenario",
		"name", s.Name,
		"duration_seconds", s.Duration,
		"step_seconds", s.Step,
		"presence_intervals", len(s.Presence))

	// Duration arithmetic keeps the sample grid exact; accumulating floats
	// would drift over long runs
	for off := time.Duration(0); off <= total; off += step {
		now := base.Add(off)
		if err := controller.Update(now, sensor.Presence(now)); err != nil {
			return nil, fmt.Errorf("replay failed at %v: %w", off, err)
		}
	}

	result := &Result{
		Scenario:   s,
		FlushTimes: actuator.fired,
		Metrics:    controller.Metrics(),
		FinalState: controller.State(),
	}

	for _, ft := range result.FlushTimes {
		logger.Info("Flush fired", "at_seconds", ft.Seconds())
	}

	checkExpectations(result, step)

	return result, nil
}

// checkExpectations fills in Result.Failures from the scenario expectations
func checkExpectations(r *Result, step time.Duration) {
	expect := r.Scenario.Expect
	if expect == nil {
		return
	}

	if expect.FlushCount != nil && r.Metrics.FlushCount != *expect.FlushCount {
		r.Failures = append(r.Failures,
			fmt.Sprintf("expected %d flushes, got %d", *expect.FlushCount, r.Metrics.FlushCount))
	}

	if expect.PresenceEvents != nil && r.Metrics.PresenceEvents != *expect.PresenceEvents {
		r.Failures = append(r.Failures,
			fmt.Sprintf("expected %d presence events, got %d", *expect.PresenceEvents, r.Metrics.PresenceEvents))
	}

	if len(expect.FlushTimes) > 0 {
		if len(r.FlushTimes) != len(expect.FlushTimes) {
			r.Failures = append(r.Failures,
				fmt.Sprintf("expected %d flush times, got %d", len(expect.FlushTimes), len(r.FlushTimes)))
			return
		}
		for i, want := range expect.FlushTimes {
			expected := time.Duration(want * float64(time.Second))
			if !withinStep(r.FlushTimes[i], expected, step) {
				r.Failures = append(r.Failures,
					fmt.Sprintf("flush %d fired at %v, expected %v", i, r.FlushTimes[i], expected))
			}
		}
	}
}

// withinStep allows a firing to land anywhere on the sample grid cell that
// contains the expected instant
func withinStep(actual, expected, step time.Duration) bool {
	delta := actual - expected
	return delta > -time.Millisecond && delta < step
}
