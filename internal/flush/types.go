// Package flush contains the presence-debounced trigger logic for a single
// fixture location, plus the agent plumbing that feeds it from MQTT.
// The controller itself is pure: it never reads the wall clock, never blocks,
// and advances only inside Update calls driven by an external polling loop.
package flush

import (
	"fmt"
	"time"
)

// State represents the controller's position in the flush cycle
type State string

const (
	// StateIdle means no presence is being tracked
	StateIdle State = "IDLE"
	// StatePresenceDetected means presence was seen but has not yet lasted
	// long enough to count as genuine use
	StatePresenceDetected State = "PRESENCE_DETECTED"
	// StateInUse means continuous presence passed the minimum use threshold
	StateInUse State = "IN_USE"
	// StateWaitToFlush means the user left and the exit debounce is running
	StateWaitToFlush State = "WAIT_TO_FLUSH"
	// StateFlushing is the transient state in which the valve fires; it is
	// entered and left within a single Update call
	StateFlushing State = "FLUSHING"
	// StateCooldown blocks re-triggering for a minimum interval after a flush
	StateCooldown State = "COOLDOWN"
)

// Timing holds the duration parameters for the flush state machine.
// A zero value degenerates the corresponding debounce to "immediate".
type Timing struct {
	// MinUse is the continuous presence required before a detection is
	// promoted to confirmed use. Shorter visits are treated as passers-by.
	MinUse time.Duration

	// FlushDelay is the absence required after use before the valve fires.
	// Momentary gaps shorter than this do not trigger.
	FlushDelay time.Duration

	// Cooldown is the minimum interval between two firings.
	Cooldown time.Duration
}

// Validate checks that all durations are non-negative
func (t Timing) Validate() error {
	if t.MinUse < 0 {
		return fmt.Errorf("minimum use duration must be >= 0, got %v", t.MinUse)
	}
	if t.FlushDelay < 0 {
		return fmt.Errorf("flush delay must be >= 0, got %v", t.FlushDelay)
	}
	if t.Cooldown < 0 {
		return fmt.Errorf("cooldown must be >= 0, got %v", t.Cooldown)
	}
	return nil
}

// Metrics holds the controller's monotonic counters. They are mutated only
// by the controller and read by observers as a value copy.
type Metrics struct {
	// FlushCount is the number of completed valve actuations
	FlushCount int64

	// PresenceEvents counts distinct presence onsets (IDLE to
	// PRESENCE_DETECTED), including those later rejected as noise
	PresenceEvents int64
}

// Sensor supplies a boolean presence sample for a given timestamp.
// Implementations must be callable repeatedly and idempotently for the same
// timestamp; the controller does not require any memory of prior calls.
type Sensor interface {
	Presence(now time.Time) bool
}

// Actuator performs the physical flush action for a given timestamp.
// It is invoked exactly once per firing and must complete, including any
// error, before the controller's Update returns.
type Actuator interface {
	Flush(now time.Time) error
}
