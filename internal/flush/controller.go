package flush

import (
	"errors"
	"fmt"
	"time"
)

// ErrTimestampRegression is returned by Update when a sample's timestamp is
// earlier than the previous one. The sample is rejected and the controller
// is left untouched.
var ErrTimestampRegression = errors.New("timestamp regression")

// Controller converts a noisy sampled presence signal into debounced,
// rate-limited flush actuations. It is a cooperative state machine: progress
// happens exclusively inside Update, which must be called serially by a
// single caller with non-decreasing timestamps. All elapsed-time decisions
// compare the supplied timestamp against a stored reference; the controller
// never reads the wall clock.
type Controller struct {
	timing   Timing
	actuator Actuator

	state      State
	stateEnter time.Time

	// presenceStart is the onset of the presence run being accumulated
	// toward MinUse. onsetTracked marks it valid, so the zero time is an
	// ordinary timestamp; an onset is tracked exactly while state is
	// StatePresenceDetected.
	presenceStart time.Time
	onsetTracked  bool

	lastUpdate time.Time

	metrics Metrics
}

// NewController creates a controller in the idle state. The actuator is
// required; it is invoked exactly once per firing, from inside Update.
func NewController(timing Timing, actuator Actuator) (*Controller, error) {
	if err := timing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flush timing: %w", err)
	}
	if actuator == nil {
		return nil, errors.New("actuator is required")
	}
	return &Controller{
		timing:   timing,
		actuator: actuator,
		state:    StateIdle,
	}, nil
}

// State returns the current state. Because firing and advancing to cooldown
// happen within one Update call, StateFlushing is never observed here.
func (c *Controller) State() State {
	return c.state
}

// Metrics returns a copy of the controller's counters
func (c *Controller) Metrics() Metrics {
	return c.metrics
}

// Update advances the state machine with one (timestamp, presence) sample.
// Timestamps must be non-decreasing; a regressing sample is rejected with
// ErrTimestampRegression and no state change. All threshold comparisons are
// inclusive: a debounce fires exactly when its duration is reached.
//
// A returned error other than ErrTimestampRegression comes from the actuator
// and is surfaced unchanged. The flush counter and the transition to
// cooldown have already committed by then; the controller never retries.
func (c *Controller) Update(now time.Time, presence bool) error {
	if now.Before(c.lastUpdate) {
		return fmt.Errorf("%w: sample at %v is before %v", ErrTimestampRegression, now, c.lastUpdate)
	}
	c.lastUpdate = now

	c.checkOnsetInvariant()

	switch c.state {
	case StateIdle:
		if presence {
			c.metrics.PresenceEvents++
			c.presenceStart = now
			c.onsetTracked = true
			c.enter(StatePresenceDetected, now)
		}

	case StatePresenceDetected:
		if !presence {
			// Gone before the threshold: passer-by or sensor noise
			c.clearOnset()
			c.enter(StateIdle, now)
		} else if now.Sub(c.presenceStart) >= c.timing.MinUse {
			c.clearOnset()
			c.enter(StateInUse, now)
		}

	case StateInUse:
		if !presence {
			c.enter(StateWaitToFlush, now)
		}

	case StateWaitToFlush:
		if presence {
			// The user came back: cancel the pending flush. Use was
			// already confirmed, so the minimum-use check is not repeated.
			c.enter(StateInUse, now)
		} else if now.Sub(c.stateEnter) >= c.timing.FlushDelay {
			c.enter(StateFlushing, now)
			return c.fire(now)
		}

	case StateFlushing:
		// Not reachable between calls since fire advances to cooldown
		// within the same Update, but the dispatch stays total.
		return c.fire(now)

	case StateCooldown:
		if now.Sub(c.stateEnter) >= c.timing.Cooldown {
			c.enter(StateIdle, now)
		}

	default:
		panic(fmt.Sprintf("flush: unknown state %q", c.state))
	}

	return nil
}

// enter moves to a new state. The entry time is the single timing reference
// for all elapsed-time decisions made in that state.
func (c *Controller) enter(state State, now time.Time) {
	c.state = state
	c.stateEnter = now
}

// fire performs the single actuator invocation of the flushing state and
// advances to cooldown within the same Update call. The counter increment
// and the transition commit regardless of the actuator outcome; the error,
// if any, is returned unchanged to the Update caller.
func (c *Controller) fire(now time.Time) error {
	err := c.actuator.Flush(now)
	c.metrics.FlushCount++
	c.enter(StateCooldown, now)
	return err
}

// clearOnset drops the tracked presence onset on leaving PRESENCE_DETECTED
func (c *Controller) clearOnset() {
	c.presenceStart = time.Time{}
	c.onsetTracked = false
}

// checkOnsetInvariant enforces that a presence onset is recorded exactly
// while in PRESENCE_DETECTED. A violation is an internal defect that would
// make the elapsed-time arithmetic undefined, so it fails loudly instead of
// continuing.
func (c *Controller) checkOnsetInvariant() {
	tracking := c.onsetTracked
	if c.state == StatePresenceDetected && !tracking {
		panic("flush: no presence onset recorded in PRESENCE_DETECTED")
	}
	if c.state != StatePresenceDetected && tracking {
		panic(fmt.Sprintf("flush: stale presence onset %v in state %s", c.presenceStart, c.state))
	}
}
