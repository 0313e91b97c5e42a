package replay

import "time"

// ScriptedSensor reports presence from a fixed set of [start, end) windows
// relative to a base instant. It implements the same contract as a live
// sensor: idempotent reads, no memory of prior calls.
type ScriptedSensor struct {
	base      time.Time
	intervals []Interval
}

// NewScriptedSensor creates a sensor whose presence windows are measured in
// seconds from base
func NewScriptedSensor(base time.Time, intervals []Interval) *ScriptedSensor {
	return &ScriptedSensor{
		base:      base,
		intervals: intervals,
	}
}

// Presence reports whether now falls inside any scripted window
func (s *ScriptedSensor) Presence(now time.Time) bool {
	elapsed := now.Sub(s.base).Seconds()
	for _, iv := range s.intervals {
		if elapsed >= iv.Start && elapsed < iv.End {
			return true
		}
	}
	return false
}
