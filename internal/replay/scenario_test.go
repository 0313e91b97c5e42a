package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baselineYAML = `
name: restroom-baseline
description: One passer-by, one genuine use, one noise blip during cooldown
timing:
  min_use_seconds: 2.0
  flush_delay_seconds: 1.0
  cooldown_seconds: 8.0
duration_seconds: 25.0
step_seconds: 0.1
presence:
  - start: 1.0
    end: 1.6
  - start: 5.0
    end: 9.0
  - start: 12.0
    end: 12.3
expect:
  flush_count: 1
  presence_events: 2
  flush_times: [10.0]
`

func TestLoadScenarioFromBytes(t *testing.T) {
	s, err := LoadScenarioFromBytes([]byte(baselineYAML))
	require.NoError(t, err)

	assert.Equal(t, "restroom-baseline", s.Name)
	assert.Equal(t, 2.0, s.Timing.MinUseSeconds)
	assert.Equal(t, 25.0, s.Duration)
	assert.Equal(t, 0.1, s.Step)
	require.Len(t, s.Presence, 3)
	assert.Equal(t, Interval{Start: 5.0, End: 9.0}, s.Presence[1])
	require.NotNil(t, s.Expect)
	require.NotNil(t, s.Expect.FlushCount)
	assert.Equal(t, int64(1), *s.Expect.FlushCount)
}

func TestLoadScenarioRejectsMalformedYAML(t *testing.T) {
	_, err := LoadScenarioFromBytes([]byte("{not yaml"))
	require.Error(t, err)
}

func TestValidateScenario(t *testing.T) {
	valid := func() *Scenario {
		s, err := LoadScenarioFromBytes([]byte(baselineYAML))
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name   string
		mutate func(*Scenario)
	}{
		{"missing name", func(s *Scenario) { s.Name = "" }},
		{"negative timing", func(s *Scenario) { s.Timing.CooldownSeconds = -1 }},
		{"zero duration", func(s *Scenario) { s.Duration = 0 }},
		{"zero step", func(s *Scenario) { s.Step = 0 }},
		{"inverted interval", func(s *Scenario) { s.Presence[0] = Interval{Start: 2, End: 1} }},
		{"negative interval start", func(s *Scenario) { s.Presence[0].Start = -1 }},
		{"flush time outside run", func(s *Scenario) { s.Expect.FlushTimes = []float64{99} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			assert.Error(t, ValidateScenario(s))
		})
	}
}
