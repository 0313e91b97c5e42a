package flush

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flushworks/flushd/pkg/config"
)

func newTestAgent(t *testing.T) (*Agent, *fakeMQTT, *fakeRedis, *fakePostgres) {
	t.Helper()

	cfg := config.NewConfig()
	cfg.Location = "restroom"

	mqttClient := newFakeMQTT()
	redisClient := newFakeRedis()
	db := &fakePostgres{}
	journal := NewJournal(db, testLogger())

	agent, err := NewAgent(mqttClient, redisClient, journal, cfg, testLogger())
	require.NoError(t, err)

	return agent, mqttClient, redisClient, db
}

// latchPresence feeds a presence message straight into the agent's handler
func latchPresence(agent *Agent, state string) {
	agent.handlePresenceMessage(&fakeMessage{
		topic:   "automation/raw/presence/restroom",
		payload: []byte(`{"state":"` + state + `"}`),
	})
}

func TestAgentPollDrivesControllerToFlush(t *testing.T) {
	agent, mqttClient, redisClient, db := newTestAgent(t)
	ctx := context.Background()

	// Default timing: 2s minimum use, 1s flush delay, 8s cooldown
	latchPresence(agent, "on")
	agent.pollOnce(ctx, at(0))
	agent.pollOnce(ctx, at(2000))
	assert.Equal(t, StateInUse, agent.controller.State())

	latchPresence(agent, "off")
	agent.pollOnce(ctx, at(3000))
	assert.Equal(t, StateWaitToFlush, agent.controller.State())

	agent.pollOnce(ctx, at(4000))
	assert.Equal(t, StateCooldown, agent.controller.State())

	// Exactly one valve command went out
	commands := mqttClient.publishedTo("automation/command/valve/restroom")
	require.Len(t, commands, 1)
	var cmd ValveCommand
	require.NoError(t, json.Unmarshal(commands[0].payload, &cmd))
	assert.Equal(t, at(4000).UnixMilli(), cmd.FiredAt)

	// Each state change was announced on the context topic
	contexts := mqttClient.publishedTo("automation/context/flush/restroom")
	require.Len(t, contexts, 4)
	var last ContextMessage
	require.NoError(t, json.Unmarshal(contexts[len(contexts)-1].payload, &last))
	assert.Equal(t, "COOLDOWN", last.State)
	assert.Equal(t, int64(1), last.FlushCount)

	// The flush was journaled
	require.Len(t, db.executed, 1)
	assert.Equal(t, "restroom", db.executed[0].args[1])

	// The controller snapshot is queryable from Redis
	fields, err := redisClient.HGetAll(ctx, "state:flush:restroom")
	require.NoError(t, err)
	assert.Equal(t, "COOLDOWN", fields["state"])
	assert.Equal(t, "1", fields["flushCount"])
}

func TestAgentRecordsEverySample(t *testing.T) {
	agent, _, redisClient, _ := newTestAgent(t)
	ctx := context.Background()

	agent.pollOnce(ctx, at(0))
	latchPresence(agent, "on")
	agent.pollOnce(ctx, at(100))
	agent.pollOnce(ctx, at(200))

	count, err := redisClient.ZCard(ctx, "samples:presence:restroom")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestAgentPublishesContextOnlyOnStateChange(t *testing.T) {
	agent, mqttClient, _, _ := newTestAgent(t)
	ctx := context.Background()

	// An idle controller polling an absent latch never changes state
	for ms := 0; ms <= 1000; ms += 100 {
		agent.pollOnce(ctx, at(ms))
	}
	assert.Empty(t, mqttClient.publishedTo("automation/context/flush/restroom"))

	latchPresence(agent, "on")
	agent.pollOnce(ctx, at(1100))
	assert.Len(t, mqttClient.publishedTo("automation/context/flush/restroom"), 1)
}

func TestAgentWorksWithoutJournal(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Location = "restroom"

	mqttClient := newFakeMQTT()
	agent, err := NewAgent(mqttClient, newFakeRedis(), nil, cfg, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	latchPresence(agent, "on")
	agent.pollOnce(ctx, at(0))
	agent.pollOnce(ctx, at(2000))
	latchPresence(agent, "off")
	agent.pollOnce(ctx, at(3000))
	agent.pollOnce(ctx, at(4000))

	assert.Len(t, mqttClient.publishedTo("automation/command/valve/restroom"), 1)
}

func TestAgentRejectsInvalidTiming(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Location = "restroom"
	cfg.CooldownSeconds = -1

	_, err := NewAgent(newFakeMQTT(), newFakeRedis(), nil, cfg, testLogger())
	require.Error(t, err)
}

func TestTimingFromConfig(t *testing.T) {
	cfg := config.NewConfig()
	cfg.MinUseSeconds = 2.5
	cfg.FlushDelaySeconds = 0.1
	cfg.CooldownSeconds = 30

	timing := timingFromConfig(cfg)
	assert.Equal(t, 2500*time.Millisecond, timing.MinUse)
	assert.Equal(t, 100*time.Millisecond, timing.FlushDelay)
	assert.Equal(t, 30*time.Second, timing.Cooldown)
}
