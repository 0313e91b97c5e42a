package flush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flushworks/flushd/pkg/config"
	"github.com/flushworks/flushd/pkg/mqtt"
	"github.com/flushworks/flushd/pkg/redis"
)

// ContextMessage is the payload published to automation/context/flush/{location}
// whenever the controller changes state
type ContextMessage struct {
	Location       string `json:"location"`
	State          string `json:"state"`
	FlushCount     int64  `json:"flushCount"`
	PresenceEvents int64  `json:"presenceEvents"`
	UpdatedAt      int64  `json:"updatedAt"` // unix milliseconds
}

// Agent drives the flush controller for one fixture location. It latches
// presence samples from MQTT, polls the controller at a fixed interval,
// publishes state changes, snapshots hot state to Redis and, when enabled,
// journals completed flushes to Postgres.
type Agent struct {
	mqtt   mqtt.Client
	redis  redis.Client
	cfg    *config.Config
	logger *slog.Logger

	latch      *PresenceLatch
	controller *Controller
	snapshots  *Snapshots
	journal    *Journal // nil when journaling is disabled

	ticker   *time.Ticker
	stopChan chan struct{}
}

// NewAgent creates a new flush agent with the given dependencies.
// The journal may be nil; episodes are then not recorded.
func NewAgent(mqttClient mqtt.Client, redisClient redis.Client, journal *Journal, cfg *config.Config, logger *slog.Logger) (*Agent, error) {
	actuator := NewValveActuator(mqttClient, cfg.Location, logger)

	controller, err := NewController(timingFromConfig(cfg), actuator)
	if err != nil {
		return nil, fmt.Errorf("failed to create flush controller: %w", err)
	}

	return &Agent{
		mqtt:       mqttClient,
		redis:      redisClient,
		cfg:        cfg,
		logger:     logger,
		latch:      NewPresenceLatch(logger),
		controller: controller,
		snapshots:  NewSnapshots(redisClient, cfg.Location, cfg.MaxSampleHistory, logger),
		journal:    journal,
		stopChan:   make(chan struct{}),
	}, nil
}

// timingFromConfig converts the configured second values into durations
func timingFromConfig(cfg *config.Config) Timing {
	return Timing{
		MinUse:     time.Duration(cfg.MinUseSeconds * float64(time.Second)),
		FlushDelay: time.Duration(cfg.FlushDelaySeconds * float64(time.Second)),
		Cooldown:   time.Duration(cfg.CooldownSeconds * float64(time.Second)),
	}
}

// Start starts the flush agent and begins polling the presence latch
func (a *Agent) Start(ctx context.Context) error {
	a.logger.Info("Starting flush agent",
		"service_name", a.cfg.ServiceName,
		"location", a.cfg.Location,
		"poll_interval_ms", a.cfg.PollIntervalMs,
		"min_use_seconds", a.cfg.MinUseSeconds,
		"flush_delay_seconds", a.cfg.FlushDelaySeconds,
		"cooldown_seconds", a.cfg.CooldownSeconds,
		"journal_enabled", a.journal != nil)

	// Connect to MQTT broker
	if err := a.mqtt.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// Verify Redis connection
	if err := a.redis.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}

	// Subscribe to presence samples for this location
	topic := mqtt.PresenceTopic(a.cfg.Location)
	if err := a.mqtt.Subscribe(topic, 0, a.handlePresenceMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	a.startPollLoop()

	a.logger.Info("Flush agent started and ready", "presence_topic", topic)

	// Block until context is cancelled
	<-ctx.Done()
	a.logger.Info("Flush agent stopping")

	return nil
}

// Stop gracefully stops the flush agent
func (a *Agent) Stop() error {
	a.logger.Info("Stopping flush agent")

	if a.ticker != nil {
		a.ticker.Stop()
	}
	close(a.stopChan)

	// Disconnect from MQTT
	a.mqtt.Disconnect()

	// Close Redis connection
	if err := a.redis.Close(); err != nil {
		a.logger.Error("Error closing Redis connection", "error", err)
		return err
	}

	a.logger.Info("Flush agent stopped")
	return nil
}

// handlePresenceMessage latches an incoming presence sample and records
// sensor metadata for staleness observers
func (a *Agent) handlePresenceMessage(msg mqtt.Message) {
	a.latch.HandleMessage(msg)

	present, reported := a.latch.LastReport()
	if err := a.snapshots.StoreSensorMeta(context.Background(), present, reported); err != nil {
		a.logger.Warn("Failed to store sensor metadata", "error", err)
	}
}

// startPollLoop starts the fixed-interval sampling loop that drives the
// controller. The ticker supplies the monotone timestamp sequence.
func (a *Agent) startPollLoop() {
	interval := time.Duration(a.cfg.PollIntervalMs) * time.Millisecond
	a.ticker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case now := <-a.ticker.C:
				a.pollOnce(context.Background(), now)
			case <-a.stopChan:
				return
			}
		}
	}()
}

// pollOnce feeds one sample into the controller and handles its side effects
func (a *Agent) pollOnce(ctx context.Context, now time.Time) {
	presence := a.latch.Presence(now)

	if err := a.snapshots.StoreSample(ctx, presence, now); err != nil {
		a.logger.Warn("Failed to store presence sample", "error", err)
	}

	before := a.controller.Metrics()
	prevState := a.controller.State()

	if err := a.controller.Update(now, presence); err != nil {
		if errors.Is(err, ErrTimestampRegression) {
			a.logger.Warn("Dropped out-of-order sample", "error", err)
			return
		}
		// The flush committed before the actuator error surfaced, so the
		// journal and context updates below still apply
		a.logger.Error("Valve actuation failed", "location", a.cfg.Location, "error", err)
	}

	after := a.controller.Metrics()
	state := a.controller.State()

	if after.FlushCount > before.FlushCount {
		a.logger.Info("Flush fired",
			"location", a.cfg.Location,
			"flush_count", after.FlushCount,
			"fired_at", now)

		if a.journal != nil {
			if err := a.journal.RecordFlush(ctx, a.cfg.Location, now, after); err != nil {
				a.logger.Error("Failed to record flush episode", "error", err)
			}
		}
	}

	if state != prevState {
		a.logger.Debug("Controller state changed",
			"location", a.cfg.Location,
			"from", prevState,
			"to", state)
		a.publishContext(state, after, now)
	}

	if err := a.snapshots.StoreState(ctx, state, after, now); err != nil {
		a.logger.Warn("Failed to store controller snapshot", "error", err)
	}
}

// publishContext announces a controller state change on the context topic
func (a *Agent) publishContext(state State, m Metrics, now time.Time) {
	msg := ContextMessage{
		Location:       a.cfg.Location,
		State:          string(state),
		FlushCount:     m.FlushCount,
		PresenceEvents: m.PresenceEvents,
		UpdatedAt:      now.UnixMilli(),
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		a.logger.Error("Failed to marshal context message", "error", err)
		return
	}

	topic := mqtt.FlushContextTopic(a.cfg.Location)
	if err := a.mqtt.Publish(topic, 0, false, payload); err != nil {
		a.logger.Error("Failed to publish flush context", "topic", topic, "error", err)
		return
	}

	a.logger.Debug("Published flush context", "topic", topic, "state", state)
}
