package flush

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flushworks/flushd/pkg/mqtt"
)

// ValveCommand is the payload published to automation/command/valve/{location}
type ValveCommand struct {
	CommandID string `json:"commandId"`
	Location  string `json:"location"`
	Action    string `json:"action"`
	FiredAt   int64  `json:"firedAt"` // unix milliseconds
}

// ValveActuator performs the flush action by publishing a valve command for
// one fixture location. It makes no retry attempt; a failed publish is
// surfaced to the caller.
type ValveActuator struct {
	mqtt     mqtt.Client
	location string
	logger   *slog.Logger
}

// NewValveActuator creates an actuator for the given fixture location
func NewValveActuator(mqttClient mqtt.Client, location string, logger *slog.Logger) *ValveActuator {
	return &ValveActuator{
		mqtt:     mqttClient,
		location: location,
		logger:   logger,
	}
}

// Flush publishes a single flush command stamped with the controller's
// timestamp. Commands use QoS 1 so the broker retries delivery, not us.
func (a *ValveActuator) Flush(now time.Time) error {
	cmd := ValveCommand{
		CommandID: uuid.NewString(),
		Location:  a.location,
		Action:    "flush",
		FiredAt:   now.UnixMilli(),
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal valve command: %w", err)
	}

	if err := a.mqtt.Publish(mqtt.ValveCommandTopic(a.location), 1, false, payload); err != nil {
		return fmt.Errorf("failed to publish valve command: %w", err)
	}

	a.logger.Info("Published valve command",
		"location", a.location,
		"command_id", cmd.CommandID,
		"fired_at", now)

	return nil
}
