package flush

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flushworks/flushd/pkg/mqtt"
)

// PresenceMessage is the payload published by presence sensor firmware
// on automation/raw/presence/{location}
type PresenceMessage struct {
	State       string `json:"state"` // "on" or "off"
	CollectedAt int64  `json:"collectedAt,omitempty"` // unix milliseconds, optional
}

// PresenceLatch adapts asynchronous MQTT presence messages into the Sensor
// contract. It holds the most recent reported sample; Presence only reads
// the latched value, so repeated calls for the same timestamp are idempotent.
type PresenceLatch struct {
	mu       sync.RWMutex
	present  bool
	reported time.Time

	logger *slog.Logger
}

// NewPresenceLatch creates a latch that starts with no presence
func NewPresenceLatch(logger *slog.Logger) *PresenceLatch {
	return &PresenceLatch{logger: logger}
}

// HandleMessage updates the latch from an incoming presence message.
// Malformed payloads are logged and dropped; the latch keeps its last value.
func (l *PresenceLatch) HandleMessage(msg mqtt.Message) {
	var pm PresenceMessage
	if err := json.Unmarshal(msg.Payload(), &pm); err != nil {
		l.logger.Error("Failed to parse presence message", "topic", msg.Topic(), "error", err)
		return
	}

	present, err := parsePresenceState(pm.State)
	if err != nil {
		l.logger.Error("Invalid presence message", "topic", msg.Topic(), "error", err)
		return
	}

	reported := time.Now()
	if pm.CollectedAt > 0 {
		reported = time.UnixMilli(pm.CollectedAt)
	}

	l.mu.Lock()
	l.present = present
	l.reported = reported
	l.mu.Unlock()

	l.logger.Debug("Latched presence sample", "present", present, "reported", reported)
}

// Presence returns the latched sample. The timestamp is accepted to satisfy
// the Sensor contract; the latch answers for whatever sample it last saw.
func (l *PresenceLatch) Presence(now time.Time) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.present
}

// LastReport returns the latched value and when the sensor reported it.
// A zero time means no message has arrived yet.
func (l *PresenceLatch) LastReport() (bool, time.Time) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.present, l.reported
}

func parsePresenceState(state string) (bool, error) {
	switch state {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("unknown presence state %q", state)
	}
}
