package flush

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/flushworks/flushd/pkg/redis"
)

const (
	// TTL for all hot state written by the agent
	snapshotTTL = 24 * time.Hour

	// Max age for sample history entries (24 hours in milliseconds)
	maxSampleAge = 24 * 60 * 60 * 1000
)

// sampleRecord is one presence sample as stored in the sample history
type sampleRecord struct {
	Present     bool  `json:"present"`
	CollectedAt int64 `json:"collectedAt"`
}

// Snapshots persists the agent's hot state to Redis: the controller snapshot
// as a hash and the raw presence samples as a bounded sorted set. Everything
// here is observational; nothing is read back to restore counters.
type Snapshots struct {
	redis      redis.Client
	location   string
	maxSamples int
	logger     *slog.Logger
}

// NewSnapshots creates a snapshot writer for the given fixture location.
// maxSamples caps the sample history by count on top of the age prune; zero
// disables the count cap.
func NewSnapshots(redisClient redis.Client, location string, maxSamples int, logger *slog.Logger) *Snapshots {
	return &Snapshots{
		redis:      redisClient,
		location:   location,
		maxSamples: maxSamples,
		logger:     logger,
	}
}

// StoreState writes the controller snapshot hash
// Key: state:flush:{location}
func (s *Snapshots) StoreState(ctx context.Context, state State, m Metrics, now time.Time) error {
	key := redis.FlushStateKey(s.location)

	fields := map[string]string{
		"state":          string(state),
		"flushCount":     strconv.FormatInt(m.FlushCount, 10),
		"presenceEvents": strconv.FormatInt(m.PresenceEvents, 10),
		"updatedAt":      strconv.FormatInt(now.UnixMilli(), 10),
	}
	for field, value := range fields {
		if err := s.redis.HSet(ctx, key, field, value); err != nil {
			return fmt.Errorf("failed to store controller snapshot: %w", err)
		}
	}

	if err := s.redis.Expire(ctx, key, snapshotTTL); err != nil {
		return fmt.Errorf("failed to set TTL on controller snapshot: %w", err)
	}

	return nil
}

// StoreSample appends one presence sample to the sample history
// Key: samples:presence:{location} (sorted set scored by unix milliseconds)
func (s *Snapshots) StoreSample(ctx context.Context, present bool, now time.Time) error {
	key := redis.PresenceSamplesKey(s.location)

	record := sampleRecord{Present: present, CollectedAt: now.UnixMilli()}
	jsonData, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal presence sample: %w", err)
	}

	score := float64(record.CollectedAt)
	if err := s.redis.ZAdd(ctx, key, score, jsonData); err != nil {
		return fmt.Errorf("failed to add presence sample: %w", err)
	}

	// Clean old entries (older than 24 hours)
	maxAgeTimestamp := record.CollectedAt - maxSampleAge
	if err := s.redis.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(maxAgeTimestamp, 10)); err != nil {
		s.logger.Warn("Failed to clean old presence samples", "location", s.location, "error", err)
	}

	// Cap the history by count, keeping the newest entries
	if s.maxSamples > 0 {
		if err := s.redis.ZRemRangeByRank(ctx, key, 0, int64(-s.maxSamples-1)); err != nil {
			s.logger.Warn("Failed to cap presence sample history", "location", s.location, "error", err)
		}
	}

	if err := s.redis.Expire(ctx, key, snapshotTTL); err != nil {
		return fmt.Errorf("failed to set TTL on presence samples: %w", err)
	}

	return nil
}

// StoreSensorMeta records when the sensor last reported, for staleness checks
// by external observers
// Key: meta:presence:{location}
func (s *Snapshots) StoreSensorMeta(ctx context.Context, present bool, reported time.Time) error {
	key := redis.PresenceMetaKey(s.location)

	state := "off"
	if present {
		state = "on"
	}
	if err := s.redis.HSet(ctx, key, "lastState", state); err != nil {
		return fmt.Errorf("failed to store sensor metadata: %w", err)
	}
	if err := s.redis.HSet(ctx, key, "lastReportTime", strconv.FormatInt(reported.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("failed to store sensor metadata: %w", err)
	}
	if err := s.redis.Expire(ctx, key, snapshotTTL); err != nil {
		return fmt.Errorf("failed to set TTL on sensor metadata: %w", err)
	}

	return nil
}
