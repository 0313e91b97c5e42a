package redis

import "fmt"

// Key construction helpers for the flush agent's hot state

// FlushStateKey returns the key for the controller snapshot (hash)
// Pattern: state:flush:{location}
func FlushStateKey(location string) string {
	return fmt.Sprintf("state:flush:%s", location)
}

// PresenceMetaKey returns the key for presence metadata (hash)
// Pattern: meta:presence:{location}
func PresenceMetaKey(location string) string {
	return fmt.Sprintf("meta:presence:%s", location)
}

// PresenceSamplesKey returns the key for the presence sample history (sorted set)
// Pattern: samples:presence:{location}
func PresenceSamplesKey(location string) string {
	return fmt.Sprintf("samples:presence:%s", location)
}
