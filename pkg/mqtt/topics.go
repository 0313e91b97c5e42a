package mqtt

import "fmt"

// Topic layout for the flush automation bus
const (
	// Raw presence samples published by sensor firmware (input)
	TopicRawPresence = "automation/raw/presence/+"

	// Valve actuation commands (output)
	TopicValveCommands = "automation/command/valve/+"

	// Controller state announcements (output)
	TopicFlushContext = "automation/context/flush/+"
)

// PresenceTopic constructs the raw presence topic for a fixture location
// Pattern: automation/raw/presence/{location}
func PresenceTopic(location string) string {
	return fmt.Sprintf("automation/raw/presence/%s", location)
}

// ValveCommandTopic constructs the valve command topic for a fixture location
// Pattern: automation/command/valve/{location}
func ValveCommandTopic(location string) string {
	return fmt.Sprintf("automation/command/valve/%s", location)
}

// FlushContextTopic constructs the controller state topic for a fixture location
// Pattern: automation/context/flush/{location}
func FlushContextTopic(location string) string {
	return fmt.Sprintf("automation/context/flush/%s", location)
}
