package mqtt

import "strings"

// Topic suffixes below the configured prefix.
const (
	topicReadings     = "readings"
	topicReadingsLine = "readings/influx"
	topicCommands     = "commands"
	topicStatus       = "status"
)

// Topics builds the service topics below a configurable prefix.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.NewTopics("sensehat")
//	topics.Readings() // "sensehat/readings"
type Topics struct {
	prefix string
}

// NewTopics returns a Topics builder for prefix. The prefix is trimmed and
// normalized to end with "/".
func NewTopics(prefix string) Topics {
	return Topics{prefix: NormalizePrefix(prefix)}
}

// NormalizePrefix trims surrounding whitespace and appends "/" when missing.
// An empty prefix stays empty.
func NormalizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		return prefix
	}
	return prefix + "/"
}

// Prefix returns the normalized prefix.
func (t Topics) Prefix() string {
	return t.prefix
}

// Readings returns the topic for JSON sensor readings.
//
// Example: sensehat/readings
func (t Topics) Readings() string {
	return t.prefix + topicReadings
}

// ReadingsLineProtocol returns the topic for the line-protocol mirror of readings.
//
// Example: sensehat/readings/influx
func (t Topics) ReadingsLineProtocol() string {
	return t.prefix + topicReadingsLine
}

// Commands returns the topic inbound commands arrive on.
//
// Example: sensehat/commands
func (t Topics) Commands() string {
	return t.prefix + topicCommands
}

// Status returns the retained online/offline status topic, also used for the LWT.
//
// Example: sensehat/status
func (t Topics) Status() string {
	return t.prefix + topicStatus
}
