package mqtt

import "fmt"

// Topic prefixes for the Smart Garden broker feed.
//
// The HTTP API is the authoritative interface; MQTT is a one-way mirror
// of provisioning events and readings for external subscribers.
const (
	// TopicPrefix is the base for all Smart Garden topics.
	TopicPrefix = "smartgarden"

	// TopicPrefixEvent is the base for provisioning event topics.
	TopicPrefixEvent = "smartgarden/event"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "smartgarden/system"
)

// Topics provides builders for Smart Garden MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	topic := topics.Event("device.paired")
//	// Returns: "smartgarden/event/device.paired"
type Topics struct{}

// Event returns the topic for a provisioning event.
//
// Example: smartgarden/event/device.announced
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixEvent, eventType)
}

// DeviceReading returns the topic for sensor readings from a paired device.
//
// Example: smartgarden/reading/dev-a1b2c3
func (Topics) DeviceReading(deviceID string) string {
	return fmt.Sprintf("%s/reading/%s", TopicPrefix, deviceID)
}

// SystemStatus returns the system status topic.
//
// Example: smartgarden/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllEvents returns a pattern matching all provisioning events.
//
// Pattern: smartgarden/event/+
func (Topics) AllEvents() string {
	return fmt.Sprintf("%s/+", TopicPrefixEvent)
}

// AllReadings returns a pattern matching all device readings.
//
// Pattern: smartgarden/reading/+
func (Topics) AllReadings() string {
	return fmt.Sprintf("%s/reading/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Smart Garden topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: smartgarden/#
func (Topics) AllTopics() string {
	return "smartgarden/#"
}
