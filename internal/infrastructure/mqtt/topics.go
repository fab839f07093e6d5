package mqtt

import "strings"

// Topic scheme: luma/{category}/{device_id} for device traffic, plus a
// single retained system status topic. Device IDs never contain '/'.
const (
	// TopicPrefix is the base for all Luma topics.
	TopicPrefix = "luma"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "luma/system"

	categoryCommand   = "command"
	categoryStatus    = "status"
	categoryTelemetry = "telemetry"
)

// Topics provides builders for Luma MQTT topics. Using these helpers keeps
// topic naming consistent across publishers and subscribers.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.DeviceCommand("dev-a1b2c3d4")
//	// Returns: "luma/command/dev-a1b2c3d4"
type Topics struct{}

// DeviceCommand returns the topic for commands sent to a device.
//
// Example: luma/command/dev-a1b2c3d4
func (Topics) DeviceCommand(deviceID string) string {
	return TopicPrefix + "/" + categoryCommand + "/" + deviceID
}

// DeviceStatus returns the topic a device reports its status on.
//
// Example: luma/status/dev-a1b2c3d4
func (Topics) DeviceStatus(deviceID string) string {
	return TopicPrefix + "/" + categoryStatus + "/" + deviceID
}

// DeviceTelemetry returns the topic a device publishes sensor readings on.
//
// Example: luma/telemetry/dev-a1b2c3d4
func (Topics) DeviceTelemetry(deviceID string) string {
	return TopicPrefix + "/" + categoryTelemetry + "/" + deviceID
}

// SystemStatus returns the retained service presence topic. The LWT for
// the Core client is configured on this topic.
//
// Example: luma/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// AllDeviceStatus returns a pattern matching every device status topic.
//
// Pattern: luma/status/+
func (Topics) AllDeviceStatus() string {
	return TopicPrefix + "/" + categoryStatus + "/+"
}

// AllDeviceTelemetry returns a pattern matching every device telemetry topic.
//
// Pattern: luma/telemetry/+
func (Topics) AllDeviceTelemetry() string {
	return TopicPrefix + "/" + categoryTelemetry + "/+"
}

// AllTopics returns a pattern matching all Luma topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: luma/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}

// DeviceIDFromTopic extracts the device ID from a device command, status,
// or telemetry topic. Returns false for system topics and anything that
// does not follow the three-segment device scheme.
func DeviceIDFromTopic(topic string) (string, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[2] == "" {
		return "", false
	}
	switch parts[1] {
	case categoryCommand, categoryStatus, categoryTelemetry:
		return parts[2], true
	default:
		return "", false
	}
}
