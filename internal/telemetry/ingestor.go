package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumahub/luma-core/internal/device"
	"github.com/lumahub/luma-core/internal/infrastructure/logging"
	"github.com/lumahub/luma-core/internal/infrastructure/mqtt"
)

// Bus is the subset of the MQTT client the ingestor needs.
type Bus interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// DeviceMarker updates registry liveness from observed traffic.
// The device registry satisfies it.
type DeviceMarker interface {
	MarkSeen(ctx context.Context, id string, status device.Status, seenAt time.Time) error
}

// ReadingWriter persists sensor readings and status transitions.
// The InfluxDB client satisfies it.
type ReadingWriter interface {
	WriteSensorReading(deviceID, measurement string, value float64)
	WriteDeviceStatus(deviceID string, online bool)
}

// StatusFunc is invoked for every parsed device status message.
type StatusFunc func(deviceID string, status device.Status)

// statusMessage is the payload devices publish on luma/status/{id}.
type statusMessage struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp,omitempty"`
}

// telemetryMessage is the payload devices publish on luma/telemetry/{id}.
type telemetryMessage struct {
	Measurement string   `json:"measurement"`
	Value       *float64 `json:"value"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// Ingestor consumes device status and telemetry topics.
type Ingestor struct {
	bus      Bus
	devices  DeviceMarker
	readings ReadingWriter
	qos      byte

	onStatus StatusFunc
	logger   *logging.Logger
}

// NewIngestor creates an ingestor. readings may be nil when time-series
// storage is disabled; status and registry updates still apply.
func NewIngestor(bus Bus, devices DeviceMarker, readings ReadingWriter, qos byte) *Ingestor {
	return &Ingestor{
		bus:      bus,
		devices:  devices,
		readings: readings,
		qos:      qos,
	}
}

// SetLogger sets the logger for dropped-message warnings.
func (i *Ingestor) SetLogger(logger *logging.Logger) {
	i.logger = logger
}

// SetOnStatus registers a callback for device status transitions.
// Must be called before Start.
func (i *Ingestor) SetOnStatus(fn StatusFunc) {
	i.onStatus = fn
}

// Start subscribes to the device status and telemetry wildcards.
func (i *Ingestor) Start() error {
	topics := mqtt.Topics{}

	if err := i.bus.Subscribe(topics.AllDeviceStatus(), i.qos, i.handleStatus); err != nil {
		return fmt.Errorf("subscribing to device status: %w", err)
	}
	if err := i.bus.Subscribe(topics.AllDeviceTelemetry(), i.qos, i.handleTelemetry); err != nil {
		return fmt.Errorf("subscribing to device telemetry: %w", err)
	}
	return nil
}

// handleStatus processes one message from luma/status/{id}.
func (i *Ingestor) handleStatus(topic string, payload []byte) error {
	deviceID, ok := mqtt.DeviceIDFromTopic(topic)
	if !ok {
		return fmt.Errorf("unparseable status topic %q", topic)
	}

	var msg statusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding status payload for %s: %w", deviceID, err)
	}

	status := device.Status(msg.Status)
	if !device.IsValidStatus(status) {
		return fmt.Errorf("unknown status %q for %s", msg.Status, deviceID)
	}

	seenAt := parseTimestamp(msg.Timestamp)
	if err := i.devices.MarkSeen(context.Background(), deviceID, status, seenAt); err != nil {
		// Traffic from unregistered devices is expected during commissioning.
		i.warn("status for unregistered device dropped", "device_id", deviceID, "error", err)
		return nil
	}

	if i.readings != nil {
		i.readings.WriteDeviceStatus(deviceID, status == device.StatusOnline)
	}

	if i.onStatus != nil {
		i.onStatus(deviceID, status)
	}
	return nil
}

// handleTelemetry processes one message from luma/telemetry/{id}.
// A telemetry message implies the device is online.
func (i *Ingestor) handleTelemetry(topic string, payload []byte) error {
	deviceID, ok := mqtt.DeviceIDFromTopic(topic)
	if !ok {
		return fmt.Errorf("unparseable telemetry topic %q", topic)
	}

	var msg telemetryMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding telemetry payload for %s: %w", deviceID, err)
	}
	if msg.Measurement == "" || msg.Value == nil {
		return fmt.Errorf("telemetry for %s missing measurement or value", deviceID)
	}

	seenAt := parseTimestamp(msg.Timestamp)
	if err := i.devices.MarkSeen(context.Background(), deviceID, device.StatusOnline, seenAt); err != nil {
		i.warn("telemetry for unregistered device dropped", "device_id", deviceID, "error", err)
		return nil
	}

	if i.readings != nil {
		i.readings.WriteSensorReading(deviceID, msg.Measurement, *msg.Value)
	}
	return nil
}

// parseTimestamp reads an RFC3339 device timestamp, falling back to now.
func parseTimestamp(s string) time.Time {
	if s != "" {
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts
		}
	}
	return time.Now().UTC()
}

func (i *Ingestor) warn(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Warn(msg, args...)
	}
}
