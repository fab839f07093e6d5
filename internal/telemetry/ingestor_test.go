package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/lumahub/luma-core/internal/device"
	"github.com/lumahub/luma-core/internal/infrastructure/mqtt"
)

// fakeBus records subscriptions so tests can invoke handlers directly.
type fakeBus struct {
	handlers map[string]mqtt.MessageHandler
}

func newFakeBus() *fakeBus {
	return &fakeBus{handlers: make(map[string]mqtt.MessageHandler)}
}

func (b *fakeBus) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	b.handlers[topic] = handler
	return nil
}

// fakeMarker records MarkSeen calls; unknown devices return the registry's
// not-found error.
type fakeMarker struct {
	known map[string]bool
	calls []markCall
}

type markCall struct {
	id     string
	status device.Status
	seenAt time.Time
}

func (m *fakeMarker) MarkSeen(_ context.Context, id string, status device.Status, seenAt time.Time) error {
	if !m.known[id] {
		return device.ErrDeviceNotFound
	}
	m.calls = append(m.calls, markCall{id, status, seenAt})
	return nil
}

// fakeWriter records time-series writes.
type fakeWriter struct {
	readings []reading
	statuses []statusWrite
}

type reading struct {
	deviceID    string
	measurement string
	value       float64
}

type statusWrite struct {
	deviceID string
	online   bool
}

func (w *fakeWriter) WriteSensorReading(deviceID, measurement string, value float64) {
	w.readings = append(w.readings, reading{deviceID, measurement, value})
}

func (w *fakeWriter) WriteDeviceStatus(deviceID string, online bool) {
	w.statuses = append(w.statuses, statusWrite{deviceID, online})
}

func newTestIngestor(t *testing.T, known ...string) (*Ingestor, *fakeBus, *fakeMarker, *fakeWriter) {
	t.Helper()

	bus := newFakeBus()
	marker := &fakeMarker{known: make(map[string]bool)}
	for _, id := range known {
		marker.known[id] = true
	}
	writer := &fakeWriter{}

	ing := NewIngestor(bus, marker, writer, 1)
	if err := ing.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	return ing, bus, marker, writer
}

func TestIngestor_Start_Subscribes(t *testing.T) {
	_, bus, _, _ := newTestIngestor(t)

	for _, topic := range []string{"luma/status/+", "luma/telemetry/+"} {
		if bus.handlers[topic] == nil {
			t.Errorf("no handler subscribed on %s", topic)
		}
	}
}

func TestIngestor_StatusMessage(t *testing.T) {
	var gotID string
	var gotStatus device.Status

	ing, bus, marker, writer := newTestIngestor(t, "dev-1")
	ing.SetOnStatus(func(deviceID string, status device.Status) {
		gotID, gotStatus = deviceID, status
	})

	payload := []byte(`{"status":"online","timestamp":"2026-08-30T12:00:00Z"}`)
	if err := bus.handlers["luma/status/+"]("luma/status/dev-1", payload); err != nil {
		t.Fatalf("status handler error: %v", err)
	}

	if len(marker.calls) != 1 {
		t.Fatalf("MarkSeen called %d times, want 1", len(marker.calls))
	}
	call := marker.calls[0]
	if call.id != "dev-1" || call.status != device.StatusOnline {
		t.Errorf("MarkSeen(%s, %s), want (dev-1, online)", call.id, call.status)
	}
	if !call.seenAt.Equal(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("seenAt = %v, want the device timestamp", call.seenAt)
	}

	if len(writer.statuses) != 1 || !writer.statuses[0].online {
		t.Errorf("status writes = %+v, want one online write", writer.statuses)
	}

	if gotID != "dev-1" || gotStatus != device.StatusOnline {
		t.Errorf("status callback got (%s, %s)", gotID, gotStatus)
	}
}

func TestIngestor_StatusOffline(t *testing.T) {
	_, bus, _, writer := newTestIngestor(t, "dev-1")

	payload := []byte(`{"status":"offline"}`)
	if err := bus.handlers["luma/status/+"]("luma/status/dev-1", payload); err != nil {
		t.Fatalf("status handler error: %v", err)
	}

	if len(writer.statuses) != 1 || writer.statuses[0].online {
		t.Errorf("status writes = %+v, want one offline write", writer.statuses)
	}
}

func TestIngestor_StatusInvalid(t *testing.T) {
	_, bus, marker, _ := newTestIngestor(t, "dev-1")
	handler := bus.handlers["luma/status/+"]

	if err := handler("luma/status/dev-1", []byte(`not json`)); err == nil {
		t.Error("malformed payload accepted")
	}
	if err := handler("luma/status/dev-1", []byte(`{"status":"sideways"}`)); err == nil {
		t.Error("unknown status accepted")
	}
	if len(marker.calls) != 0 {
		t.Errorf("MarkSeen called %d times for rejected messages", len(marker.calls))
	}
}

func TestIngestor_StatusUnregisteredDevice(t *testing.T) {
	_, bus, _, writer := newTestIngestor(t) // no known devices

	payload := []byte(`{"status":"online"}`)
	if err := bus.handlers["luma/status/+"]("luma/status/dev-ghost", payload); err != nil {
		t.Errorf("unregistered device should be dropped silently, got %v", err)
	}
	if len(writer.statuses) != 0 {
		t.Error("status written for unregistered device")
	}
}

func TestIngestor_TelemetryMessage(t *testing.T) {
	_, bus, marker, writer := newTestIngestor(t, "dev-1")

	payload := []byte(`{"measurement":"temperature_c","value":21.5}`)
	if err := bus.handlers["luma/telemetry/+"]("luma/telemetry/dev-1", payload); err != nil {
		t.Fatalf("telemetry handler error: %v", err)
	}

	if len(writer.readings) != 1 {
		t.Fatalf("got %d readings, want 1", len(writer.readings))
	}
	r := writer.readings[0]
	if r.deviceID != "dev-1" || r.measurement != "temperature_c" || r.value != 21.5 {
		t.Errorf("reading = %+v", r)
	}

	// Telemetry implies the device is online.
	if len(marker.calls) != 1 || marker.calls[0].status != device.StatusOnline {
		t.Errorf("MarkSeen calls = %+v, want one online mark", marker.calls)
	}
}

func TestIngestor_TelemetryMissingFields(t *testing.T) {
	_, bus, _, writer := newTestIngestor(t, "dev-1")
	handler := bus.handlers["luma/telemetry/+"]

	if err := handler("luma/telemetry/dev-1", []byte(`{"value":1.0}`)); err == nil {
		t.Error("telemetry without measurement accepted")
	}
	if err := handler("luma/telemetry/dev-1", []byte(`{"measurement":"temp"}`)); err == nil {
		t.Error("telemetry without value accepted")
	}
	if len(writer.readings) != 0 {
		t.Errorf("readings = %+v, want none", writer.readings)
	}
}

func TestIngestor_NilReadingWriter(t *testing.T) {
	bus := newFakeBus()
	marker := &fakeMarker{known: map[string]bool{"dev-1": true}}

	ing := NewIngestor(bus, marker, nil, 1)
	if err := ing.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Neither handler may panic without a reading writer.
	if err := bus.handlers["luma/status/+"]("luma/status/dev-1", []byte(`{"status":"online"}`)); err != nil {
		t.Errorf("status handler error: %v", err)
	}
	if err := bus.handlers["luma/telemetry/+"]("luma/telemetry/dev-1", []byte(`{"measurement":"temp","value":1}`)); err != nil {
		t.Errorf("telemetry handler error: %v", err)
	}
	if len(marker.calls) != 2 {
		t.Errorf("MarkSeen called %d times, want 2", len(marker.calls))
	}
}
