package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"DeviceCommand", topics.DeviceCommand("dev-a1b2c3d4"), "luma/command/dev-a1b2c3d4"},
		{"DeviceStatus", topics.DeviceStatus("dev-a1b2c3d4"), "luma/status/dev-a1b2c3d4"},
		{"DeviceTelemetry", topics.DeviceTelemetry("dev-a1b2c3d4"), "luma/telemetry/dev-a1b2c3d4"},
		{"SystemStatus", topics.SystemStatus(), "luma/system/status"},
		{"AllDeviceStatus", topics.AllDeviceStatus(), "luma/status/+"},
		{"AllDeviceTelemetry", topics.AllDeviceTelemetry(), "luma/telemetry/+"},
		{"AllTopics", topics.AllTopics(), "luma/#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestDeviceIDFromTopic(t *testing.T) {
	tests := []struct {
		topic  string
		wantID string
		wantOK bool
	}{
		{"luma/status/dev-a1b2c3d4", "dev-a1b2c3d4", true},
		{"luma/telemetry/dev-a1b2c3d4", "dev-a1b2c3d4", true},
		{"luma/command/dev-a1b2c3d4", "dev-a1b2c3d4", true},
		{"luma/system/status", "", false},
		{"luma/status/", "", false},
		{"luma/status", "", false},
		{"other/status/dev-1", "", false},
		{"luma/status/dev-1/extra", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		id, ok := DeviceIDFromTopic(tt.topic)
		if id != tt.wantID || ok != tt.wantOK {
			t.Errorf("DeviceIDFromTopic(%q) = (%q, %v), want (%q, %v)",
				tt.topic, id, ok, tt.wantID, tt.wantOK)
		}
	}
}
