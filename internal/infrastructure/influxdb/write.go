package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading writes a single sensor reading to InfluxDB.
//
// This is the primary path for device telemetry. The write is
// non-blocking; points are batched and sent asynchronously.
//
// Example:
//
//	client.WriteSensorReading("dev-a1b2c3d4", "temperature_c", 21.5)
//	client.WriteSensorReading("dev-a1b2c3d4", "humidity_pct", 48.0)
func (c *Client) WriteSensorReading(deviceID, measurement string, value float64) {
	c.WritePointWithTime("sensor_readings",
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)
}

// WriteDeviceStatus records a device status transition (online/offline).
// Stored as 1/0 so dashboards can graph availability over time.
func (c *Client) WriteDeviceStatus(deviceID string, online bool) {
	value := 0
	if online {
		value = 1
	}

	c.WritePointWithTime("device_status",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"online": value,
		},
		time.Now(),
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
// Use this when the reading carries its own timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
