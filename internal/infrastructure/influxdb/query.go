package influxdb

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Reading is one sensor value returned from a history query.
type Reading struct {
	Time        time.Time `json:"time"`
	Measurement string    `json:"measurement"`
	Value       float64   `json:"value"`
}

// QuerySensorReadings returns a device's sensor readings between start and
// end, oldest first. measurement narrows the result to one reading kind
// (for example "temperature"); empty returns every measurement.
func (c *Client) QuerySensorReadings(ctx context.Context, deviceID, measurement string, start, end time.Time) ([]Reading, error) {
	if c == nil || !c.IsConnected() {
		return nil, ErrNotConnected
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, fmt.Errorf("device ID is required")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("end must be after start")
	}

	// Tag values are quoted into the Flux source; reject quote characters
	// rather than trying to escape them.
	if strings.ContainsAny(deviceID, `"\`) || strings.ContainsAny(measurement, `"\`) {
		return nil, fmt.Errorf("invalid characters in query parameters")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `from(bucket: %q)
	|> range(start: %s, stop: %s)
	|> filter(fn: (r) => r._measurement == "sensor_readings")
	|> filter(fn: (r) => r.device_id == %q)`,
		c.cfg.Bucket,
		start.UTC().Format(time.RFC3339),
		end.UTC().Format(time.RFC3339),
		deviceID,
	)
	if measurement != "" {
		fmt.Fprintf(&b, "\n\t|> filter(fn: (r) => r.measurement == %q)", measurement)
	}
	b.WriteString("\n\t|> sort(columns: [\"_time\"])")

	queryAPI := c.client.QueryAPI(c.cfg.Org)
	result, err := queryAPI.Query(ctx, b.String())
	if err != nil {
		return nil, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer result.Close() //nolint:errcheck // read error is checked via result.Err below

	readings := []Reading{}
	for result.Next() {
		record := result.Record()
		value, ok := record.Value().(float64)
		if !ok {
			continue
		}
		name, _ := record.ValueByKey("measurement").(string) //nolint:errcheck // missing tag yields empty name
		readings = append(readings, Reading{
			Time:        record.Time(),
			Measurement: name,
			Value:       value,
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("reading query result: %w", err)
	}

	return readings, nil
}
