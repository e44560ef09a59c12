package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// SensorReading is a single telemetry report from a garden node.
//
// All sensor fields are optional; a node only reports the sensors it has
// enabled. Nil fields are omitted from the written point.
type SensorReading struct {
	DeviceID     string
	Temperature  *float64 // degrees Celsius
	Humidity     *float64 // relative humidity percent
	SoilMoisture *float64 // percent
	Light        *float64 // lux
	Timestamp    time.Time
}

// WriteSensorReading writes a sensor reading to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Readings with no sensor fields set are dropped.
//
// Example:
//
//	temp := 21.5
//	client.WriteSensorReading(influxdb.SensorReading{
//	    DeviceID:    "dev-a1b2c3",
//	    Temperature: &temp,
//	})
func (c *Client) WriteSensorReading(r SensorReading) {
	if !c.IsConnected() {
		return
	}

	fields := make(map[string]interface{}, 4)
	if r.Temperature != nil {
		fields["temperature"] = *r.Temperature
	}
	if r.Humidity != nil {
		fields["humidity"] = *r.Humidity
	}
	if r.SoilMoisture != nil {
		fields["soil_moisture"] = *r.SoilMoisture
	}
	if r.Light != nil {
		fields["light"] = *r.Light
	}
	if len(fields) == 0 {
		return
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	point := write.NewPoint(
		"sensor_readings",
		map[string]string{
			"device_id": r.DeviceID,
		},
		fields,
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceMetric writes a single named measurement for a device.
//
// Used for ad-hoc telemetry that doesn't fit the sensor reading shape
// (battery voltage, wifi signal strength, uptime).
//
// Parameters:
//   - deviceID: Paired device identifier
//   - measurement: The metric name (e.g., "battery_volts", "rssi_dbm")
//   - value: The numeric value to record
func (c *Client) WriteDeviceMetric(deviceID string, measurement string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_metrics",
		map[string]string{
			"device_id":   deviceID,
			"measurement": measurement,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed or replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
