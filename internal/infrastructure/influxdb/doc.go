// Package influxdb stores node telemetry history for the dashboard charts.
//
// It wraps the official influxdb-client-go v2 library. Readings ingested
// from garden nodes are written as points in the sensor_readings
// measurement, tagged by device, batched, and flushed asynchronously:
//
//	telemetry, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // ErrDisabled: run without charts
//	}
//	temp := 21.5
//	telemetry.WriteSensorReading(influxdb.SensorReading{
//	    DeviceID:    "dev-a1b2c3",
//	    Temperature: &temp,
//	})
//
// All write helpers are fire-and-forget. Batch errors are reported through
// the SetOnError callback, where main logs them; a reading lost to a down
// InfluxDB is acceptable, a blocked ingest path is not.
package influxdb
