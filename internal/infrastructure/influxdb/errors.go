package influxdb

import "errors"

// Sentinel errors, matched with errors.Is.
var (
	// ErrDisabled means the influxdb section of config.yaml has
	// enabled: false. gardend runs fine without telemetry history.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed means the startup ping did not get a healthy
	// response from the server.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned by HealthCheck after the client has
	// been closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")
)
