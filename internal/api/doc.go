// Package api implements the HTTP REST API and WebSocket server for Smart Garden Core.
//
// This package provides:
//   - Device-facing poll endpoints (announce, status, config fetch, readings)
//   - Operator endpoints for discovery, pairing, and configuration
//   - WebSocket hub for real-time provisioning event broadcasts
//   - JWT authentication with ticket-based WebSocket auth
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between two very different clients. Field sensor
// nodes poll the /iot routes over plain HTTP: they announce themselves,
// ask whether they have been paired, and fetch their full configuration.
// Operator dashboards use the authenticated routes to browse discovered
// nodes, claim them, and edit their configuration; a WebSocket hub pushes
// provisioning events to connected dashboards as they happen.
//
// # Security
//
// Device routes are unauthenticated: nodes carry no credentials and
// identify themselves by serial alone. Everything that mutates pairing
// or configuration state requires a JWT access token. WebSocket
// connections use single-use tickets to keep tokens out of URLs.
//
// # Graceful Degradation
//
// The server operates without InfluxDB or MQTT — readings are simply not
// recorded to the time-series store and events are not mirrored to the
// broker. The pairing and configuration protocol never depends on either.
package api
