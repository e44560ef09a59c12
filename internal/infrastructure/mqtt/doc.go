// Package mqtt provides MQTT client connectivity for Smart Garden Core.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Event publishing with QoS guarantees
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Garden nodes never talk MQTT - they poll the HTTP API. The broker
// carries a one-way mirror of provisioning events (announce, pair,
// config update requests) and sensor readings, so external consumers
// can follow the system without polling:
//
//	Smart Garden Core → MQTT Broker → dashboards / recorders / automations
//
// The publisher is optional: when mqtt.enabled is false in config.yaml
// the service runs identically without it.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.Event("device.paired")
//	client.Publish(topic, []byte(`{"deviceId":"dev-a1b2c3"}`), 1, false)
package mqtt
