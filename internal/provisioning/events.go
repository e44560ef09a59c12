package provisioning

// Event types emitted by the provisioning services.
//
// Events are advisory notifications for dashboards and external feeds.
// They are emitted after the database write succeeds; delivery is best
// effort and never affects the outcome of the operation.
const (
	EventDeviceAnnounced       = "device.announced"
	EventDevicePaired          = "device.paired"
	EventDeviceUnpaired        = "device.unpaired"
	EventDeviceUpdated         = "device.updated"
	EventConfigUpdated         = "device.config_updated"
	EventConfigUpdateRequested = "device.config_update_requested"
	EventDeviceReading         = "device.reading"
	EventDiscoveryReset        = "discovery.reset"
)

// EventSink receives provisioning events.
//
// Implementations fan events out to interested parties (the WebSocket
// hub, the MQTT feed). Publish must not block; slow consumers drop.
type EventSink interface {
	Publish(event string, payload any)
}

// noopSink discards all events.
type noopSink struct{}

func (noopSink) Publish(string, any) {}
