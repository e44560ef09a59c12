package api

import (
	"encoding/json"
	"strings"

	"github.com/codezcracker/smart-garden-core/internal/infrastructure/logging"
	"github.com/codezcracker/smart-garden-core/internal/infrastructure/mqtt"
)

// Broadcaster fans provisioning events out to WebSocket dashboards and,
// when a broker is configured, mirrors them to MQTT for external
// automation consumers. It implements provisioning.EventSink.
//
// The fan-out is advisory: the poll protocol's semantics never depend on
// an event being delivered.
type Broadcaster struct {
	hub    *Hub
	mqtt   *mqtt.Client // optional
	qos    byte
	logger *logging.Logger
}

// NewBroadcaster creates an event broadcaster. mqttClient may be nil.
func NewBroadcaster(hub *Hub, mqttClient *mqtt.Client, qos byte, logger *logging.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    hub,
		mqtt:   mqttClient,
		qos:    qos,
		logger: logger,
	}
}

// Publish broadcasts an event to subscribed WebSocket clients and mirrors
// it to the broker's event topic.
func (b *Broadcaster) Publish(event string, payload any) {
	if b.hub != nil {
		b.hub.Broadcast(event, payload)
	}

	if b.mqtt == nil || !b.mqtt.IsConnected() {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		b.logger.Warn("failed to marshal event for broker", "event", event, "error", err)
		return
	}

	topic := mqtt.Topics{}.Event(eventTopicSuffix(event))
	if err := b.mqtt.Publish(topic, data, b.qos, false); err != nil {
		b.logger.Warn("failed to mirror event to broker", "event", event, "error", err)
	}
}

// eventTopicSuffix converts an event name like "device.paired" into a
// topic segment like "device/paired".
func eventTopicSuffix(event string) string {
	return strings.ReplaceAll(event, ".", "/")
}
