package mqtt

import (
	"encoding/json"
	"log"
)

// AvailabilityTopic announces bridge liveness (relative to the prefix)
const AvailabilityTopic = "status/availability"

// Publisher publishes device attributes over MQTT. It implements the
// device package's Sink interface.
type Publisher struct {
	client *Client
	logger *log.Logger
}

// NewPublisher creates a new Publisher instance
func NewPublisher(client *Client, logger *log.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger,
	}
}

// PublishAttribute publishes a single attribute value to its state topic
func (p *Publisher) PublishAttribute(name, value string) error {
	topic := "attribute/" + name + "/state"
	if err := p.client.PublishWithQoS(topic, 0, true, value); err != nil {
		if p.logger != nil {
			p.logger.Printf("[Publisher] Failed to publish attribute %s: %v", name, err)
		}
		return err
	}
	return nil
}

// PublishSnapshot publishes the full reading as one JSON message.
// One aggregated message keeps the broker traffic low next to the
// per-attribute state topics.
func (p *Publisher) PublishSnapshot(values map[string]float64) error {
	payload, err := json.Marshal(values)
	if err != nil {
		if p.logger != nil {
			p.logger.Printf("[Publisher] Failed to marshal snapshot: %v", err)
		}
		return err
	}

	return p.client.Publish("reading/state", payload)
}

// PublishAvailability announces the bridge as online or offline
func (p *Publisher) PublishAvailability(online bool) error {
	payload := "offline"
	if online {
		payload = "online"
	}
	return p.client.PublishWithQoS(AvailabilityTopic, 1, true, payload)
}
