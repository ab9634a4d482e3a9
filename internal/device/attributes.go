package device

import (
	"errors"
	"log"

	"airbridge/internal/events"
	"airbridge/internal/storage"
)

// Sink receives attribute updates that passed the change guard.
// The MQTT publisher implements this; a nil sink keeps the bridge usable
// without a broker (state is still tracked and served over the HTTP API).
type Sink interface {
	PublishAttribute(name, value string) error
}

// Attributes tracks the last published value per attribute and suppresses
// redundant updates. Values are compared as strings; the last published
// values are persisted so a restart does not re-emit unchanged state.
type Attributes struct {
	storage storage.Storage
	sink    Sink
	events  *events.Store
	logger  *log.Logger
}

// NewAttributes creates a new attribute store
func NewAttributes(store storage.Storage, sink Sink, eventStore *events.Store, logger *log.Logger) *Attributes {
	return &Attributes{
		storage: store,
		sink:    sink,
		events:  eventStore,
		logger:  logger,
	}
}

// Publish emits a change-guarded attribute update.
// Returns true when the value differed from the last published one and an
// update was pushed; false when the update was suppressed.
func (a *Attributes) Publish(name, value string) (bool, error) {
	current, err := a.storage.GetString(storage.NamespaceAttributes, name)
	if err == nil && current == value {
		return false, nil
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	if err := a.storage.SetString(storage.NamespaceAttributes, name, value); err != nil {
		return false, err
	}

	if a.sink != nil {
		if err := a.sink.PublishAttribute(name, value); err != nil {
			// The value is already recorded; a lost publish heals on the
			// next change. Log and keep the cycle going.
			if a.logger != nil {
				a.logger.Printf("[Attributes] Failed to publish %s: %v", name, err)
			}
		}
	}

	if a.events != nil {
		a.events.Add(events.EventAttributeUpdate, true, name+"="+value)
	}

	return true, nil
}

// Current returns the last published value for an attribute.
// Returns storage.ErrNotFound if the attribute was never published.
func (a *Attributes) Current(name string) (string, error) {
	return a.storage.GetString(storage.NamespaceAttributes, name)
}

// All returns all attributes with their last published values
func (a *Attributes) All() (map[string]string, error) {
	raw, err := a.storage.List(storage.NamespaceAttributes)
	if err != nil {
		return nil, err
	}

	result := make(map[string]string, len(raw))
	for name, value := range raw {
		result[name] = string(value)
	}
	return result, nil
}
