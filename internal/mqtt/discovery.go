package mqtt

import (
	"encoding/json"
	"log"
	"sync"

	"airbridge/internal/storage"
)

// DiscoveryManager manages Home Assistant MQTT Discovery for the bridge's
// published attributes
type DiscoveryManager struct {
	mqttClient *Client
	logger     *log.Logger
	storage    storage.Storage

	// Cache of pre-generated discovery configs
	discoveryConfigs map[string][]byte
	discoveryMu      sync.RWMutex
}

// NewDiscoveryManager creates a new DiscoveryManager instance
func NewDiscoveryManager(client *Client, logger *log.Logger, store storage.Storage) *DiscoveryManager {
	return &DiscoveryManager{
		mqttClient:       client,
		logger:           logger,
		storage:          store,
		discoveryConfigs: make(map[string][]byte),
	}
}

// ShouldRepublish checks if discovery configs should be republished.
// Republish when discovery was never published or the monitored device
// changed since the last publication.
func (d *DiscoveryManager) ShouldRepublish(serialNumber string) bool {
	published, err := d.storage.GetBool(storage.NamespaceDiscovery, "published")
	if err != nil {
		published = false // First time
	}

	lastSerial, err := d.storage.GetString(storage.NamespaceDiscovery, "serialNumber")
	if err != nil {
		lastSerial = ""
	}

	return !published || lastSerial != serialNumber
}

// PublishConfig publishes the discovery config for a single attribute
func (d *DiscoveryManager) PublishConfig(cfg *AttributeConfig) error {
	if cfg == nil {
		return nil
	}

	configJSON := d.generateConfig(cfg)
	if configJSON == nil {
		return nil
	}

	// Topic: homeassistant/sensor/airbridge/{attribute}/config
	discoveryTopic := "homeassistant/sensor/airbridge/" + cfg.Attribute + "/config"

	return d.mqttClient.PublishRaw(discoveryTopic, configJSON, true)
}

// PublishAll publishes discovery configs for all attributes and records
// the publication
func (d *DiscoveryManager) PublishAll(serialNumber string, configs []*AttributeConfig) error {
	for _, cfg := range configs {
		if err := d.PublishConfig(cfg); err != nil {
			if d.logger != nil {
				d.logger.Printf("[Discovery] Failed to publish config for %s: %v", cfg.Attribute, err)
			}
		}
	}

	d.markPublished(serialNumber)

	if d.logger != nil {
		d.logger.Printf("[Discovery] Published MQTT discovery config for %d attributes", len(configs))
	}

	return nil
}

// generateConfig generates and caches a Home Assistant discovery config
func (d *DiscoveryManager) generateConfig(cfg *AttributeConfig) []byte {
	// Check cache first
	d.discoveryMu.RLock()
	if config, ok := d.discoveryConfigs[cfg.Attribute]; ok {
		d.discoveryMu.RUnlock()
		return config
	}
	d.discoveryMu.RUnlock()

	// Build configuration
	mqttCfg := d.mqttClient.GetConfig()

	discoveryConfig := map[string]interface{}{
		"name":        cfg.Name,
		"unique_id":   "airbridge_" + cfg.Attribute,
		"state_topic": mqttCfg.Prefix + "/attribute/" + cfg.Attribute + "/state",
	}

	// Add optional fields
	if cfg.Unit != "" {
		discoveryConfig["unit_of_measurement"] = cfg.Unit
	}

	if cfg.DeviceClass != "" {
		discoveryConfig["device_class"] = cfg.DeviceClass
	}

	if cfg.StateClass != "" {
		discoveryConfig["state_class"] = cfg.StateClass
	}

	discoveryConfig["availability_topic"] = mqttCfg.Prefix + "/" + AvailabilityTopic
	discoveryConfig["payload_available"] = "online"
	discoveryConfig["payload_not_available"] = "offline"

	// Device information for grouping in Home Assistant
	if cfg.DeviceInfo != nil {
		discoveryConfig["device"] = map[string]interface{}{
			"identifiers":  cfg.DeviceInfo.Identifiers,
			"name":         cfg.DeviceInfo.Name,
			"model":        cfg.DeviceInfo.Model,
			"manufacturer": cfg.DeviceInfo.Manufacturer,
		}
	}

	configJSON, err := json.Marshal(discoveryConfig)
	if err != nil {
		if d.logger != nil {
			d.logger.Printf("[Discovery] Failed to marshal config: %v", err)
		}
		return nil
	}

	// Cache for future use
	d.discoveryMu.Lock()
	d.discoveryConfigs[cfg.Attribute] = configJSON
	d.discoveryMu.Unlock()

	return configJSON
}

// markPublished records the publication in storage
func (d *DiscoveryManager) markPublished(serialNumber string) {
	if d.storage == nil {
		return
	}
	if err := d.storage.SetBool(storage.NamespaceDiscovery, "published", true); err != nil {
		if d.logger != nil {
			d.logger.Printf("[Discovery] Failed to mark discovery as published: %v", err)
		}
	}
	if err := d.storage.SetString(storage.NamespaceDiscovery, "serialNumber", serialNumber); err != nil {
		if d.logger != nil {
			d.logger.Printf("[Discovery] Failed to record serial number: %v", err)
		}
	}
}

// AttributeConfigs builds discovery configs for the fixed set of numeric
// attributes the bridge publishes, grouped under one Home Assistant device
// identified by the AirThings serial number.
func AttributeConfigs(serialNumber string) []*AttributeConfig {
	deviceInfo := &DeviceInfo{
		Identifiers:  []string{"airbridge_" + serialNumber},
		Name:         "AirThings " + serialNumber,
		Model:        "AirThings Monitor",
		Manufacturer: "Airthings",
	}

	specs := []struct {
		attribute   string
		name        string
		unit        string
		deviceClass string
	}{
		{"carbonDioxide", "CO2", "ppm", "carbon_dioxide"},
		{"voc", "VOC", "ppb", "volatile_organic_compounds_parts"},
		{"radonShortTermAvg", "Radon", "Bq/m³", ""},
		{"humidity", "Humidity", "%", "humidity"},
		{"temperature", "Temperature", "°C", "temperature"},
		{"airQualityPM25", "PM2.5", "µg/m³", "pm25"},
		{"airQualityPM1", "PM1", "µg/m³", "pm1"},
		{"pressure", "Pressure", "hPa", "atmospheric_pressure"},
		{"battery", "Battery", "%", "battery"},
	}

	configs := make([]*AttributeConfig, 0, len(specs))
	for _, s := range specs {
		configs = append(configs, &AttributeConfig{
			Attribute:   s.attribute,
			Name:        s.name,
			Unit:        s.unit,
			DeviceClass: s.deviceClass,
			StateClass:  "measurement",
			DeviceInfo:  deviceInfo,
		})
	}
	return configs
}
