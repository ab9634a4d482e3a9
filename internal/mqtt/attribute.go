package mqtt

// AttributeConfig describes how one published attribute appears in
// Home Assistant MQTT Discovery
type AttributeConfig struct {
	// Attribute is the attribute name; it doubles as the topic segment
	Attribute string

	// Name is the display name in Home Assistant
	Name string

	// Unit of measurement (ppm, %, hPa, etc.)
	Unit string

	// Home Assistant parameters
	DeviceClass string // carbon_dioxide, temperature, humidity, etc.
	StateClass  string // measurement, total, total_increasing

	// Device grouping
	DeviceInfo *DeviceInfo
}

// DeviceInfo contains device information for grouping in Home Assistant
type DeviceInfo struct {
	Identifiers  []string // Unique device identifiers
	Name         string   // Device name
	Model        string   // Model
	Manufacturer string   // Manufacturer
}
