package airthings

import "strconv"

// Reading maps AirThings sample field names to their numeric values.
// Devices report different subsets of the known fields; absent fields are
// simply missing from the map.
type Reading map[string]float64

// Field describes one known sample field and how it is published
type Field struct {
	Name      string // AirThings field name in the samples payload
	Attribute string // Attribute name on the home-automation side
	Label     string // Human-readable label used in the summary tile
	Unit      string // Display unit
	Decimals  int    // Decimal places in the summary tile (values pass through unrounded)
}

// fields is the fixed processing order. Publication and tile rows always
// follow this order regardless of what the device reports.
var fields = []Field{
	{Name: "co2", Attribute: "carbonDioxide", Label: "CO2", Unit: "ppm", Decimals: 0},
	{Name: "voc", Attribute: "voc", Label: "VOC", Unit: "ppb", Decimals: 0},
	{Name: "radonShortTermAvg", Attribute: "radonShortTermAvg", Label: "Radon", Unit: "Bq/m3", Decimals: 1},
	{Name: "humidity", Attribute: "humidity", Label: "Humidity", Unit: "%", Decimals: 0},
	{Name: "temp", Attribute: "temperature", Label: "Temp", Unit: "C", Decimals: 1},
	{Name: "pm25", Attribute: "airQualityPM25", Label: "PM2.5", Unit: "µg/m3", Decimals: 0},
	{Name: "pm1", Attribute: "airQualityPM1", Label: "PM1", Unit: "µg/m3", Decimals: 0},
	{Name: "pressure", Attribute: "pressure", Label: "Pressure", Unit: "hPa", Decimals: 0},
	{Name: "battery", Attribute: "battery", Label: "Battery", Unit: "%", Decimals: 0},
}

// Fields returns the known sample fields in fixed processing order
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// FormatTileValue renders a value for the summary tile using the field's
// decimal rule: one decimal for radon and temperature, none for the rest.
func (f Field) FormatTileValue(value float64) string {
	return strconv.FormatFloat(value, 'f', f.Decimals, 64)
}

// FormatAttributeValue renders a value for attribute publication without
// rounding. Integral values render without a decimal point.
func FormatAttributeValue(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
