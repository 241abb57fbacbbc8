package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/weatherdesk/degreeday/internal/grid"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// TemperatureField is one forecast day of one model run: a 2-D temperature
// raster with its own coordinate axes, already converted to fahrenheit.
// Ephemeral: consumed by the aggregator and discarded.
type TemperatureField struct {
	Model string
	RunID string
	Date  Date
	// Temps holds fahrenheit values on the field's native grid.
	Temps *grid.Grid
}

// fieldPayload is the flat JSON shape published by the fetch/decode
// collaborator for each forecast day.
type fieldPayload struct {
	Model  string      `json:"model"`
	RunID  string      `json:"run_id"`
	Date   Date        `json:"date"`
	Unit   string      `json:"unit"` // "K", "C", or "F"
	Lats   []float64   `json:"lats"`
	Lons   []float64   `json:"lons"`
	Values [][]float64 `json:"values"`
}

// ParseRawField deserializes a RawEvent into a TemperatureField, validating
// identity fields and coordinate axes and converting values to fahrenheit.
func ParseRawField(raw RawEvent) (TemperatureField, error) {
	var p fieldPayload
	if err := json.Unmarshal(raw.Value, &p); err != nil {
		return TemperatureField{}, fmt.Errorf("parse field event: %w", err)
	}
	if p.Model == "" || p.RunID == "" {
		return TemperatureField{}, fmt.Errorf("parse field event: missing model or run_id")
	}
	if p.Date.IsZero() {
		return TemperatureField{}, fmt.Errorf("parse field event: missing date")
	}

	convert, err := toFahrenheit(p.Unit)
	if err != nil {
		return TemperatureField{}, fmt.Errorf("parse field event: %w", err)
	}
	for _, row := range p.Values {
		for j, v := range row {
			row[j] = convert(v)
		}
	}

	g, err := grid.New(p.Lats, p.Lons, p.Values)
	if err != nil {
		return TemperatureField{}, fmt.Errorf("parse field event: %w", err)
	}

	return TemperatureField{
		Model: p.Model,
		RunID: p.RunID,
		Date:  p.Date,
		Temps: g,
	}, nil
}

// toFahrenheit returns the conversion for the declared unit.
func toFahrenheit(unit string) (func(float64) float64, error) {
	switch unit {
	case "K", "k":
		return KelvinToFahrenheit, nil
	case "C", "c":
		return CelsiusToFahrenheit, nil
	case "F", "f", "":
		return func(v float64) float64 { return v }, nil
	default:
		return nil, fmt.Errorf("unknown temperature unit %q", unit)
	}
}

// KelvinToFahrenheit converts an absolute temperature to fahrenheit.
func KelvinToFahrenheit(k float64) float64 { return (k-273.15)*9/5 + 32 }

// CelsiusToFahrenheit converts celsius to fahrenheit.
func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }
