package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// ID is a row identifier that may arrive as a JSON number or string.
type ID string

// UnmarshalJSON accepts 42, "42" and null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*id = ""
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("decode id: %w", err)
		}
		*id = ID(n.String())
	}
	return nil
}

// SensorReading is one row of the sensor table.
type SensorReading struct {
	ID                ID        `json:"id"`
	Timestamp         time.Time `json:"timestamp"`
	Location          string    `json:"location,omitempty"`
	Rainfall          *float64  `json:"rainfall,omitempty"`
	Vibration         *float64  `json:"vibration,omitempty"`
	Temperature       *float64  `json:"temperature,omitempty"`
	Moisture          *float64  `json:"moisture,omitempty"`
	SoilMoisture      *float64  `json:"soil_moisture,omitempty"`
	PoreWaterPressure *float64  `json:"pore_water_pressure,omitempty"`
	Alert             bool      `json:"alert"`
	Danger            bool      `json:"danger"`
}

// UnmarshalJSON decodes a row tolerantly. The timestamp falls back to
// created_at, and an unparseable time leaves Timestamp zero.
func (r *SensorReading) UnmarshalJSON(b []byte) error {
	type alias SensorReading
	aux := struct {
		*alias
		Timestamp string  `json:"timestamp"`
		CreatedAt string  `json:"created_at"`
		Location  *string `json:"location"`
	}{alias: (*alias)(r)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return fmt.Errorf("decode sensor reading: %w", err)
	}

	r.Timestamp = ParseTimestamp(aux.Timestamp)
	if r.Timestamp.IsZero() {
		r.Timestamp = ParseTimestamp(aux.CreatedAt)
	}
	r.Location = ""
	if aux.Location != nil {
		r.Location = *aux.Location
	}
	return nil
}

// MoistureValue prefers soil_moisture and falls back to moisture.
func (r SensorReading) MoistureValue() *float64 {
	if r.SoilMoisture != nil {
		return r.SoilMoisture
	}
	return r.Moisture
}

// timestampLayouts covers what Postgres emits for timestamptz and timestamp
// columns through PostgREST.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses a database timestamp. Values without a zone are
// taken as UTC. Returns zero time when nothing matches.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// DataRange selects how many of the newest readings to show.
type DataRange string

const (
	Range10  DataRange = "10"
	Range100 DataRange = "100"
	RangeAll DataRange = "all"
)

// ParseDataRange validates a range selector. Empty input means Range10.
func ParseDataRange(s string) (DataRange, error) {
	switch DataRange(strings.ToLower(strings.TrimSpace(s))) {
	case "", Range10:
		return Range10, nil
	case Range100:
		return Range100, nil
	case RangeAll:
		return RangeAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
}

// Limit returns the row limit for the range, or 0 for no limit.
func (r DataRange) Limit() int {
	switch r {
	case Range100:
		return 100
	case RangeAll:
		return 0
	default:
		return 10
	}
}

// RiskLevel is the summary-card risk scale.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RiskOf classifies the newest reading. A nil reading is low risk.
func RiskOf(latest *SensorReading) RiskLevel {
	switch {
	case latest == nil:
		return RiskLow
	case latest.Danger:
		return RiskHigh
	case latest.Alert:
		return RiskMedium
	default:
		return RiskLow
	}
}

// SensorSummary aggregates the readings in view.
type SensorSummary struct {
	Count          int       `json:"count"`
	AvgRainfall    float64   `json:"avg_rainfall"`
	AvgVibration   float64   `json:"avg_vibration"`
	AvgTemperature float64   `json:"avg_temperature"`
	Risk           RiskLevel `json:"risk"`
}

// Summarize averages each measurement over the readings that carry it and
// rates risk from the last reading. Readings must be ordered oldest first.
func Summarize(readings []SensorReading) SensorSummary {
	var rain, vib, temp mean
	for _, r := range readings {
		rain.add(r.Rainfall)
		vib.add(r.Vibration)
		temp.add(r.Temperature)
	}

	var latest *SensorReading
	if len(readings) > 0 {
		latest = &readings[len(readings)-1]
	}

	return SensorSummary{
		Count:          len(readings),
		AvgRainfall:    rain.value(),
		AvgVibration:   vib.value(),
		AvgTemperature: temp.value(),
		Risk:           RiskOf(latest),
	}
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// ChartPoint is one x-axis position of the sensor chart.
type ChartPoint struct {
	Time              string   `json:"time"`
	Moisture          *float64 `json:"moisture,omitempty"`
	PoreWaterPressure *float64 `json:"pore_water_pressure,omitempty"`
	Rainfall          *float64 `json:"rainfall,omitempty"`
	Vibration         *float64 `json:"vibration,omitempty"`
}

// ChartSeries maps readings to chart points labelled HH:MM in UTC.
func ChartSeries(readings []SensorReading) []ChartPoint {
	points := make([]ChartPoint, 0, len(readings))
	for _, r := range readings {
		points = append(points, ChartPoint{
			Time:              r.Timestamp.UTC().Format("15:04"),
			Moisture:          r.MoistureValue(),
			PoreWaterPressure: r.PoreWaterPressure,
			Rainfall:          r.Rainfall,
			Vibration:         r.Vibration,
		})
	}
	return points
}

// SensorPanel is everything the sensor section of the dashboard renders.
type SensorPanel struct {
	Range     DataRange       `json:"range"`
	Readings  []SensorReading `json:"readings"`
	Summary   SensorSummary   `json:"summary"`
	Chart     []ChartPoint    `json:"chart"`
	UpdatedAt time.Time       `json:"updated_at"`
	Stale     bool            `json:"stale"`
}

// NewSensorPanel builds a panel from rows fetched newest first. The input
// slice is not modified.
func NewSensorPanel(r DataRange, newestFirst []SensorReading, now time.Time) SensorPanel {
	readings := make([]SensorReading, len(newestFirst))
	for i, reading := range newestFirst {
		readings[len(newestFirst)-1-i] = reading
	}

	return SensorPanel{
		Range:     r,
		Readings:  readings,
		Summary:   Summarize(readings),
		Chart:     ChartSeries(readings),
		UpdatedAt: now,
	}
}

// GenerateDemoReadings produces 24 hourly readings ending at now, ordered
// oldest first. The most recent hours are skewed wetter and shakier so the
// demo shows a developing event.
func GenerateDemoReadings(now time.Time, rng *rand.Rand) []SensorReading {
	const hours = 24
	readings := make([]SensorReading, 0, hours)

	for i := hours - 1; i >= 0; i-- {
		rain := rng.Float64() * 50
		if i < 5 {
			rain += 20
		}
		vib := rng.Float64() * 10
		if i < 3 {
			vib += 5
		}
		temp := 20 + rng.Float64()*15
		moisture := 30 + rng.Float64()*40

		readings = append(readings, SensorReading{
			ID:          ID(fmt.Sprintf("sensor_%d", i)),
			Timestamp:   now.UTC().Add(-time.Duration(i) * time.Hour),
			Location:    fmt.Sprintf("Sensor %d", i%3+1),
			Rainfall:    &rain,
			Vibration:   &vib,
			Temperature: &temp,
			Moisture:    &moisture,
		})
	}
	return readings
}
