package domain

import (
	"encoding/json"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestSensorReadingUnmarshal(t *testing.T) {
	t.Run("numeric id and full row", func(t *testing.T) {
		data := []byte(`{"id":42,"timestamp":"2024-07-30T01:15:00+00:00","location":"Sensor 1","rainfall":12.5,"vibration":3,"temperature":24.1,"soil_moisture":61.2,"pore_water_pressure":8.4,"alert":true,"danger":false}`)

		var r SensorReading
		require.NoError(t, json.Unmarshal(data, &r))

		assert.Equal(t, ID("42"), r.ID)
		assert.Equal(t, time.Date(2024, 7, 30, 1, 15, 0, 0, time.UTC), r.Timestamp)
		assert.Equal(t, "Sensor 1", r.Location)
		assert.Equal(t, 12.5, *r.Rainfall)
		assert.Equal(t, 61.2, *r.SoilMoisture)
		assert.Nil(t, r.Moisture)
		assert.True(t, r.Alert)
		assert.False(t, r.Danger)
	})

	t.Run("string id and sparse row", func(t *testing.T) {
		data := []byte(`{"id":"sensor_3","timestamp":"2024-07-30 01:15:00.123456","location":null,"moisture":40}`)

		var r SensorReading
		require.NoError(t, json.Unmarshal(data, &r))

		assert.Equal(t, ID("sensor_3"), r.ID)
		assert.Equal(t, time.Date(2024, 7, 30, 1, 15, 0, 123456000, time.UTC), r.Timestamp)
		assert.Empty(t, r.Location)
		assert.Nil(t, r.Rainfall)
		assert.Equal(t, 40.0, *r.MoistureValue())
	})

	t.Run("created_at fallback", func(t *testing.T) {
		var r SensorReading
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"created_at":"2024-07-30T02:00:00Z"}`), &r))
		assert.Equal(t, time.Date(2024, 7, 30, 2, 0, 0, 0, time.UTC), r.Timestamp)
	})

	t.Run("unparseable timestamp leaves zero", func(t *testing.T) {
		var r SensorReading
		require.NoError(t, json.Unmarshal([]byte(`{"id":1,"timestamp":"yesterday"}`), &r))
		assert.True(t, r.Timestamp.IsZero())
	})

	t.Run("invalid json", func(t *testing.T) {
		var r SensorReading
		err := json.Unmarshal([]byte(`{"id":`), &r)
		require.Error(t, err)
	})

	t.Run("survives own encoding", func(t *testing.T) {
		in := SensorReading{ID: "7", Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), Location: "Ridge", Rainfall: ptr(1.5), Danger: true}
		b, err := json.Marshal(in)
		require.NoError(t, err)

		var out SensorReading
		require.NoError(t, json.Unmarshal(b, &out))
		if diff := cmp.Diff(in, out); diff != "" {
			t.Errorf("reading mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParseDataRange(t *testing.T) {
	tests := []struct {
		in    string
		want  DataRange
		limit int
	}{
		{"", Range10, 10},
		{"10", Range10, 10},
		{"100", Range100, 100},
		{"all", RangeAll, 0},
		{" ALL ", RangeAll, 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDataRange(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.limit, got.Limit())
		})
	}

	_, err := ParseDataRange("1000")
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestRiskOf(t *testing.T) {
	assert.Equal(t, RiskLow, RiskOf(nil))
	assert.Equal(t, RiskLow, RiskOf(&SensorReading{}))
	assert.Equal(t, RiskMedium, RiskOf(&SensorReading{Alert: true}))
	assert.Equal(t, RiskHigh, RiskOf(&SensorReading{Alert: true, Danger: true}))
}

func TestSummarize(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := Summarize(nil)
		assert.Equal(t, SensorSummary{Risk: RiskLow}, s)
	})

	t.Run("missing values are skipped", func(t *testing.T) {
		readings := []SensorReading{
			{Rainfall: ptr(10), Vibration: ptr(2), Temperature: ptr(20)},
			{Rainfall: ptr(30), Temperature: ptr(30), Danger: true},
			{Vibration: ptr(4), Alert: true},
		}
		s := Summarize(readings)

		assert.Equal(t, 3, s.Count)
		assert.InDelta(t, 20.0, s.AvgRainfall, 1e-9)
		assert.InDelta(t, 3.0, s.AvgVibration, 1e-9)
		assert.InDelta(t, 25.0, s.AvgTemperature, 1e-9)
		assert.Equal(t, RiskMedium, s.Risk, "risk comes from the last reading")
	})
}

func TestNewSensorPanel(t *testing.T) {
	now := time.Date(2024, 7, 30, 12, 0, 0, 0, time.UTC)
	newestFirst := []SensorReading{
		{ID: "3", Timestamp: now.Add(-time.Minute), SoilMoisture: ptr(70), Moisture: ptr(10), Danger: true},
		{ID: "2", Timestamp: now.Add(-2 * time.Minute), Moisture: ptr(50)},
		{ID: "1", Timestamp: now.Add(-3 * time.Minute)},
	}

	panel := NewSensorPanel(Range10, newestFirst, now)

	require.Len(t, panel.Readings, 3)
	assert.Equal(t, ID("1"), panel.Readings[0].ID)
	assert.Equal(t, ID("3"), panel.Readings[2].ID)
	assert.Equal(t, ID("3"), newestFirst[0].ID, "input must not be reordered")
	assert.Equal(t, RiskHigh, panel.Summary.Risk)
	assert.Equal(t, now, panel.UpdatedAt)
	assert.False(t, panel.Stale)

	require.Len(t, panel.Chart, 3)
	assert.Equal(t, "11:57", panel.Chart[0].Time)
	assert.Nil(t, panel.Chart[0].Moisture)
	assert.Equal(t, 50.0, *panel.Chart[1].Moisture)
	assert.Equal(t, 70.0, *panel.Chart[2].Moisture, "soil_moisture wins over moisture")
}

func TestGenerateDemoReadings(t *testing.T) {
	now := time.Date(2024, 7, 30, 12, 30, 0, 0, time.UTC)
	readings := GenerateDemoReadings(now, rand.New(rand.NewPCG(1, 2)))

	require.Len(t, readings, 24)
	assert.Equal(t, now.Add(-23*time.Hour), readings[0].Timestamp)
	assert.Equal(t, now, readings[23].Timestamp)
	assert.Equal(t, ID("sensor_23"), readings[0].ID)
	assert.Equal(t, ID("sensor_0"), readings[23].ID)
	assert.Equal(t, "Sensor 1", readings[23].Location)

	for i, r := range readings {
		hoursAgo := 23 - i
		assert.GreaterOrEqual(t, *r.Temperature, 20.0)
		assert.Less(t, *r.Temperature, 35.0)
		assert.GreaterOrEqual(t, *r.Moisture, 30.0)
		assert.Less(t, *r.Moisture, 70.0)
		if hoursAgo < 5 {
			assert.GreaterOrEqual(t, *r.Rainfall, 20.0, "recent hours are wetter")
		}
		if hoursAgo < 3 {
			assert.GreaterOrEqual(t, *r.Vibration, 5.0, "recent hours shake more")
		}
	}
}
