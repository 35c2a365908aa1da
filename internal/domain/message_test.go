package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMessages(t *testing.T) {
	data := []byte(`[
		{"id":9,"username":"ravi","message":"Water rising near bridge","from_node":"Node 4","created_at":"2024-07-30T01:02:03.456+00:00"},
		{"id":8,"username":null,"message":null,"from_node":null,"created_at":"not a time"}
	]`)
	var rows []MessageRow
	require.NoError(t, json.Unmarshal(data, &rows))

	msgs := FormatMessages(rows)

	require.Len(t, msgs, 2)
	assert.Equal(t, ChatMessage{
		ID:        "9",
		Username:  "ravi",
		Message:   "Water rising near bridge",
		Node:      "Node 4",
		Timestamp: "01:02:03",
		Priority:  PriorityMedium,
	}, msgs[0])

	assert.Equal(t, "Unknown", msgs[1].Username)
	assert.Empty(t, msgs[1].Message)
	assert.Empty(t, msgs[1].Node)
	assert.Equal(t, "not a time", msgs[1].Timestamp)
}

func TestDefaultMessages(t *testing.T) {
	msgs := DefaultMessages()

	require.Len(t, msgs, 4)
	for _, m := range msgs {
		assert.Equal(t, "System", m.Username)
		assert.Equal(t, "Central Node", m.Node)
	}
	assert.Contains(t, msgs[0].Message, "High risk of landslide detected in Wayanad region")
	assert.Equal(t, "10:30 AM", msgs[0].Timestamp)
	assert.Equal(t, PriorityMedium, msgs[2].Priority)
	assert.Equal(t, PriorityHigh, msgs[3].Priority)
	assert.Equal(t, "10:45 AM", msgs[3].Timestamp)
}

func TestFailureMessages(t *testing.T) {
	msgs := FailureMessages()

	require.Len(t, msgs, 2)
	assert.Equal(t, DefaultMessages()[:2], msgs)
}

func TestSOSLocations(t *testing.T) {
	data := []byte(`[
		{"id":"u1","latitude":10.5,"longitude":76.1,"name":"Anu","phone":"+91 555"},
		{"id":"u2","latitude":null,"longitude":76.1,"name":"Ben","phone":null},
		{"id":3,"latitude":11,"longitude":77,"name":null,"phone":null}
	]`)
	var rows []UserRow
	require.NoError(t, json.Unmarshal(data, &rows))

	locs := SOSLocations(rows)

	require.Len(t, locs, 2)
	assert.Equal(t, SOSLocation{ID: "u1", Latitude: 10.5, Longitude: 76.1, Name: "Anu", Phone: "+91 555"}, locs[0])
	assert.Equal(t, ID("3"), locs[1].ID)
	assert.Empty(t, locs[1].Name)
}

func TestMonitoredLocations(t *testing.T) {
	locs := MonitoredLocations()

	require.Len(t, locs, 10)
	assert.Equal(t, MonitoredLocation{Name: "Kerala, India", Lat: 10.8505, Lon: 76.2711}, locs[0])
	assert.Equal(t, "San Francisco", locs[9].Name)

	locs[0].Name = "changed"
	assert.Equal(t, "Kerala, India", MonitoredLocations()[0].Name)
}
