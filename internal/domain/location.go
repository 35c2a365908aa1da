package domain

// UserRow is one row of the users table as returned by the location query.
type UserRow struct {
	ID        ID       `json:"id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Name      *string  `json:"name"`
	Phone     *string  `json:"phone"`
}

// SOSLocation is a citizen who shared a position.
type SOSLocation struct {
	ID        ID      `json:"id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
	Phone     string  `json:"phone"`
}

// SOSFeed is the payload of the SOS map panel.
type SOSFeed struct {
	Locations []SOSLocation `json:"locations"`
	Stale     bool          `json:"stale"`
}

// SOSLocations keeps the rows that carry both coordinates.
func SOSLocations(rows []UserRow) []SOSLocation {
	out := make([]SOSLocation, 0, len(rows))
	for _, row := range rows {
		if row.Latitude == nil || row.Longitude == nil {
			continue
		}
		out = append(out, SOSLocation{
			ID:        row.ID,
			Latitude:  *row.Latitude,
			Longitude: *row.Longitude,
			Name:      valueOr(row.Name, ""),
			Phone:     valueOr(row.Phone, ""),
		})
	}
	return out
}

// MonitoredLocation is a fixed point of interest on the weather map.
type MonitoredLocation struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

var monitoredLocations = []MonitoredLocation{
	{Name: "Kerala, India", Lat: 10.8505, Lon: 76.2711},
	{Name: "Sydney", Lat: -33.8688, Lon: 151.2093},
	{Name: "Tokyo", Lat: 35.6762, Lon: 139.6503},
	{Name: "Miami", Lat: 25.7617, Lon: -80.1918},
	{Name: "Jakarta", Lat: -6.2088, Lon: 106.8456},
	{Name: "Mexico City", Lat: 19.4326, Lon: -99.1332},
	{Name: "Manila", Lat: 14.5995, Lon: 120.9842},
	{Name: "Rio", Lat: -22.9068, Lon: -43.1729},
	{Name: "Shanghai", Lat: 31.2304, Lon: 121.4737},
	{Name: "San Francisco", Lat: 37.7749, Lon: -122.4194},
}

// MonitoredLocations returns the disaster-prone places shown on the weather
// map. The returned slice is a copy.
func MonitoredLocations() []MonitoredLocation {
	out := make([]MonitoredLocation, len(monitoredLocations))
	copy(out, monitoredLocations)
	return out
}

// LocationWeather pairs a monitored location with its current conditions or
// the error that prevented fetching them.
type LocationWeather struct {
	Location   MonitoredLocation `json:"location"`
	Conditions *Conditions       `json:"conditions,omitempty"`
	Error      string            `json:"error,omitempty"`
}
