package domain

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Conditions is the current weather at a point.
type Conditions struct {
	Name        string    `json:"name"`
	Temp        float64   `json:"temp"`
	FeelsLike   *float64  `json:"feels_like,omitempty"`
	Humidity    float64   `json:"humidity"`
	Pressure    float64   `json:"pressure"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Icon        string    `json:"icon,omitempty"`
	WindSpeed   float64   `json:"wind_speed"`
	WindDeg     *float64  `json:"wind_deg,omitempty"`
	WindGust    *float64  `json:"wind_gust,omitempty"`
	WindCompass string    `json:"wind_compass,omitempty"`
	Visibility  *int      `json:"visibility,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// WeatherProvider looks up current conditions.
type WeatherProvider interface {
	CurrentByCoord(ctx context.Context, lat, lon float64) (Conditions, error)
	CurrentByPlace(ctx context.Context, name string) (Conditions, error)
}

var compassPoints = [16]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// Compass converts a wind bearing in degrees to a 16-point compass label.
func Compass(deg float64) string {
	idx := int(math.Floor(deg/22.5+0.5)) % 16
	if idx < 0 {
		idx += 16
	}
	return compassPoints[idx]
}

// ValidateCoordinates checks WGS-84 bounds.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, lat, lon)
	}
	return nil
}
