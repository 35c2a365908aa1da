package domain

import "fmt"

// TileLayer describes one raster layer of the weather map.
type TileLayer struct {
	Name        string  `json:"name"`
	URLTemplate string  `json:"url_template"`
	Attribution string  `json:"attribution,omitempty"`
	Opacity     float64 `json:"opacity"`
	Enabled     bool    `json:"enabled"`
}

// MapConfig is what a client needs to draw the weather map.
type MapConfig struct {
	Center    [2]float64          `json:"center"`
	Zoom      int                 `json:"zoom"`
	Base      TileLayer           `json:"base"`
	Overlays  []TileLayer         `json:"overlays"`
	Locations []MonitoredLocation `json:"locations"`
}

// Overlay layer names exposed by the tile proxy.
const (
	LayerTemperature   = "temperature"
	LayerPrecipitation = "precipitation"
)

// ValidateLayer reports ErrLayerUnknown for a name that is not an overlay layer.
func ValidateLayer(name string) error {
	switch name {
	case LayerTemperature, LayerPrecipitation:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrLayerUnknown, name)
	}
}

// DefaultMapConfig centers on Kerala with the OpenStreetMap base and the two
// weather overlays served through tilePrefix, e.g. "/api/tiles".
func DefaultMapConfig(tilePrefix string) MapConfig {
	overlay := func(name string, enabled bool) TileLayer {
		return TileLayer{
			Name:        name,
			URLTemplate: fmt.Sprintf("%s/%s/{z}/{x}/{y}.png", tilePrefix, name),
			Attribution: "© OpenWeatherMap",
			Opacity:     0.3,
			Enabled:     enabled,
		}
	}

	return MapConfig{
		Center: [2]float64{10.8505, 76.2711},
		Zoom:   6,
		Base: TileLayer{
			Name:        "OpenStreetMap",
			URLTemplate: "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors",
			Opacity:     1,
			Enabled:     true,
		},
		Overlays: []TileLayer{
			overlay(LayerTemperature, true),
			overlay(LayerPrecipitation, false),
		},
		Locations: MonitoredLocations(),
	}
}

// Tile is a proxied map tile image.
type Tile struct {
	ContentType string
	Data        []byte
}

// ValidateTile checks that x and y fall inside the grid of zoom level z.
func ValidateTile(z, x, y int) error {
	if z < 0 || z > 22 {
		return fmt.Errorf("%w: zoom %d", ErrInvalidTile, z)
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return fmt.Errorf("%w: %d/%d/%d", ErrInvalidTile, z, x, y)
	}
	return nil
}
