package openweather

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

const tilesUpstream = "tiles"

// maxTileBytes bounds a proxied tile; weather tiles are a few KiB.
const maxTileBytes = 1 << 20

// overlayLayers maps public layer names to OpenWeatherMap layer ids.
var overlayLayers = map[string]string{
	domain.LayerTemperature:   "temp_new",
	domain.LayerPrecipitation: "precipitation_new",
}

// TileProxy fetches weather overlay tiles so the API key stays server side.
type TileProxy struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewTileProxy creates a tile proxy for the OpenWeatherMap tile server.
func NewTileProxy(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *TileProxy {
	return &TileProxy{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://tile.openweathermap.org/map",
		metrics:    metrics,
		logger:     logger,
	}
}

// Fetch returns the tile at z/x/y of the named overlay layer.
func (p *TileProxy) Fetch(ctx context.Context, layer string, z, x, y int) (domain.Tile, error) {
	id, ok := overlayLayers[layer]
	if !ok {
		return domain.Tile{}, fmt.Errorf("%w: %q", domain.ErrLayerUnknown, layer)
	}
	if err := domain.ValidateTile(z, x, y); err != nil {
		return domain.Tile{}, err
	}

	u := fmt.Sprintf("%s/%s/%d/%d/%d.png?appid=%s", p.baseURL, id, z, x, y, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Tile{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	p.metrics.UpstreamDuration.WithLabelValues(tilesUpstream).Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.UpstreamRequests.WithLabelValues(tilesUpstream, "error").Inc()
		return domain.Tile{}, fmt.Errorf("tile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.metrics.UpstreamRequests.WithLabelValues(tilesUpstream, "error").Inc()
		return domain.Tile{}, fmt.Errorf("tile server error: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTileBytes))
	if err != nil {
		p.metrics.UpstreamRequests.WithLabelValues(tilesUpstream, "error").Inc()
		return domain.Tile{}, fmt.Errorf("read tile: %w", err)
	}
	p.metrics.UpstreamRequests.WithLabelValues(tilesUpstream, "success").Inc()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return domain.Tile{ContentType: contentType, Data: data}, nil
}
