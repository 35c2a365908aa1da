// Package openweather fetches current conditions and map tiles from
// OpenWeatherMap.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

const weatherUpstream = "openweather"

// Client implements domain.WeatherProvider using the current weather API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentByCoord returns the conditions at a point.
func (c *Client) CurrentByCoord(ctx context.Context, lat, lon float64) (domain.Conditions, error) {
	if err := domain.ValidateCoordinates(lat, lon); err != nil {
		return domain.Conditions{}, err
	}
	params := url.Values{
		"lat": {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon": {strconv.FormatFloat(lon, 'f', -1, 64)},
	}
	return c.doRequest(ctx, params, "coord")
}

// CurrentByPlace returns the conditions for a place name such as "Wayanad,IN".
func (c *Client) CurrentByPlace(ctx context.Context, name string) (domain.Conditions, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Conditions{}, fmt.Errorf("%w: empty place name", domain.ErrInvalidCoordinates)
	}
	return c.doRequest(ctx, url.Values{"q": {name}}, "place")
}

func (c *Client) doRequest(ctx context.Context, params url.Values, lookup string) (domain.Conditions, error) {
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.Conditions{}, fmt.Errorf("create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.UpstreamDuration.WithLabelValues(weatherUpstream).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(weatherUpstream, "error").Inc()
		return domain.Conditions{}, fmt.Errorf("%s weather request: %w", lookup, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.UpstreamRequests.WithLabelValues(weatherUpstream, "error").Inc()
		body, _ := io.ReadAll(resp.Body)
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return domain.Conditions{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return domain.Conditions{}, fmt.Errorf("openweather API error: status %d: %s", resp.StatusCode, body)
	}

	var owm response
	if err := json.NewDecoder(resp.Body).Decode(&owm); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(weatherUpstream, "error").Inc()
		return domain.Conditions{}, fmt.Errorf("decode response: %w", err)
	}
	c.metrics.UpstreamRequests.WithLabelValues(weatherUpstream, "success").Inc()

	return owm.toConditions(c.clock.Now()), nil
}

// OpenWeatherMap API response types.

type errorResponse struct {
	Message string `json:"message"`
}

type response struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64  `json:"temp"`
		FeelsLike *float64 `json:"feels_like"`
		Humidity  float64  `json:"humidity"`
		Pressure  float64  `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
		Gust  *float64 `json:"gust"`
	} `json:"wind"`
	Visibility *int `json:"visibility"`
}

func (r response) toConditions(now time.Time) domain.Conditions {
	cond := domain.Conditions{
		Name:       r.Name,
		Temp:       r.Main.Temp,
		FeelsLike:  r.Main.FeelsLike,
		Humidity:   r.Main.Humidity,
		Pressure:   r.Main.Pressure,
		WindSpeed:  r.Wind.Speed,
		WindDeg:    r.Wind.Deg,
		WindGust:   r.Wind.Gust,
		Visibility: r.Visibility,
		FetchedAt:  now,
	}
	if len(r.Weather) > 0 {
		cond.Summary = r.Weather[0].Main
		cond.Description = r.Weather[0].Description
		cond.Icon = r.Weather[0].Icon
	}
	if r.Wind.Deg != nil {
		cond.WindCompass = domain.Compass(*r.Wind.Deg)
	}
	return cond
}
