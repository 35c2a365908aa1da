package openweather

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

const (
	testAPIKey        = "owm-test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var fetchedAt = time.Date(2024, 7, 30, 6, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return &Client{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		clock:      clockwork.NewFakeClockAt(fetchedAt),
		metrics:    observability.NewMetricsForTesting(),
		logger:     testLogger(),
	}
}

const wayanadResponse = `{
	"name": "Kalpetta",
	"main": {"temp": 22.4, "feels_like": 22.9, "humidity": 94, "pressure": 1006},
	"weather": [{"main": "Rain", "description": "heavy intensity rain", "icon": "10d"}],
	"wind": {"speed": 6.2, "deg": 250, "gust": 11.3},
	"visibility": 4000
}`

func TestClient_CurrentByCoord_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "11.6854", q.Get("lat"))
		assert.Equal(t, "76.132", q.Get("lon"))
		assert.Equal(t, testAPIKey, q.Get("appid"))
		assert.Equal(t, "metric", q.Get("units"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, wayanadResponse)
	}))
	defer srv.Close()

	cond, err := testClient(srv.URL).CurrentByCoord(context.Background(), 11.6854, 76.132)
	require.NoError(t, err)

	assert.Equal(t, "Kalpetta", cond.Name)
	assert.Equal(t, 22.4, cond.Temp)
	assert.Equal(t, 22.9, *cond.FeelsLike)
	assert.Equal(t, 94.0, cond.Humidity)
	assert.Equal(t, 1006.0, cond.Pressure)
	assert.Equal(t, "Rain", cond.Summary)
	assert.Equal(t, "heavy intensity rain", cond.Description)
	assert.Equal(t, "10d", cond.Icon)
	assert.Equal(t, 6.2, cond.WindSpeed)
	assert.Equal(t, "WSW", cond.WindCompass)
	assert.Equal(t, 11.3, *cond.WindGust)
	assert.Equal(t, 4000, *cond.Visibility)
	assert.Equal(t, fetchedAt, cond.FetchedAt)
}

func TestClient_CurrentByPlace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Wayanad,IN", r.URL.Query().Get("q"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, `{"name":"Wayanad","main":{"temp":20},"weather":[],"wind":{"speed":1}}`)
	}))
	defer srv.Close()

	cond, err := testClient(srv.URL).CurrentByPlace(context.Background(), " Wayanad,IN ")
	require.NoError(t, err)

	assert.Equal(t, "Wayanad", cond.Name)
	assert.Empty(t, cond.Summary)
	assert.Empty(t, cond.WindCompass, "no bearing, no compass label")
	assert.Nil(t, cond.Visibility)
}

func TestClient_UpstreamMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"cod":"404","message":"city not found"}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CurrentByPlace(context.Background(), "Atlantis")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "city not found")
}

func TestClient_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "bad gateway")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CurrentByCoord(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad gateway")
}

func TestClient_InvalidInput(t *testing.T) {
	c := testClient("http://127.0.0.1:0")

	_, err := c.CurrentByCoord(context.Background(), 95, 0)
	require.ErrorIs(t, err, domain.ErrInvalidCoordinates)

	_, err = c.CurrentByPlace(context.Background(), "  ")
	require.ErrorIs(t, err, domain.ErrInvalidCoordinates)
}

func TestClient_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "{")
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CurrentByCoord(context.Background(), 1, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient(testAPIKey, 3*time.Second, observability.NewMetricsForTesting(), testLogger())

	assert.Equal(t, "https://api.openweathermap.org/data/2.5/weather", c.baseURL)
	assert.Equal(t, 3*time.Second, c.httpClient.Timeout)
}
