package openweather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func testTileProxy(baseURL string) *TileProxy {
	return &TileProxy{
		apiKey:     testAPIKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		metrics:    observability.NewMetricsForTesting(),
		logger:     testLogger(),
	}
}

func TestTileProxy_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/precipitation_new/6/45/30.png", r.URL.Path)
		assert.Equal(t, testAPIKey, r.URL.Query().Get("appid"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngMagic)
	}))
	defer srv.Close()

	tile, err := testTileProxy(srv.URL).Fetch(context.Background(), domain.LayerPrecipitation, 6, 45, 30)
	require.NoError(t, err)

	assert.Equal(t, "image/png", tile.ContentType)
	assert.Equal(t, pngMagic, tile.Data)
}

func TestTileProxy_UnknownLayer(t *testing.T) {
	_, err := testTileProxy("http://127.0.0.1:0").Fetch(context.Background(), "clouds", 1, 0, 0)
	require.ErrorIs(t, err, domain.ErrLayerUnknown)
}

func TestTileProxy_InvalidTile(t *testing.T) {
	_, err := testTileProxy("http://127.0.0.1:0").Fetch(context.Background(), domain.LayerTemperature, 2, 4, 0)
	require.ErrorIs(t, err, domain.ErrInvalidTile)
}

func TestTileProxy_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testTileProxy(srv.URL).Fetch(context.Background(), domain.LayerTemperature, 0, 0, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
