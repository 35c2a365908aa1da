package supabase

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resqlink/early-warning-service/internal/config"
	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

const (
	testKey           = "anon-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(baseURL string, retries int) *Client {
	cfg := &config.Config{
		SupabaseURL:     baseURL,
		SupabaseKey:     testKey,
		SupabaseTimeout: 5 * time.Second,
		SupabaseRetries: retries,
		SensorTable:     "sensor_data",
		MessagesTable:   "messages",
		UsersTable:      "users",
	}
	return NewClient(cfg, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_SensorReadings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/sensor_data", r.URL.Path)
		assert.Equal(t, "*", r.URL.Query().Get("select"))
		assert.Equal(t, "timestamp.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, testKey, r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+testKey, r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, `[
			{"id":2,"timestamp":"2024-07-30T01:00:00Z","soil_moisture":55.5,"danger":true},
			{"id":1,"timestamp":"2024-07-30T00:00:00Z","rainfall":4}
		]`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL, 0).SensorReadings(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, rows, 2)
	assert.Equal(t, domain.ID("2"), rows[0].ID)
	assert.True(t, rows[0].Danger)
	assert.Equal(t, 55.5, *rows[0].SoilMoisture)
	assert.Equal(t, 4.0, *rows[1].Rainfall)
}

func TestClient_SensorReadings_NoLimitForAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("limit"))
		writeJSON(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL, 0).SensorReadings(context.Background(), domain.RangeAll.Limit())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClient_Messages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/messages", r.URL.Path)
		assert.Equal(t, "id.desc", r.URL.Query().Get("order"))
		writeJSON(w, http.StatusOK, `[{"id":5,"username":"anu","message":"Cracks on the road","from_node":"Node 2","created_at":"2024-07-30T06:07:08Z"}]`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL, 0).Messages(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "anu", *rows[0].Username)
	assert.Equal(t, "Node 2", *rows[0].FromNode)
}

func TestClient_UserLocations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/users", r.URL.Path)
		assert.Equal(t, "not.is.null", r.URL.Query().Get("latitude"))
		assert.Equal(t, "not.is.null", r.URL.Query().Get("longitude"))
		assert.Equal(t, "id,latitude,longitude,name,phone", r.URL.Query().Get("select"))
		writeJSON(w, http.StatusOK, `[{"id":"u1","latitude":10.1,"longitude":76.2,"name":"Anu","phone":"123"}]`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL, 0).UserLocations(context.Background())
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, 10.1, *rows[0].Latitude)
}

func TestClient_ErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"code":"42P01","message":"relation \"public.sensor_data\" does not exist"}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.SensorReadings(context.Background(), 10)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "does not exist")
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.UpstreamRequests.WithLabelValues(upstreamName, "error")))
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, `{"message":"starting up"}`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id":1}]`)
	}))
	defer srv.Close()

	rows, err := testClient(srv.URL, 1).SensorReadings(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{not json`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 0).Messages(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode messages rows")
}

func TestClient_CheckReadiness(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL, 0).CheckReadiness(context.Background()))
}

func TestClient_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL, 0).UserLocations(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
