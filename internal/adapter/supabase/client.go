// Package supabase reads dashboard tables through the PostgREST interface of
// a hosted Postgres project.
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/resqlink/early-warning-service/internal/config"
	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

const upstreamName = "supabase"

// Client queries the sensor, messages and users tables.
type Client struct {
	rest          *resty.Client
	sensorTable   string
	messagesTable string
	usersTable    string
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewClient creates a REST client for the project at cfg.SupabaseURL.
// Reads are retried on transport errors and 5xx responses.
func NewClient(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(cfg.SupabaseURL, "/")+"/rest/v1").
		SetTimeout(cfg.SupabaseTimeout).
		SetHeader("apikey", cfg.SupabaseKey).
		SetAuthToken(cfg.SupabaseKey).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.SupabaseRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &Client{
		rest:          rest,
		sensorTable:   cfg.SensorTable,
		messagesTable: cfg.MessagesTable,
		usersTable:    cfg.UsersTable,
		metrics:       metrics,
		logger:        logger,
	}
}

// errorBody is the PostgREST error shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// SensorReadings returns the newest readings first. A limit of 0 returns every row.
func (c *Client) SensorReadings(ctx context.Context, limit int) ([]domain.SensorReading, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "timestamp.desc")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var rows []domain.SensorReading
	if err := c.get(ctx, c.sensorTable, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Messages returns every message, newest first.
func (c *Client) Messages(ctx context.Context) ([]domain.MessageRow, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("order", "id.desc")

	var rows []domain.MessageRow
	if err := c.get(ctx, c.messagesTable, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UserLocations returns users that have shared both coordinates.
func (c *Client) UserLocations(ctx context.Context) ([]domain.UserRow, error) {
	params := url.Values{}
	params.Set("select", "id,latitude,longitude,name,phone")
	params.Set("latitude", "not.is.null")
	params.Set("longitude", "not.is.null")

	var rows []domain.UserRow
	if err := c.get(ctx, c.usersTable, params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CheckReadiness performs a one-row read of the sensor table.
func (c *Client) CheckReadiness(ctx context.Context) error {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("limit", "1")

	var rows []json.RawMessage
	return c.get(ctx, c.sensorTable, params, &rows)
}

func (c *Client) get(ctx context.Context, table string, params url.Values, out any) error {
	start := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get("/" + table)
	c.metrics.UpstreamDuration.WithLabelValues(upstreamName).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(upstreamName, "error").Inc()
		return fmt.Errorf("query %s: %w", table, err)
	}

	if resp.IsError() {
		c.metrics.UpstreamRequests.WithLabelValues(upstreamName, "error").Inc()
		var body errorBody
		if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil && body.Message != "" {
			return fmt.Errorf("query %s: status %d: %s", table, resp.StatusCode(), body.Message)
		}
		return fmt.Errorf("query %s: status %d", table, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		c.metrics.UpstreamRequests.WithLabelValues(upstreamName, "error").Inc()
		return fmt.Errorf("decode %s rows: %w", table, err)
	}

	c.metrics.UpstreamRequests.WithLabelValues(upstreamName, "success").Inc()
	c.logger.Debug("supabase query", "table", table, "status", resp.StatusCode(), "duration", time.Since(start))
	return nil
}
