// Package webhook posts emergency alerts to the alert automation workflow.
package webhook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

const upstreamName = "webhook"

// Notifier triggers alert calls through an HTTP webhook. Requests are not
// retried because the workflow places phone calls.
type Notifier struct {
	rest    *resty.Client
	url     string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewNotifier creates a notifier posting to url.
func NewNotifier(url string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	rest := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Notifier{
		rest:    rest,
		url:     url,
		metrics: metrics,
		logger:  logger,
	}
}

// Notify posts the alert request. Any non-2xx response is an error.
func (n *Notifier) Notify(ctx context.Context, req domain.AlertRequest) error {
	start := time.Now()
	resp, err := n.rest.R().
		SetContext(ctx).
		SetBody(req).
		Post(n.url)
	n.metrics.UpstreamDuration.WithLabelValues(upstreamName).Observe(time.Since(start).Seconds())

	if err != nil {
		n.metrics.UpstreamRequests.WithLabelValues(upstreamName, "error").Inc()
		return fmt.Errorf("alert webhook request: %w", err)
	}
	if resp.IsError() {
		n.metrics.UpstreamRequests.WithLabelValues(upstreamName, "error").Inc()
		body := strings.TrimSpace(resp.String())
		if len(body) > 200 {
			body = body[:200]
		}
		return fmt.Errorf("alert webhook: status %d: %s", resp.StatusCode(), body)
	}

	n.metrics.UpstreamRequests.WithLabelValues(upstreamName, "success").Inc()
	n.logger.Info("alert webhook accepted", "target", req.Target, "status", resp.StatusCode())
	return nil
}
