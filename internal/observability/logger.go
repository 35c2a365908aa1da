package observability

import (
	"log/slog"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/resqlink/early-warning-service/internal/config"
)

const serviceName = "resqlink-dashboard"

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT, tags
// every line with the service name, and installs it as the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
	slog.SetDefault(logger)
	return logger
}
