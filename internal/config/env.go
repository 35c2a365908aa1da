package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// parseDuration reads a positive duration from key, like
// sharedcfg.ParseShutdownTimeout does for SHUTDOWN_TIMEOUT.
func parseDuration(key, fallback string) (time.Duration, error) {
	raw := sharedcfg.EnvOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

// parsePositiveInt reads an integer >= min from key.
func parsePositiveInt(key string, fallback, min int) (int, error) {
	raw := sharedcfg.EnvOrDefault(key, strconv.Itoa(fallback))
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}

// parseFlag reports an explicit boolean override for key. ok is false when
// the variable is unset.
func parseFlag(key string) (value, ok bool, err error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return false, false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, true, nil
}
