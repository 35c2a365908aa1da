package domain

import "errors"

var (
	// ErrInvalidRange is returned for a data range other than 10, 100 or all.
	ErrInvalidRange = errors.New("invalid data range")

	// ErrInvalidTarget is returned for an alert audience other than citizen or representative.
	ErrInvalidTarget = errors.New("invalid alert target")

	// ErrInvalidCoordinates is returned when latitude or longitude is out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrInvalidTile is returned for tile coordinates outside the zoom level's grid.
	ErrInvalidTile = errors.New("invalid tile coordinates")

	// ErrLayerUnknown is returned for an overlay layer that is not configured.
	ErrLayerUnknown = errors.New("unknown map layer")

	// ErrNotConfigured is returned when an optional integration is disabled.
	ErrNotConfigured = errors.New("integration not configured")

	// ErrUpstream wraps failures of a third-party service.
	ErrUpstream = errors.New("upstream service failed")
)
