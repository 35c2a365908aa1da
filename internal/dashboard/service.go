// Package dashboard implements the read and action paths behind every
// dashboard panel. Reads of the hosted backend fall back to the last good
// snapshot, and then to built-in defaults, so a panel always has something
// to render.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

// monitoredConcurrency bounds parallel weather lookups for the monitored
// locations.
const monitoredConcurrency = 4

// Backend reads the hosted tables.
type Backend interface {
	SensorReadings(ctx context.Context, limit int) ([]domain.SensorReading, error)
	Messages(ctx context.Context) ([]domain.MessageRow, error)
	UserLocations(ctx context.Context) ([]domain.UserRow, error)
}

// SnapshotStore keeps the last good result of each read.
type SnapshotStore interface {
	Save(ctx context.Context, key string, v any, at time.Time) error
	Load(ctx context.Context, key string, out any) (time.Time, error)
}

// TileFetcher returns weather overlay tiles.
type TileFetcher interface {
	Fetch(ctx context.Context, layer string, z, x, y int) (domain.Tile, error)
}

// AlertNotifier hands an alert to the notification workflow.
type AlertNotifier interface {
	Notify(ctx context.Context, req domain.AlertRequest) error
}

// AlertRecorder appends alert attempts to an audit log.
type AlertRecorder interface {
	Record(ctx context.Context, rec domain.AlertRecord) error
}

// Deps are the collaborators of a Service. Weather, Tiles, Notifier,
// Recorder and Snapshots are optional; a nil value disables the feature.
type Deps struct {
	Backend     Backend
	Snapshots   SnapshotStore
	Weather     domain.WeatherProvider
	Tiles       TileFetcher
	Notifier    AlertNotifier
	Recorder    AlertRecorder
	AlertSource string
	TilePrefix  string
	Clock       clockwork.Clock
	NewID       func() string
	Metrics     *observability.Metrics
	Logger      *slog.Logger
}

// Service serves dashboard panels and actions.
type Service struct {
	backend     Backend
	snapshots   SnapshotStore
	weather     domain.WeatherProvider
	tiles       TileFetcher
	notifier    AlertNotifier
	recorder    AlertRecorder
	alertSource string
	tilePrefix  string
	clock       clockwork.Clock
	newID       func() string
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewService builds a Service. A nil Clock means the real clock and a nil
// NewID generates random UUIDs.
func NewService(d Deps) *Service {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.NewString() }
	}
	if d.TilePrefix == "" {
		d.TilePrefix = "/api/tiles"
	}
	return &Service{
		backend:     d.Backend,
		snapshots:   d.Snapshots,
		weather:     d.Weather,
		tiles:       d.Tiles,
		notifier:    d.Notifier,
		recorder:    d.Recorder,
		alertSource: d.AlertSource,
		tilePrefix:  d.TilePrefix,
		clock:       d.Clock,
		newID:       d.NewID,
		metrics:     d.Metrics,
		logger:      d.Logger,
	}
}

// Snapshot keys.
const (
	messagesKey = "messages"
	sosKey      = "sos"
)

func sensorsKey(r domain.DataRange) string {
	return "sensors:" + string(r)
}

// SensorPanel returns the readings of range r with their summary and chart.
func (s *Service) SensorPanel(ctx context.Context, r domain.DataRange) (domain.SensorPanel, error) {
	now := s.clock.Now().UTC()
	rows, err := s.backend.SensorReadings(ctx, r.Limit())
	if err != nil {
		s.logger.Warn("sensor readings unavailable", "error", err, "range", r)
		var panel domain.SensorPanel
		if s.loadSnapshot(ctx, sensorsKey(r), &panel) {
			panel.Stale = true
			return panel, nil
		}
		s.metrics.FallbackServed.WithLabelValues("default").Inc()
		panel = domain.NewSensorPanel(r, nil, now)
		panel.Stale = true
		return panel, nil
	}

	panel := domain.NewSensorPanel(r, rows, now)
	s.saveSnapshot(ctx, sensorsKey(r), panel, now)
	return panel, nil
}

// LatestReading returns the newest sensor reading, or nil for an empty table.
func (s *Service) LatestReading(ctx context.Context) (*domain.SensorReading, error) {
	rows, err := s.backend.SensorReadings(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// MessageFeed returns the chat feed. An empty table yields the default
// system messages.
func (s *Service) MessageFeed(ctx context.Context) (domain.MessageFeed, error) {
	rows, err := s.backend.Messages(ctx)
	if err != nil {
		s.logger.Warn("messages unavailable", "error", err)
		var feed domain.MessageFeed
		if s.loadSnapshot(ctx, messagesKey, &feed) {
			feed.Stale = true
			return feed, nil
		}
		s.metrics.FallbackServed.WithLabelValues("default").Inc()
		return domain.MessageFeed{Messages: domain.FailureMessages(), Stale: true}, nil
	}
	if len(rows) == 0 {
		return domain.MessageFeed{Messages: domain.DefaultMessages()}, nil
	}

	feed := domain.MessageFeed{Messages: domain.FormatMessages(rows)}
	s.saveSnapshot(ctx, messagesKey, feed, s.clock.Now())
	return feed, nil
}

// SOSFeed returns the users who shared a location.
func (s *Service) SOSFeed(ctx context.Context) (domain.SOSFeed, error) {
	rows, err := s.backend.UserLocations(ctx)
	if err != nil {
		s.logger.Warn("user locations unavailable", "error", err)
		var feed domain.SOSFeed
		if s.loadSnapshot(ctx, sosKey, &feed) {
			feed.Stale = true
			return feed, nil
		}
		s.metrics.FallbackServed.WithLabelValues("default").Inc()
		return domain.SOSFeed{Locations: []domain.SOSLocation{}, Stale: true}, nil
	}

	feed := domain.SOSFeed{Locations: domain.SOSLocations(rows)}
	s.saveSnapshot(ctx, sosKey, feed, s.clock.Now())
	return feed, nil
}

// Weather returns current conditions at a coordinate.
func (s *Service) Weather(ctx context.Context, lat, lon float64) (domain.Conditions, error) {
	if s.weather == nil {
		return domain.Conditions{}, fmt.Errorf("weather: %w", domain.ErrNotConfigured)
	}
	if err := domain.ValidateCoordinates(lat, lon); err != nil {
		return domain.Conditions{}, err
	}
	c, err := s.weather.CurrentByCoord(ctx, lat, lon)
	if err != nil {
		return domain.Conditions{}, upstreamError(err)
	}
	return c, nil
}

// WeatherByPlace returns current conditions for a place name.
func (s *Service) WeatherByPlace(ctx context.Context, name string) (domain.Conditions, error) {
	if s.weather == nil {
		return domain.Conditions{}, fmt.Errorf("weather: %w", domain.ErrNotConfigured)
	}
	c, err := s.weather.CurrentByPlace(ctx, name)
	if err != nil {
		return domain.Conditions{}, upstreamError(err)
	}
	return c, nil
}

// MonitoredWeather fetches conditions for every monitored location. A
// location that fails carries its error; the others are still returned.
func (s *Service) MonitoredWeather(ctx context.Context) ([]domain.LocationWeather, error) {
	if s.weather == nil {
		return nil, fmt.Errorf("weather: %w", domain.ErrNotConfigured)
	}

	locations := domain.MonitoredLocations()
	out := make([]domain.LocationWeather, len(locations))

	var g errgroup.Group
	g.SetLimit(monitoredConcurrency)
	for i, loc := range locations {
		g.Go(func() error {
			out[i].Location = loc
			c, err := s.weather.CurrentByCoord(ctx, loc.Lat, loc.Lon)
			if err != nil {
				s.logger.Warn("monitored location weather failed", "location", loc.Name, "error", err)
				out[i].Error = err.Error()
				return nil
			}
			out[i].Conditions = &c
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}

// MapConfig describes the weather map layers.
func (s *Service) MapConfig() domain.MapConfig {
	return domain.DefaultMapConfig(s.tilePrefix)
}

// Tile proxies one weather overlay tile.
func (s *Service) Tile(ctx context.Context, layer string, z, x, y int) (domain.Tile, error) {
	if err := domain.ValidateLayer(layer); err != nil {
		return domain.Tile{}, err
	}
	if s.tiles == nil {
		return domain.Tile{}, fmt.Errorf("map tiles: %w", domain.ErrNotConfigured)
	}
	t, err := s.tiles.Fetch(ctx, layer, z, x, y)
	if err != nil {
		return domain.Tile{}, upstreamError(err)
	}
	return t, nil
}

// TriggerAlert sends an alert to the named audience. Every attempt is
// recorded in the audit log when one is configured.
func (s *Service) TriggerAlert(ctx context.Context, target string) (domain.AlertResult, error) {
	t, err := domain.ParseAlertTarget(target)
	if err != nil {
		return domain.AlertResult{}, err
	}
	if s.notifier == nil {
		return domain.AlertResult{}, fmt.Errorf("alerts: %w", domain.ErrNotConfigured)
	}

	now := s.clock.Now().UTC()
	id := s.newID()
	err = s.notifier.Notify(ctx, domain.AlertRequest{Target: t, Timestamp: now, Source: s.alertSource})

	rec := domain.AlertRecord{ID: id, Target: t, Source: s.alertSource, RequestedAt: now, Outcome: domain.OutcomeSent}
	if err != nil {
		rec.Outcome = domain.OutcomeFailed
		rec.Error = err.Error()
	}
	s.metrics.AlertsSent.WithLabelValues(string(t), rec.Outcome).Inc()
	s.record(ctx, rec)

	if err != nil {
		s.logger.Error("alert trigger failed", "target", t, "id", id, "error", err)
		return domain.AlertResult{}, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	s.logger.Info("alert sent", "target", t, "id", id)
	return domain.AlertResult{ID: id, Target: t, SentAt: now, Message: t.NotifiedMessage()}, nil
}

func (s *Service) record(ctx context.Context, rec domain.AlertRecord) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.Record(ctx, rec); err != nil {
		s.logger.Warn("alert audit write failed", "id", rec.ID, "error", err)
	}
}

func (s *Service) saveSnapshot(ctx context.Context, key string, v any, at time.Time) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, key, v, at); err != nil {
		s.logger.Warn("snapshot save failed", "key", key, "error", err)
	}
}

// loadSnapshot reports whether a snapshot for key was decoded into out.
func (s *Service) loadSnapshot(ctx context.Context, key string, out any) bool {
	if s.snapshots == nil {
		return false
	}
	at, err := s.snapshots.Load(ctx, key, out)
	if err != nil {
		s.logger.Debug("no snapshot to fall back on", "key", key, "error", err)
		return false
	}
	s.metrics.FallbackServed.WithLabelValues("snapshot").Inc()
	s.logger.Info("serving snapshot", "key", key, "saved_at", at)
	return true
}

// upstreamError marks err as a third-party failure unless it is a caller
// error the adapter detected before calling out.
func upstreamError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCoordinates),
		errors.Is(err, domain.ErrInvalidTile),
		errors.Is(err, domain.ErrLayerUnknown),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
}
