// Package influx archives sensor readings into an InfluxDB bucket for
// long-term trend analysis.
package influx

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/jonboulle/clockwork"

	"github.com/resqlink/early-warning-service/internal/config"
	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

const measurement = "landslide_sensor"

// pointWriter is the subset of api.WriteAPIBlocking the archiver uses.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Archiver writes inserted and updated sensor rows as InfluxDB points.
// It implements live.ChangeHook.
type Archiver struct {
	client      influxdb2.Client
	writeAPI    pointWriter
	sensorTable string
	clock       clockwork.Clock
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// NewArchiver connects to the configured InfluxDB bucket.
func NewArchiver(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Archiver {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &Archiver{
		client:      client,
		writeAPI:    client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		sensorTable: cfg.SensorTable,
		clock:       clockwork.NewRealClock(),
		metrics:     metrics,
		logger:      logger,
	}
}

// HandleChange archives the new row of sensor INSERT and UPDATE events.
// Other events are ignored.
func (a *Archiver) HandleChange(ctx context.Context, ev domain.ChangeEvent) error {
	if ev.Table != a.sensorTable || len(ev.New) == 0 {
		return nil
	}
	if ev.Type != domain.ChangeInsert && ev.Type != domain.ChangeUpdate {
		return nil
	}

	var reading domain.SensorReading
	if err := json.Unmarshal(ev.New, &reading); err != nil {
		return fmt.Errorf("decode archived reading: %w", err)
	}

	p, ok := readingPoint(reading, a.clock.Now())
	if !ok {
		a.logger.Debug("sensor row has no measurements, not archived", "id", reading.ID)
		return nil
	}
	if err := a.writeAPI.WritePoint(ctx, p); err != nil {
		a.metrics.ArchiveWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("write influx point: %w", err)
	}
	a.metrics.ArchiveWrites.WithLabelValues("success").Inc()
	return nil
}

// CheckReadiness reports whether the InfluxDB server is healthy.
func (a *Archiver) CheckReadiness(ctx context.Context) error {
	health, err := a.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influxdb health check failed: %s", msg)
	}
	return nil
}

func (a *Archiver) Close() {
	a.client.Close()
}

// readingPoint builds the point for one reading. It reports false when the
// reading carries no measurement at all.
func readingPoint(r domain.SensorReading, now time.Time) (*write.Point, bool) {
	fields := make(map[string]interface{})
	add := func(name string, v *float64) {
		if v != nil {
			fields[name] = *v
		}
	}
	add("rainfall", r.Rainfall)
	add("vibration", r.Vibration)
	add("temperature", r.Temperature)
	add("moisture", r.Moisture)
	add("soil_moisture", r.SoilMoisture)
	add("pore_water_pressure", r.PoreWaterPressure)
	if len(fields) == 0 {
		return nil, false
	}
	fields["alert"] = r.Alert
	fields["danger"] = r.Danger
	if r.ID != "" {
		fields["reading_id"] = string(r.ID)
	}

	tags := map[string]string{}
	if r.Location != "" {
		tags["location"] = r.Location
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = now
	}
	return influxdb2.NewPoint(measurement, tags, fields, ts), true
}
