// Command genmock generates a day of demo sensor readings. By default it
// prints them as a JSON array; with -kafka it publishes each reading as an
// INSERT change event so a dashboard in kafka change feed mode picks them up.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/sensor_data.json
//	go run ./cmd/genmock -kafka -brokers localhost:9092 -topic db-changes
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	kafkaadapter "github.com/resqlink/early-warning-service/internal/adapter/kafka"
	"github.com/resqlink/early-warning-service/internal/config"
	"github.com/resqlink/early-warning-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the JSON fixture (default stdout)")
	at := flag.String("at", "", "RFC 3339 time of the newest reading (default now)")
	seed := flag.Uint64("seed", 0, "random seed; 0 picks one")
	publish := flag.Bool("kafka", false, "publish INSERT change events instead of writing JSON")
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
	topic := flag.String("topic", "db-changes", "change feed topic")
	table := flag.String("table", "sensor_data", "table name carried by the change events")
	flag.Parse()

	now := time.Now().UTC()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("invalid -at: %w", err)
		}
		now = t.UTC()
	}
	if *seed == 0 {
		*seed = rand.Uint64()
	}

	readings := domain.GenerateDemoReadings(now, rand.New(rand.NewPCG(*seed, *seed)))
	log.Printf("generated %d readings (seed %d)", len(readings), *seed)

	if *publish {
		cfg := &config.Config{KafkaBrokers: strings.Split(*brokers, ","), KafkaChangesTopic: *topic}
		return publishReadings(cfg, *table, readings)
	}
	return writeJSON(*out, readings)
}

func writeJSON(path string, readings []domain.SensorReading) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(readings); err != nil {
		return fmt.Errorf("encode readings: %w", err)
	}
	if path != "" {
		log.Printf("wrote %s", path)
	}
	return nil
}

func publishReadings(cfg *config.Config, table string, readings []domain.SensorReading) error {
	events, err := insertEvents(table, readings)
	if err != nil {
		return err
	}

	w := kafkaadapter.NewChangeWriter(cfg, slog.Default())
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := w.Publish(ctx, events...); err != nil {
		return err
	}
	log.Printf("published %d change events to %s", len(events), cfg.KafkaChangesTopic)
	return nil
}

// insertEvents wraps each reading in an INSERT event stamped with the
// reading's own time.
func insertEvents(table string, readings []domain.SensorReading) ([]domain.ChangeEvent, error) {
	events := make([]domain.ChangeEvent, 0, len(readings))
	for _, r := range readings {
		row, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode reading %s: %w", r.ID, err)
		}
		events = append(events, domain.ChangeEvent{
			Schema:          "public",
			Table:           table,
			Type:            domain.ChangeInsert,
			New:             row,
			CommitTimestamp: r.Timestamp,
		})
	}
	return events, nil
}
