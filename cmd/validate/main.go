// Command validate checks a sensor fixture before it is loaded into a
// database or replayed onto the change feed. It verifies that every row
// decodes, that the rows are ordered and in physical range, and that the
// dashboard panels built from them are consistent. Given -seed and -at it
// also confirms that the fixture is what genmock produces for those inputs.
//
// Usage:
//
//	go run ./cmd/validate -fixture data/mock/sensor_data.json
//	go run ./cmd/validate -fixture data/mock/sensor_data.json \
//	  -seed 42 -at 2024-07-30T06:00:00Z
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/resqlink/early-warning-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// bounds are the plausible physical limits of each measurement.
var bounds = map[string][2]float64{
	"rainfall":            {0, 500},
	"vibration":           {0, 100},
	"temperature":         {-30, 60},
	"moisture":            {0, 100},
	"soil_moisture":       {0, 100},
	"pore_water_pressure": {-200, 1000},
}

func main() {
	fixture := flag.String("fixture", "", "path to a JSON array of sensor rows")
	seed := flag.Uint64("seed", 0, "genmock seed the fixture was generated with")
	at := flag.String("at", "", "genmock -at value the fixture was generated with")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(1)
	}
	os.Exit(run(os.Stdout, *fixture, *seed, *at))
}

func run(out io.Writer, fixturePath string, seed uint64, at string) int {
	fmt.Fprintln(out, "=== Sensor Fixture Validation ===")
	fmt.Fprintln(out)

	raw, err := os.ReadFile(fixturePath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: read fixture: %v\n", err)
		return 1
	}

	rows, decode := validateDecode(raw)
	phases := []*phase{
		decode,
		validateOrdering(rows),
		validateRanges(rows),
		validatePanels(rows),
	}
	if seed != 0 && at != "" {
		phases = append(phases, validateReproducible(rows, seed, at))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-32s %s\n", p.name, status)
	}
	fmt.Fprintf(out, "\nRecords: %d\n", len(rows))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// validateDecode decodes each row on its own so one bad row does not hide
// the rest.
func validateDecode(raw []byte) ([]domain.SensorReading, *phase) {
	p := &phase{name: "Row decoding"}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.errorf("fixture is not a JSON array: %v", err)
		return nil, p
	}
	if len(items) == 0 {
		p.errorf("fixture has no rows")
		return nil, p
	}

	rows := make([]domain.SensorReading, 0, len(items))
	seen := make(map[domain.ID]int, len(items))
	for i, item := range items {
		var r domain.SensorReading
		if err := json.Unmarshal(item, &r); err != nil {
			p.errorf("row %d: %v", i, err)
			continue
		}
		if r.ID == "" {
			p.errorf("row %d: missing id", i)
		} else if prev, dup := seen[r.ID]; dup {
			p.errorf("row %d: id %q already used by row %d", i, r.ID, prev)
		} else {
			seen[r.ID] = i
		}
		if r.Timestamp.IsZero() {
			p.errorf("row %d (%s): missing or unparseable timestamp", i, r.ID)
		}
		rows = append(rows, r)
	}
	return rows, p
}

// validateOrdering requires rows oldest first with strictly increasing times.
func validateOrdering(rows []domain.SensorReading) *phase {
	p := &phase{name: "Chronological order"}
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].Timestamp, rows[i].Timestamp
		if prev.IsZero() || cur.IsZero() {
			continue
		}
		if !cur.After(prev) {
			p.errorf("row %d (%s) at %s is not after row %d at %s",
				i, rows[i].ID, cur.Format(time.RFC3339), i-1, prev.Format(time.RFC3339))
		}
	}
	return p
}

func validateRanges(rows []domain.SensorReading) *phase {
	p := &phase{name: "Measurement ranges"}
	for i, r := range rows {
		values := map[string]*float64{
			"rainfall":            r.Rainfall,
			"vibration":           r.Vibration,
			"temperature":         r.Temperature,
			"moisture":            r.Moisture,
			"soil_moisture":       r.SoilMoisture,
			"pore_water_pressure": r.PoreWaterPressure,
		}
		present := 0
		for name, v := range values {
			if v == nil {
				continue
			}
			present++
			b := bounds[name]
			if *v < b[0] || *v > b[1] {
				p.errorf("row %d (%s): %s=%.2f outside [%g, %g]", i, r.ID, name, *v, b[0], b[1])
			}
		}
		if present == 0 {
			p.errorf("row %d (%s): no measurements", i, r.ID)
		}
	}
	return p
}

// validatePanels builds each dashboard range from the rows the way the
// service would receive them (newest first) and checks the aggregates.
func validatePanels(rows []domain.SensorReading) *phase {
	p := &phase{name: "Panel consistency"}
	if len(rows) == 0 {
		return p
	}

	newestFirst := make([]domain.SensorReading, len(rows))
	for i, r := range rows {
		newestFirst[len(rows)-1-i] = r
	}

	for _, dr := range []domain.DataRange{domain.Range10, domain.Range100, domain.RangeAll} {
		window := newestFirst
		if limit := dr.Limit(); limit > 0 && limit < len(window) {
			window = window[:limit]
		}
		panel := domain.NewSensorPanel(dr, window, time.Now())

		if panel.Summary.Count != len(window) {
			p.errorf("range %s: summary count %d, want %d", dr, panel.Summary.Count, len(window))
		}
		if len(panel.Chart) != len(window) {
			p.errorf("range %s: %d chart points, want %d", dr, len(panel.Chart), len(window))
		}
		if want := domain.RiskOf(&newestFirst[0]); panel.Summary.Risk != want {
			p.errorf("range %s: risk %s, want %s from newest row", dr, panel.Summary.Risk, want)
		}
		for i, pt := range panel.Chart {
			if _, err := time.Parse("15:04", pt.Time); err != nil {
				p.errorf("range %s: chart point %d label %q is not HH:MM", dr, i, pt.Time)
			}
		}
	}
	return p
}

// validateReproducible regenerates the demo readings and diffs them against
// the fixture.
func validateReproducible(rows []domain.SensorReading, seed uint64, at string) *phase {
	p := &phase{name: "Matches genmock output"}
	now, err := time.Parse(time.RFC3339, at)
	if err != nil {
		p.errorf("invalid -at: %v", err)
		return p
	}
	want := domain.GenerateDemoReadings(now.UTC(), rand.New(rand.NewPCG(seed, seed)))
	if diff := cmp.Diff(want, rows); diff != "" {
		p.errorf("fixture differs from regenerated readings (-want +got):\n%s", diff)
	}
	return p
}
