package domain

import "time"

// PredictionLevel is the landslide prediction outcome.
type PredictionLevel string

const (
	LevelSafe    PredictionLevel = "safe"
	LevelWarning PredictionLevel = "warning"
	LevelDanger  PredictionLevel = "danger"
)

// Prediction is the state of the prediction card.
type Prediction struct {
	Level          PredictionLevel `json:"level"`
	Confidence     int             `json:"confidence"`
	Recommendation string          `json:"recommendation"`
	Timestamp      time.Time       `json:"timestamp"`
}

// NewPrediction returns the canned confidence and recommendation for a
// level. Unknown levels are treated as safe.
func NewPrediction(level PredictionLevel, at time.Time) Prediction {
	switch level {
	case LevelDanger:
		return Prediction{
			Level:          LevelDanger,
			Confidence:     87,
			Recommendation: "⚠️ Landslide Likely — Recommend Alert Issuance and Citizen Notification",
			Timestamp:      at,
		}
	case LevelWarning:
		return Prediction{
			Level:          LevelWarning,
			Confidence:     65,
			Recommendation: "⚡ Elevated Risk — Monitor conditions closely and prepare alerts",
			Timestamp:      at,
		}
	default:
		return Prediction{
			Level:          LevelSafe,
			Confidence:     92,
			Recommendation: "✅ Low Risk — Continue normal monitoring protocols",
			Timestamp:      at,
		}
	}
}

// LevelFromReading maps a reading's precomputed flags to a prediction level.
// A nil reading is safe.
func LevelFromReading(r *SensorReading) PredictionLevel {
	switch {
	case r == nil:
		return LevelSafe
	case r.Danger:
		return LevelDanger
	case r.Alert:
		return LevelWarning
	default:
		return LevelSafe
	}
}
