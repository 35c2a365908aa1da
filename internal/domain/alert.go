package domain

import (
	"fmt"
	"strings"
	"time"
)

// AlertTarget is the audience of an emergency alert.
type AlertTarget string

const (
	TargetCitizen        AlertTarget = "citizen"
	TargetRepresentative AlertTarget = "representative"
)

// ParseAlertTarget accepts "citizen" or "representative", case-insensitively.
func ParseAlertTarget(s string) (AlertTarget, error) {
	switch AlertTarget(strings.ToLower(strings.TrimSpace(s))) {
	case TargetCitizen:
		return TargetCitizen, nil
	case TargetRepresentative:
		return TargetRepresentative, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTarget, s)
	}
}

// NotifiedMessage is the confirmation text shown after a successful alert.
func (t AlertTarget) NotifiedMessage() string {
	if t == TargetRepresentative {
		return "Representatives have been notified of the landslide risk."
	}
	return "Citizens have been notified of the landslide risk."
}

// AlertRequest is the body posted to the alert automation webhook.
type AlertRequest struct {
	Target    AlertTarget `json:"userType"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
}

// AlertResult is returned to the operator after the webhook accepted an alert.
type AlertResult struct {
	ID      string      `json:"id"`
	Target  AlertTarget `json:"target"`
	SentAt  time.Time   `json:"sent_at"`
	Message string      `json:"message"`
}

// Alert audit outcomes.
const (
	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// AlertRecord is one entry of the alert audit log.
type AlertRecord struct {
	ID          string      `json:"id"`
	Target      AlertTarget `json:"target"`
	Source      string      `json:"source"`
	RequestedAt time.Time   `json:"requested_at"`
	Outcome     string      `json:"outcome"`
	Error       string      `json:"error,omitempty"`
}
