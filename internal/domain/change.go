package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ChangeType is the kind of row change.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
	// ChangeRefresh carries no row data; it asks for a refetch of the table.
	ChangeRefresh ChangeType = "REFRESH"
)

// ChangeEvent is a row change notification for a watched table.
type ChangeEvent struct {
	Schema          string          `json:"schema"`
	Table           string          `json:"table"`
	Type            ChangeType      `json:"eventType"`
	New             json.RawMessage `json:"new,omitempty"`
	Old             json.RawMessage `json:"old,omitempty"`
	CommitTimestamp time.Time       `json:"commit_timestamp"`

	// Commit acknowledges the event to its source. Nil for sources that
	// need no acknowledgement.
	Commit func(ctx context.Context) error `json:"-"`
}

// ParseChangeEvent decodes a JSON change payload and validates its table and
// type. The type is matched case-insensitively.
func ParseChangeEvent(b []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return ChangeEvent{}, fmt.Errorf("parse change event: %w", err)
	}
	if ev.Table == "" {
		return ChangeEvent{}, errors.New("parse change event: table is required")
	}

	ev.Type = ChangeType(strings.ToUpper(string(ev.Type)))
	switch ev.Type {
	case ChangeInsert, ChangeUpdate, ChangeDelete, ChangeRefresh:
	default:
		return ChangeEvent{}, fmt.Errorf("parse change event: unknown type %q", ev.Type)
	}
	if ev.Schema == "" {
		ev.Schema = "public"
	}
	return ev, nil
}

// Topic is a dashboard stream channel.
type Topic string

const (
	TopicSensors    Topic = "sensors"
	TopicMessages   Topic = "messages"
	TopicSOS        Topic = "sos"
	TopicPrediction Topic = "prediction"
)

// AllTopics lists every stream channel.
func AllTopics() []Topic {
	return []Topic{TopicSensors, TopicMessages, TopicSOS, TopicPrediction}
}

// ParseTopics parses a comma-separated topic list. Empty input selects all
// topics; duplicates are dropped.
func ParseTopics(s string) ([]Topic, error) {
	if strings.TrimSpace(s) == "" {
		return AllTopics(), nil
	}

	known := make(map[Topic]bool)
	for _, t := range AllTopics() {
		known[t] = true
	}

	seen := make(map[Topic]bool)
	var topics []Topic
	for _, part := range strings.Split(s, ",") {
		t := Topic(strings.ToLower(strings.TrimSpace(part)))
		if t == "" {
			continue
		}
		if !known[t] {
			return nil, fmt.Errorf("unknown topic %q", t)
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		return AllTopics(), nil
	}
	return topics, nil
}

// Update is a fresh panel state published on a topic.
type Update struct {
	Topic Topic     `json:"topic"`
	Data  any       `json:"data"`
	At    time.Time `json:"at"`
}
