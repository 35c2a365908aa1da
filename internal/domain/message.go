package domain

import "time"

// Priority is the display emphasis of a chat message.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// MessageRow is one row of the messages table.
type MessageRow struct {
	ID        ID      `json:"id"`
	Username  *string `json:"username"`
	Message   *string `json:"message"`
	FromNode  *string `json:"from_node"`
	CreatedAt string  `json:"created_at"`
}

// ChatMessage is a message as rendered in the emergency chat panel.
type ChatMessage struct {
	ID        ID       `json:"id"`
	Username  string   `json:"username"`
	Message   string   `json:"message"`
	Node      string   `json:"node"`
	Timestamp string   `json:"timestamp"`
	Priority  Priority `json:"priority"`
}

// MessageFeed is the payload of the messages panel.
type MessageFeed struct {
	Messages []ChatMessage `json:"messages"`
	Stale    bool          `json:"stale"`
}

// FormatMessages converts database rows for display. Missing usernames
// become "Unknown" and created_at is rendered as HH:MM:SS in UTC; a
// created_at that cannot be parsed is shown verbatim.
func FormatMessages(rows []MessageRow) []ChatMessage {
	out := make([]ChatMessage, 0, len(rows))
	for _, row := range rows {
		ts := row.CreatedAt
		if t := ParseTimestamp(row.CreatedAt); !t.IsZero() {
			ts = t.Format(time.TimeOnly)
		}
		out = append(out, ChatMessage{
			ID:        row.ID,
			Username:  valueOr(row.Username, "Unknown"),
			Message:   valueOr(row.Message, ""),
			Node:      valueOr(row.FromNode, ""),
			Timestamp: ts,
			Priority:  PriorityMedium,
		})
	}
	return out
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// DefaultMessages is shown when the messages table is empty.
func DefaultMessages() []ChatMessage {
	return []ChatMessage{
		systemMessage("1", "⚠️ High risk of landslide detected in Wayanad region", "10:30 AM", PriorityHigh),
		systemMessage("2", "🚨 Emergency response team dispatched to affected area", "10:35 AM", PriorityHigh),
		systemMessage("3", "ℹ️ Local authorities have been notified", "10:40 AM", PriorityMedium),
		systemMessage("4", "📢 Evacuation procedures initiated in high-risk zones", "10:45 AM", PriorityHigh),
	}
}

// FailureMessages is shown when the messages table cannot be read and no
// earlier copy is available.
func FailureMessages() []ChatMessage {
	return DefaultMessages()[:2]
}

func systemMessage(id ID, text, ts string, p Priority) ChatMessage {
	return ChatMessage{
		ID:        id,
		Username:  "System",
		Message:   text,
		Node:      "Central Node",
		Timestamp: ts,
		Priority:  p,
	}
}
