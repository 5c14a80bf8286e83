package domain

import "time"

// TimestampLayout is the wire format for message timestamps.
// Matches the ISO-8601 millisecond form the HTTP API has always produced.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Message represents a message summary returned to API callers.
// Derived from provider responses, never persisted.
type Message struct {
	ID          int    `json:"id"`
	Timestamp   string `json:"timestamp"` // Exact ISO string, see TimestampLayout
	SenderID    int64  `json:"senderId"`
	SenderLabel string `json:"senderLabel"`
	Text        string `json:"text"`
	IsOutgoing  bool   `json:"isOutgoing"`
}

// FormatTimestamp renders a provider timestamp in the wire format
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
