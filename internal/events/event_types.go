package events

import (
	"time"

	"github.com/spec-kit/support-agent/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketIngested   EventType = "ticket_ingested"
	EventTicketClassified EventType = "ticket_classified"
	EventReplySent        EventType = "reply_sent"
)

// Event represents a domain event emitted during ingestion.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketIngestedPayload payload.
type TicketIngestedPayload struct {
	TenantID      string `json:"tenant_id"`
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	Subject       string `json:"subject"`
}

// TicketClassifiedPayload payload.
type TicketClassifiedPayload struct {
	Category   string  `json:"category"`
	Sentiment  string  `json:"sentiment"`
	Urgency    int     `json:"urgency"`
	Confidence float64 `json:"confidence"`
	Degraded   bool    `json:"degraded"`
}

// ReplySentPayload payload.
type ReplySentPayload struct {
	To       string                `json:"to"`
	Subject  string                `json:"subject"`
	Priority domain.TicketPriority `json:"priority"`
	Failed   bool                  `json:"failed"`
}
