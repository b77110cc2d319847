package domain

import "time"

// MessageSenderKind indicates who authored a message.
type MessageSenderKind string

const (
	SenderKindCustomer MessageSenderKind = "customer"
	SenderKindAgent    MessageSenderKind = "agent"
)

// Message is one mail in a ticket thread. ProviderMessageID is the mail
// source's identifier and is globally unique; it is the dedup key for
// at-least-once push delivery. Messages are immutable after creation.
type Message struct {
	ID                string
	TicketID          string
	SenderKind        MessageSenderKind
	SenderEmail       string
	Body              string
	ProviderMessageID string
	Embedding         []float32
	Timestamp         time.Time
}
