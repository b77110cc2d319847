package domain

import "time"

// Classification is the agent's analysis of a ticket, written once after
// the reasoning loop finalizes. Paired 1:1 with its ticket.
type Classification struct {
	ID        string
	TicketID  string
	Category  string
	Sentiment string
	// Urgency is a 1-5 scale, 1 meaning routine.
	Urgency    int
	Confidence float64
	// Reasoning stores the full raw structured model output for audit.
	Reasoning string
	CreatedAt time.Time
}
