package dto

import "encoding/json"

// PushEnvelope is the outer push delivery body. The broker wraps the
// notification in a message whose data field is base64 encoded JSON.
type PushEnvelope struct {
	Message      *PushMessage `json:"message"`
	Subscription string       `json:"subscription"`
}

// PushMessage is the inner broker message.
type PushMessage struct {
	Data      string `json:"data"`
	MessageID string `json:"messageId"`
}

// PushData is the decoded notification payload. HistoryID is a
// json.Number because publishers emit it as either a number or a string.
type PushData struct {
	EmailAddress string      `json:"emailAddress"`
	HistoryID    json.Number `json:"historyId"`
}

// IngestResponse reports the terminal outcome of one delivery.
type IngestResponse struct {
	Status   string `json:"status"`
	TicketID string `json:"ticket_id,omitempty"`
}
