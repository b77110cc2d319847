package domain

import "time"

// Tenant is the receiving organization a ticket belongs to, keyed by the
// inbox address the message was delivered to. Created lazily on first sight.
type Tenant struct {
	ID                 string
	Name               string
	Email              string
	AuthConfig         map[string]any
	IntegrationsConfig map[string]any
	CreatedAt          time.Time
}
