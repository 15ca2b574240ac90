package model

import "time"

// AuditLog is an append-only record of user-visible actions.
type AuditLog struct {
	ID           string
	UserID       string
	Action       string // e.g. payment_initiated, payment_successful, api_key_created
	ResourceType string // payment | apikey | ticket
	ResourceID   string
	Details      map[string]any
	IPAddress    string
	UserAgent    string
	CreatedAt    time.Time
}
