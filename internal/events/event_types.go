package events

import (
	"time"

	"github.com/ssantosh21/incident-iq/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated  EventType = "incident_created"
	EventIncidentRecurred EventType = "incident_recurred"
	EventIncidentResolved EventType = "incident_resolved"
)

// Event represents a domain event emitted by the lifecycle manager.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IncidentID string      `json:"incident_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	Service        string          `json:"service"`
	Severity       domain.Severity `json:"severity"`
	RunbookMatched bool            `json:"runbook_matched"`
}

// IncidentRecurredPayload payload.
type IncidentRecurredPayload struct {
	Occurrences int    `json:"occurrences"`
	Comment     string `json:"comment,omitempty"`
}

// IncidentResolvedPayload payload.
type IncidentResolvedPayload struct {
	Resolution string `json:"resolution"`
	ResolvedBy string `json:"resolved_by"`
}
