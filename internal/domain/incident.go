package domain

import "time"

// TicketStatus enumerates lifecycle states for incident tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusResolved TicketStatus = "RESOLVED"
)

// Severity enumerates incident urgency. SeverityHigh is assigned only at
// creation time for regressions and never changes afterwards.
type Severity string

const (
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Event kinds recorded in ticket history.
const (
	EventCreated  = "created"
	EventRecurred = "recurred"
	EventResolved = "resolved"
)

// HistoryEntry is one append-only record in a ticket's history.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Comment   string    `json:"comment,omitempty"`
}

// RunbookRef points at a runbook that matched the incident.
type RunbookRef struct {
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// Ticket is the durable record of one incident's lifecycle. The JSON layout
// is the persisted format in the ticket store and the API representation.
type Ticket struct {
	IncidentID          string         `json:"incident_id"`
	Status              TicketStatus   `json:"status"`
	Severity            Severity       `json:"severity"`
	Service             string         `json:"service"`
	ErrorMessage        string         `json:"error_message"`
	RunbookMatched      bool           `json:"runbook_matched"`
	RecommendedRunbooks []RunbookRef   `json:"recommended_runbooks"`
	Recommendations     string         `json:"recommendations"`
	CreatedAt           time.Time      `json:"created_at"`
	LastSeen            time.Time      `json:"last_seen"`
	Occurrences         int            `json:"occurrences"`
	History             []HistoryEntry `json:"history"`
	Resolution          *string        `json:"resolution"`
	ResolvedAt          *time.Time     `json:"resolved_at"`
	ResolvedBy          *string        `json:"resolved_by"`
}
