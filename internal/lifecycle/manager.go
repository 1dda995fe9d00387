package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/domain"
	"github.com/ssantosh21/incident-iq/internal/events"
	"github.com/ssantosh21/incident-iq/internal/search"
	"github.com/ssantosh21/incident-iq/internal/ticketstore"
)

// Manager owns every ticket store read and write: creation, history append,
// occurrence counting and resolution.
type Manager struct {
	store      ticketstore.Store
	index      search.Index
	locks      KeyLocker
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ManagerDependencies bundles collaborators for the manager.
type ManagerDependencies struct {
	Store      ticketstore.Store
	Index      search.Index
	Locks      KeyLocker
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CreateInput describes ticket creation payload.
type CreateInput struct {
	IncidentID          string
	ErrorMessage        string
	Service             string
	Severity            domain.Severity
	RunbookMatched      bool
	RecommendedRunbooks []domain.RunbookRef
	Recommendations     string
}

// NewManager constructs the manager. Locks defaults to an in-process keyed
// mutex when nil.
func NewManager(deps ManagerDependencies) *Manager {
	locks := deps.Locks
	if locks == nil {
		locks = NewMutexKeyLocker()
	}
	return &Manager{
		store:      deps.Store,
		index:      deps.Index,
		locks:      locks,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewIncidentID generates an id of the form inc_3fa29c01.
func NewIncidentID() string {
	return "inc_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// CreateTicket writes the ticket record first and the similarity-index entry
// second, so an index entry never references a ticket that does not exist.
// A failed store write aborts the operation; a failed index write leaves the
// ticket in place (durable but unsearchable) and is logged, not returned.
func (m *Manager) CreateTicket(ctx context.Context, input CreateInput) (*domain.Ticket, error) {
	now := m.now()
	ticket := &domain.Ticket{
		IncidentID:          input.IncidentID,
		Status:              domain.TicketStatusOpen,
		Severity:            input.Severity,
		Service:             input.Service,
		ErrorMessage:        input.ErrorMessage,
		RunbookMatched:      input.RunbookMatched,
		RecommendedRunbooks: input.RecommendedRunbooks,
		Recommendations:     input.Recommendations,
		CreatedAt:           now,
		LastSeen:            now,
		Occurrences:         1,
		History: []domain.HistoryEntry{
			{Timestamp: now, Event: domain.EventCreated, Comment: "Incident created"},
		},
	}

	if err := m.store.Put(ctx, ticket); err != nil {
		return nil, err
	}

	doc := search.Document{
		ID:   ticket.IncidentID,
		Type: search.DocumentTypeIncident,
		Text: ticket.ErrorMessage,
		Metadata: map[string]any{
			search.MetaIncidentID: ticket.IncidentID,
			search.MetaText:       ticket.ErrorMessage,
			search.MetaService:    ticket.Service,
			search.MetaSeverity:   string(ticket.Severity),
			search.MetaStatus:     string(ticket.Status),
			search.MetaCreatedAt:  now.Format(time.RFC3339),
		},
	}
	if err := m.index.Upsert(ctx, doc); err != nil {
		m.logger.Error("ticket created but index write failed; ticket is invisible to similarity search",
			zap.String("incident_id", ticket.IncidentID), zap.Error(err))
	}

	m.publish(ctx, events.Event{
		Type:       events.EventIncidentCreated,
		IncidentID: ticket.IncidentID,
		Payload: events.IncidentCreatedPayload{
			Service:        ticket.Service,
			Severity:       ticket.Severity,
			RunbookMatched: ticket.RunbookMatched,
		},
	})
	return ticket, nil
}

// AppendEvent adds a history entry and refreshes last_seen. A "recurred"
// event additionally increments occurrences by exactly one. Returns false
// when the ticket does not exist.
func (m *Manager) AppendEvent(ctx context.Context, incidentID, event, comment string) (bool, error) {
	release, err := m.locks.Lock(ctx, incidentID)
	if err != nil {
		return false, err
	}
	defer release()

	ticket, err := m.store.Get(ctx, incidentID)
	if errors.Is(err, ticketstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	now := m.now()
	ticket.History = append(ticket.History, domain.HistoryEntry{
		Timestamp: now,
		Event:     event,
		Comment:   comment,
	})
	ticket.LastSeen = now
	if event == domain.EventRecurred {
		ticket.Occurrences++
	}

	if err := m.store.Put(ctx, ticket); err != nil {
		return false, err
	}

	if event == domain.EventRecurred {
		m.publish(ctx, events.Event{
			Type:       events.EventIncidentRecurred,
			IncidentID: incidentID,
			Payload: events.IncidentRecurredPayload{
				Occurrences: ticket.Occurrences,
				Comment:     comment,
			},
		})
	}
	return true, nil
}

// Resolve transitions an OPEN ticket to RESOLVED, filling the resolution
// fields and appending a "resolved" history entry. Resolving an already
// RESOLVED ticket is a no-op reported as success, keeping the operation
// idempotent. Returns false when the ticket does not exist.
func (m *Manager) Resolve(ctx context.Context, incidentID, resolution, resolvedBy string) (bool, error) {
	release, err := m.locks.Lock(ctx, incidentID)
	if err != nil {
		return false, err
	}
	defer release()

	ticket, err := m.store.Get(ctx, incidentID)
	if errors.Is(err, ticketstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return true, nil
	}

	now := m.now()
	ticket.Status = domain.TicketStatusResolved
	ticket.Resolution = &resolution
	ticket.ResolvedAt = &now
	ticket.ResolvedBy = &resolvedBy
	ticket.History = append(ticket.History, domain.HistoryEntry{
		Timestamp: now,
		Event:     domain.EventResolved,
		Comment:   fmt.Sprintf("Resolved by %s: %s", resolvedBy, resolution),
	})

	if err := m.store.Put(ctx, ticket); err != nil {
		return false, err
	}

	m.publish(ctx, events.Event{
		Type:       events.EventIncidentResolved,
		IncidentID: incidentID,
		Payload: events.IncidentResolvedPayload{
			Resolution: resolution,
			ResolvedBy: resolvedBy,
		},
	})
	return true, nil
}

// Get loads a ticket by incident id; ticketstore.ErrNotFound when absent.
func (m *Manager) Get(ctx context.Context, incidentID string) (*domain.Ticket, error) {
	return m.store.Get(ctx, incidentID)
}

// List returns tickets newest first, optionally filtered by status.
func (m *Manager) List(ctx context.Context, status *domain.TicketStatus) ([]domain.Ticket, error) {
	tickets, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	filtered := tickets
	if status != nil {
		filtered = make([]domain.Ticket, 0, len(tickets))
		for _, ticket := range tickets {
			if ticket.Status == *status {
				filtered = append(filtered, ticket)
			}
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	return filtered, nil
}

func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	_ = m.dispatcher.Publish(ctx, event)
}
