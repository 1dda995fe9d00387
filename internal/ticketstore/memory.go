package ticketstore

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ssantosh21/incident-iq/internal/domain"
)

// MemoryStore is an in-memory Store used in tests and local development.
// Records are stored as JSON so reads return copies, like a real blob store.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, ticket *domain.Ticket) error {
	body, err := json.Marshal(ticket)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[ticket.IncidentID] = body
	return nil
}

func (s *MemoryStore) Get(_ context.Context, incidentID string) (*domain.Ticket, error) {
	s.mu.RLock()
	body, ok := s.objects[incidentID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(body, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *MemoryStore) List(_ context.Context) ([]domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tickets := make([]domain.Ticket, 0, len(s.objects))
	for _, body := range s.objects {
		var ticket domain.Ticket
		if err := json.Unmarshal(body, &ticket); err != nil {
			return nil, err
		}
		tickets = append(tickets, ticket)
	}
	return tickets, nil
}
