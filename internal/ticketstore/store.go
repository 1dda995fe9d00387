package ticketstore

import (
	"context"
	"errors"

	"github.com/ssantosh21/incident-iq/internal/domain"
)

// ErrNotFound reports that no ticket exists for the given incident id.
var ErrNotFound = errors.New("ticket not found")

// Store is the durable ticket record store: JSON objects keyed by incident
// id. Mutations are whole-object writes; callers own read-modify-write
// serialization.
type Store interface {
	Put(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, incidentID string) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
}
