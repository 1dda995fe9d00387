package classifier

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/domain"
	"github.com/ssantosh21/incident-iq/internal/search"
	"github.com/ssantosh21/incident-iq/internal/ticketstore"
)

// Outcome is the classification of one incident report.
type Outcome string

const (
	OutcomeNew        Outcome = "new"
	OutcomeExisting   Outcome = "existing"
	OutcomeRegression Outcome = "regression"
)

// SimilarIncident is a prior incident surfaced by the search, kept as
// context for recommendation generation.
type SimilarIncident struct {
	IncidentID string  `json:"id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
}

// BestMatch is the duplicate candidate: the loaded ticket plus its score.
type BestMatch struct {
	Ticket     *domain.Ticket
	Similarity float64
}

// Result is the classifier's verdict. Best is nil for OutcomeNew.
type Result struct {
	Outcome Outcome
	Best    *BestMatch
	Similar []SimilarIncident
}

// TicketGetter loads tickets referenced by index matches.
type TicketGetter interface {
	Get(ctx context.Context, incidentID string) (*domain.Ticket, error)
}

// Classifier decides whether a report is a new problem, a recurrence of an
// open ticket, or a regression of a resolved one.
type Classifier struct {
	index     search.Index
	tickets   TicketGetter
	threshold float64
	topK      int
	logger    *zap.Logger
}

// New constructs a classifier. The threshold comparison is strict: a score
// exactly equal to the threshold is not a duplicate.
func New(index search.Index, tickets TicketGetter, threshold float64, topK int, logger *zap.Logger) *Classifier {
	if topK <= 0 {
		topK = 5
	}
	return &Classifier{
		index:     index,
		tickets:   tickets,
		threshold: threshold,
		topK:      topK,
		logger:    logger,
	}
}

// Classify searches prior incidents and applies the classification policy.
func (c *Classifier) Classify(ctx context.Context, incidentText string) (*Result, error) {
	matches, err := c.index.Search(ctx, incidentText, search.DocumentTypeIncident, c.topK)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Outcome: OutcomeNew,
		Similar: similarIncidents(matches),
	}
	if len(matches) == 0 || matches[0].Score <= c.threshold {
		return result, nil
	}

	top := matches[0]
	incidentID := top.MetaString(search.MetaIncidentID)
	if incidentID == "" {
		incidentID = top.ID
	}

	ticket, err := c.tickets.Get(ctx, incidentID)
	if errors.Is(err, ticketstore.ErrNotFound) {
		// Index entry without a ticket record: the store and index have
		// drifted. Fail open as "new" rather than surfacing the
		// inconsistency to the caller.
		c.logger.Warn("similarity match has no ticket record, classifying as new",
			zap.String("incident_id", incidentID),
			zap.Float64("similarity", top.Score))
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	switch ticket.Status {
	case domain.TicketStatusResolved:
		result.Outcome = OutcomeRegression
	default:
		result.Outcome = OutcomeExisting
	}
	result.Best = &BestMatch{Ticket: ticket, Similarity: top.Score}

	c.logger.Info("duplicate candidate found",
		zap.String("incident_id", ticket.IncidentID),
		zap.String("outcome", string(result.Outcome)),
		zap.Float64("similarity", top.Score))
	return result, nil
}

func similarIncidents(matches []search.Match) []SimilarIncident {
	similar := make([]SimilarIncident, 0, len(matches))
	for _, match := range matches {
		id := match.MetaString(search.MetaIncidentID)
		if id == "" {
			id = match.ID
		}
		similar = append(similar, SimilarIncident{
			IncidentID: id,
			Text:       match.MetaString(search.MetaText),
			Similarity: match.Score,
		})
	}
	return similar
}
