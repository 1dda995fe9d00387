package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/classifier"
	"github.com/ssantosh21/incident-iq/internal/domain"
	"github.com/ssantosh21/incident-iq/internal/lifecycle"
	"github.com/ssantosh21/incident-iq/internal/observability"
	"github.com/ssantosh21/incident-iq/internal/runbook"
)

// Terminal outcomes of one incident report.
const (
	StatusNew        = "new"
	StatusExisting   = "existing"
	StatusRegression = "regression"
	StatusError      = "error"
)

// Report is one incoming incident report.
type Report struct {
	Log     string
	Service string
}

// Response is the end-to-end result returned to the caller. Fields are
// populated per branch; ResponseTimeSeconds is informational only.
type Response struct {
	Status              string              `json:"status"`
	IncidentID          string              `json:"incident_id,omitempty"`
	Incident            string              `json:"incident,omitempty"`
	Severity            domain.Severity     `json:"severity,omitempty"`
	Service             string              `json:"service,omitempty"`
	TicketStatus        domain.TicketStatus `json:"ticket_status,omitempty"`
	Occurrences         int                 `json:"occurrences,omitempty"`
	Similarity          float64             `json:"similarity,omitempty"`
	RegressionOf        string              `json:"regression_of,omitempty"`
	RunbookMatched      *bool               `json:"runbook_matched,omitempty"`
	Runbooks            []runbook.Entry     `json:"runbooks,omitempty"`
	Recommendations     string              `json:"recommendations,omitempty"`
	Error               string              `json:"error,omitempty"`
	ResponseTimeSeconds float64             `json:"response_time_seconds,omitempty"`
}

// IncidentClassifier decides new/existing/regression for a report.
type IncidentClassifier interface {
	Classify(ctx context.Context, incidentText string) (*classifier.Result, error)
}

// RunbookRetriever finds runbooks for a report.
type RunbookRetriever interface {
	Retrieve(ctx context.Context, incidentText string) ([]runbook.Entry, bool, error)
}

// Recommender produces remediation guidance.
type Recommender interface {
	Recommend(ctx context.Context, incidentText string, similar []classifier.SimilarIncident, runbooks []runbook.Entry) (string, error)
}

// TicketManager is the slice of the lifecycle manager the orchestrator uses.
type TicketManager interface {
	CreateTicket(ctx context.Context, input lifecycle.CreateInput) (*domain.Ticket, error)
	AppendEvent(ctx context.Context, incidentID, event, comment string) (bool, error)
}

// Orchestrator composes classification, runbook retrieval, recommendation
// and ticket lifecycle into the response for one incident report. It is the
// only component that branches on the classification outcome.
type Orchestrator struct {
	classifier         IncidentClassifier
	runbooks           RunbookRetriever
	advisor            Recommender
	tickets            TicketManager
	defaultSeverity    domain.Severity
	regressionSeverity domain.Severity
	metrics            *observability.Metrics
	logger             *zap.Logger
	now                func() time.Time
}

// Dependencies bundles the orchestrator's collaborators.
type Dependencies struct {
	Classifier         IncidentClassifier
	Runbooks           RunbookRetriever
	Advisor            Recommender
	Tickets            TicketManager
	DefaultSeverity    domain.Severity
	RegressionSeverity domain.Severity
	Metrics            *observability.Metrics
	Logger             *zap.Logger
}

// New constructs the orchestrator.
func New(deps Dependencies) *Orchestrator {
	defaultSeverity := deps.DefaultSeverity
	if defaultSeverity == "" {
		defaultSeverity = domain.SeverityMedium
	}
	regressionSeverity := deps.RegressionSeverity
	if regressionSeverity == "" {
		regressionSeverity = domain.SeverityHigh
	}
	return &Orchestrator{
		classifier:         deps.Classifier,
		runbooks:           deps.Runbooks,
		advisor:            deps.Advisor,
		tickets:            deps.Tickets,
		defaultSeverity:    defaultSeverity,
		regressionSeverity: regressionSeverity,
		metrics:            deps.Metrics,
		logger:             deps.Logger,
		now:                time.Now,
	}
}

// Respond handles one incident report end to end. Any backend failure is
// caught here and surfaced as a single error outcome; no partial ticket
// state is left beyond the lifecycle manager's write-ordering guarantee.
func (o *Orchestrator) Respond(ctx context.Context, report Report) Response {
	start := o.now()

	// Classification and runbook retrieval are independent; issue both at
	// once. Runbooks are needed even for a duplicate.
	var (
		wg          sync.WaitGroup
		result      *classifier.Result
		classifyErr error
		runbooks    []runbook.Entry
		matched     bool
		runbookErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		result, classifyErr = o.classifier.Classify(ctx, report.Log)
	}()
	go func() {
		defer wg.Done()
		runbooks, matched, runbookErr = o.runbooks.Retrieve(ctx, report.Log)
	}()
	wg.Wait()

	if classifyErr != nil {
		return o.fail(report, classifyErr)
	}
	if runbookErr != nil {
		return o.fail(report, runbookErr)
	}

	var (
		resp Response
		err  error
	)
	switch result.Outcome {
	case classifier.OutcomeExisting:
		resp, err = o.handleExisting(ctx, report, result, runbooks)
	case classifier.OutcomeRegression:
		resp, err = o.handleRegression(ctx, report, result, runbooks, matched)
	default:
		resp, err = o.handleNew(ctx, report, result, runbooks, matched)
	}
	if err != nil {
		return o.fail(report, err)
	}

	resp.ResponseTimeSeconds = roundSeconds(o.now().Sub(start))
	o.metrics.RecordOutcome(resp.Status)
	o.logger.Info("incident handled",
		zap.String("status", resp.Status),
		zap.String("incident_id", resp.IncidentID),
		zap.Float64("response_time_seconds", resp.ResponseTimeSeconds))
	return resp
}

// handleExisting appends a recurrence to the matched open ticket. The prior
// recommendation is returned as-is, not regenerated.
func (o *Orchestrator) handleExisting(ctx context.Context, report Report, result *classifier.Result, runbooks []runbook.Entry) (Response, error) {
	prior := result.Best.Ticket
	comment := fmt.Sprintf("Same incident reported again (similarity: %.3f)", result.Best.Similarity)

	ok, err := o.tickets.AppendEvent(ctx, prior.IncidentID, domain.EventRecurred, comment)
	if err != nil {
		return Response{}, err
	}
	if !ok {
		// The ticket vanished between classification and append. Keep the
		// request alive; the caller still gets the match and runbooks.
		o.logger.Warn("matched ticket disappeared before recurrence append",
			zap.String("incident_id", prior.IncidentID))
	}

	return Response{
		Status:          StatusExisting,
		IncidentID:      prior.IncidentID,
		Incident:        report.Log,
		Similarity:      result.Best.Similarity,
		TicketStatus:    prior.Status,
		Occurrences:     prior.Occurrences + 1,
		Runbooks:        runbooks,
		Recommendations: prior.Recommendations,
	}, nil
}

// handleRegression creates a fresh HIGH-severity ticket whose recommendation
// references the resolved ticket it regresses from.
func (o *Orchestrator) handleRegression(ctx context.Context, report Report, result *classifier.Result, runbooks []runbook.Entry, matched bool) (Response, error) {
	recommendation, err := o.advisor.Recommend(ctx, report.Log, result.Similar, runbooks)
	if err != nil {
		return Response{}, err
	}
	priorID := result.Best.Ticket.IncidentID
	recommendation = fmt.Sprintf("REGRESSION of %s\n\n%s", priorID, recommendation)

	ticket, err := o.tickets.CreateTicket(ctx, lifecycle.CreateInput{
		IncidentID:          lifecycle.NewIncidentID(),
		ErrorMessage:        report.Log,
		Service:             report.Service,
		Severity:            o.regressionSeverity,
		RunbookMatched:      matched,
		RecommendedRunbooks: runbookRefs(runbooks),
		Recommendations:     recommendation,
	})
	if err != nil {
		return Response{}, err
	}

	return Response{
		Status:          StatusRegression,
		IncidentID:      ticket.IncidentID,
		Incident:        report.Log,
		Severity:        ticket.Severity,
		RegressionOf:    priorID,
		Similarity:      result.Best.Similarity,
		Runbooks:        runbooks,
		Recommendations: recommendation,
	}, nil
}

func (o *Orchestrator) handleNew(ctx context.Context, report Report, result *classifier.Result, runbooks []runbook.Entry, matched bool) (Response, error) {
	recommendation, err := o.advisor.Recommend(ctx, report.Log, result.Similar, runbooks)
	if err != nil {
		return Response{}, err
	}

	ticket, err := o.tickets.CreateTicket(ctx, lifecycle.CreateInput{
		IncidentID:          lifecycle.NewIncidentID(),
		ErrorMessage:        report.Log,
		Service:             report.Service,
		Severity:            o.defaultSeverity,
		RunbookMatched:      matched,
		RecommendedRunbooks: runbookRefs(runbooks),
		Recommendations:     recommendation,
	})
	if err != nil {
		return Response{}, err
	}

	return Response{
		Status:          StatusNew,
		IncidentID:      ticket.IncidentID,
		Incident:        report.Log,
		Severity:        ticket.Severity,
		Service:         report.Service,
		RunbookMatched:  &matched,
		Runbooks:        runbooks,
		Recommendations: recommendation,
	}, nil
}

func (o *Orchestrator) fail(report Report, err error) Response {
	o.metrics.RecordOutcome(StatusError)
	o.logger.Error("incident handling failed",
		zap.String("service", report.Service), zap.Error(err))
	return Response{Status: StatusError, Error: err.Error()}
}

func runbookRefs(entries []runbook.Entry) []domain.RunbookRef {
	refs := make([]domain.RunbookRef, 0, len(entries))
	for _, entry := range entries {
		refs = append(refs, domain.RunbookRef{Title: entry.Title, Similarity: entry.Similarity})
	}
	return refs
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
