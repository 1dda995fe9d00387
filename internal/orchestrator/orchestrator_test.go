package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ssantosh21/incident-iq/internal/classifier"
	"github.com/ssantosh21/incident-iq/internal/domain"
	"github.com/ssantosh21/incident-iq/internal/lifecycle"
	"github.com/ssantosh21/incident-iq/internal/observability"
	"github.com/ssantosh21/incident-iq/internal/runbook"
	"github.com/ssantosh21/incident-iq/internal/search"
	"github.com/ssantosh21/incident-iq/internal/ticketstore"
)

type nopIndex struct{}

func (nopIndex) Search(_ context.Context, _ string, _ search.DocumentType, _ int) ([]search.Match, error) {
	return nil, nil
}

func (nopIndex) Upsert(_ context.Context, _ search.Document) error { return nil }

type scriptedClassifier struct {
	result *classifier.Result
	err    error
}

func (s *scriptedClassifier) Classify(_ context.Context, _ string) (*classifier.Result, error) {
	return s.result, s.err
}

type scriptedRunbooks struct {
	entries []runbook.Entry
	matched bool
	err     error
}

func (s *scriptedRunbooks) Retrieve(_ context.Context, _ string) ([]runbook.Entry, bool, error) {
	return s.entries, s.matched, s.err
}

type countingAdvisor struct {
	text  string
	err   error
	calls int
}

func (s *countingAdvisor) Recommend(_ context.Context, _ string, _ []classifier.SimilarIncident, _ []runbook.Entry) (string, error) {
	s.calls++
	return s.text, s.err
}

type fixture struct {
	orchestrator *Orchestrator
	store        *ticketstore.MemoryStore
	manager      *lifecycle.Manager
	advisor      *countingAdvisor
	metrics      *observability.Metrics
}

func newFixture(t *testing.T, triage IncidentClassifier, runbooks RunbookRetriever, adviser *countingAdvisor) *fixture {
	t.Helper()
	store := ticketstore.NewMemoryStore()
	manager := lifecycle.NewManager(lifecycle.ManagerDependencies{
		Store:  store,
		Index:  nopIndex{},
		Logger: zap.NewNop(),
	})
	metrics := observability.NewMetrics()
	return &fixture{
		orchestrator: New(Dependencies{
			Classifier:         triage,
			Runbooks:           runbooks,
			Advisor:            adviser,
			Tickets:            manager,
			DefaultSeverity:    domain.SeverityMedium,
			RegressionSeverity: domain.SeverityHigh,
			Metrics:            metrics,
			Logger:             zap.NewNop(),
		}),
		store:   store,
		manager: manager,
		advisor: adviser,
		metrics: metrics,
	}
}

var lambdaRunbooks = []runbook.Entry{
	{Title: "Lambda Timeout", Text: "Increase the timeout", Similarity: 0.88},
	{Title: "API Gateway 502 Error", Text: "Check upstream health", Similarity: 0.61},
}

func TestRespondNewIncident(t *testing.T) {
	triage := &scriptedClassifier{result: &classifier.Result{
		Outcome: classifier.OutcomeNew,
		Similar: []classifier.SimilarIncident{{IncidentID: "inc_old", Text: "old timeout", Similarity: 0.42}},
	}}
	f := newFixture(t, triage, &scriptedRunbooks{entries: lambdaRunbooks, matched: true}, &countingAdvisor{text: "Increase the function timeout."})

	resp := f.orchestrator.Respond(context.Background(), Report{Log: "Task timed out after 30.00 seconds", Service: "process-orders"})

	assert.Equal(t, StatusNew, resp.Status)
	assert.Regexp(t, `^inc_[0-9a-f]{8}$`, resp.IncidentID)
	assert.Equal(t, domain.SeverityMedium, resp.Severity)
	assert.Equal(t, "process-orders", resp.Service)
	require.NotNil(t, resp.RunbookMatched)
	assert.True(t, *resp.RunbookMatched)
	assert.Equal(t, lambdaRunbooks, resp.Runbooks)
	assert.Equal(t, "Increase the function timeout.", resp.Recommendations)
	assert.Equal(t, 1, f.advisor.calls)

	ticket, err := f.manager.Get(context.Background(), resp.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, 1, ticket.Occurrences)
	require.Len(t, ticket.RecommendedRunbooks, 2)
	assert.Equal(t, "Lambda Timeout", ticket.RecommendedRunbooks[0].Title)

	assert.Equal(t, int64(1), f.metrics.OutcomeCount(StatusNew))
}

func TestRespondExistingIncident(t *testing.T) {
	f := newFixture(t, nil, nil, &countingAdvisor{text: "should not be used"})

	prior, err := f.manager.CreateTicket(context.Background(), lifecycle.CreateInput{
		IncidentID:      "inc_44440001",
		ErrorMessage:    "Task timed out after 30.00 seconds",
		Service:         "process-orders",
		Severity:        domain.SeverityMedium,
		Recommendations: "Increase the function timeout.",
	})
	require.NoError(t, err)

	f.orchestrator.classifier = &scriptedClassifier{result: &classifier.Result{
		Outcome: classifier.OutcomeExisting,
		Best:    &classifier.BestMatch{Ticket: prior, Similarity: 0.91},
	}}
	f.orchestrator.runbooks = &scriptedRunbooks{entries: lambdaRunbooks, matched: true}

	resp := f.orchestrator.Respond(context.Background(), Report{Log: "Task timed out after 30.01 seconds", Service: "process-orders"})

	assert.Equal(t, StatusExisting, resp.Status)
	assert.Equal(t, "inc_44440001", resp.IncidentID)
	assert.InDelta(t, 0.91, resp.Similarity, 1e-9)
	assert.Equal(t, domain.TicketStatusOpen, resp.TicketStatus)
	assert.Equal(t, 2, resp.Occurrences)
	assert.Equal(t, "Increase the function timeout.", resp.Recommendations, "duplicates reuse the stored recommendation")
	assert.Zero(t, f.advisor.calls, "duplicates must not regenerate recommendations")

	updated, err := f.manager.Get(context.Background(), "inc_44440001")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Occurrences)
	require.Len(t, updated.History, 2)
	assert.Equal(t, "Same incident reported again (similarity: 0.910)", updated.History[1].Comment)
}

func TestRespondRegression(t *testing.T) {
	f := newFixture(t, nil, nil, &countingAdvisor{text: "Re-apply the timeout increase."})

	prior, err := f.manager.CreateTicket(context.Background(), lifecycle.CreateInput{
		IncidentID:   "inc_44440002",
		ErrorMessage: "Task timed out after 30.00 seconds",
		Service:      "process-orders",
		Severity:     domain.SeverityMedium,
	})
	require.NoError(t, err)
	ok, err := f.manager.Resolve(context.Background(), prior.IncidentID, "Increased the timeout", "alice")
	require.NoError(t, err)
	require.True(t, ok)

	resolved, err := f.manager.Get(context.Background(), prior.IncidentID)
	require.NoError(t, err)

	f.orchestrator.classifier = &scriptedClassifier{result: &classifier.Result{
		Outcome: classifier.OutcomeRegression,
		Best:    &classifier.BestMatch{Ticket: resolved, Similarity: 0.87},
	}}
	f.orchestrator.runbooks = &scriptedRunbooks{entries: lambdaRunbooks, matched: true}

	resp := f.orchestrator.Respond(context.Background(), Report{Log: "Task timed out after 30.02 seconds", Service: "process-orders"})

	assert.Equal(t, StatusRegression, resp.Status)
	assert.NotEqual(t, prior.IncidentID, resp.IncidentID, "a regression opens a fresh ticket")
	assert.Equal(t, "inc_44440002", resp.RegressionOf)
	assert.Equal(t, domain.SeverityHigh, resp.Severity)
	assert.InDelta(t, 0.87, resp.Similarity, 1e-9)
	assert.True(t, strings.HasPrefix(resp.Recommendations, "REGRESSION of inc_44440002\n\n"))

	ticket, err := f.manager.Get(context.Background(), resp.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityHigh, ticket.Severity)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)

	stillResolved, err := f.manager.Get(context.Background(), "inc_44440002")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, stillResolved.Status)
}

func TestRespondClassifierError(t *testing.T) {
	f := newFixture(t,
		&scriptedClassifier{err: errors.New("search backend unavailable")},
		&scriptedRunbooks{entries: lambdaRunbooks, matched: true},
		&countingAdvisor{})

	resp := f.orchestrator.Respond(context.Background(), Report{Log: "anything"})

	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "search backend unavailable")
	assert.Empty(t, resp.IncidentID)
	assert.Equal(t, int64(1), f.metrics.OutcomeCount(StatusError))
}

func TestRespondRunbookError(t *testing.T) {
	f := newFixture(t,
		&scriptedClassifier{result: &classifier.Result{Outcome: classifier.OutcomeNew}},
		&scriptedRunbooks{err: errors.New("search backend unavailable")},
		&countingAdvisor{})

	resp := f.orchestrator.Respond(context.Background(), Report{Log: "anything"})

	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, int64(1), f.metrics.OutcomeCount(StatusError))
}

func TestRespondAdvisorError(t *testing.T) {
	f := newFixture(t,
		&scriptedClassifier{result: &classifier.Result{Outcome: classifier.OutcomeNew}},
		&scriptedRunbooks{entries: lambdaRunbooks, matched: true},
		&countingAdvisor{err: errors.New("completion service returned 500")})

	resp := f.orchestrator.Respond(context.Background(), Report{Log: "anything"})

	assert.Equal(t, StatusError, resp.Status)

	tickets, err := f.manager.List(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tickets, "no ticket is created when recommendation generation fails")
}
