package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/ssantosh21/incident-iq/internal/api/http"
	"github.com/ssantosh21/incident-iq/internal/api/http/handlers"
	"github.com/ssantosh21/incident-iq/internal/auth"
	"github.com/ssantosh21/incident-iq/internal/classifier"
	"github.com/ssantosh21/incident-iq/internal/config"
	"github.com/ssantosh21/incident-iq/internal/domain"
	"github.com/ssantosh21/incident-iq/internal/lifecycle"
	"github.com/ssantosh21/incident-iq/internal/observability"
	"github.com/ssantosh21/incident-iq/internal/orchestrator"
	"github.com/ssantosh21/incident-iq/internal/runbook"
	"github.com/ssantosh21/incident-iq/internal/search"
	"github.com/ssantosh21/incident-iq/internal/service"
	"github.com/ssantosh21/incident-iq/internal/ticketstore"
)

type memoryUserRepo struct {
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{byID: map[string]*domain.User{}, byUsername: map[string]*domain.User{}}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = fmt.Sprintf("user-%d", len(r.byID)+1)
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	r.byID[user.ID] = user
	r.byUsername[user.Username] = user
	return nil
}

func (r *memoryUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.byID[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.byID[user.ID] = user
	r.byUsername[user.Username] = user
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	user, ok := r.byUsername[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type nopIndex struct{}

func (nopIndex) Search(_ context.Context, _ string, _ search.DocumentType, _ int) ([]search.Match, error) {
	return nil, nil
}

func (nopIndex) Upsert(_ context.Context, _ search.Document) error { return nil }

type alwaysNewClassifier struct{}

func (alwaysNewClassifier) Classify(_ context.Context, _ string) (*classifier.Result, error) {
	return &classifier.Result{Outcome: classifier.OutcomeNew}, nil
}

type noRunbooks struct{}

func (noRunbooks) Retrieve(_ context.Context, _ string) ([]runbook.Entry, bool, error) {
	return nil, false, nil
}

type cannedAdvisor struct{}

func (cannedAdvisor) Recommend(_ context.Context, _ string, _ []classifier.SimilarIncident, _ []runbook.Entry) (string, error) {
	return "check the logs", nil
}

type testServer struct {
	app     *fiber.App
	tickets *lifecycle.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 60,
		BcryptCost:            4,
	}}

	users := newMemoryUserRepo()
	authService := service.NewAuthService(cfg, users)

	tickets := lifecycle.NewManager(lifecycle.ManagerDependencies{
		Store:  ticketstore.NewMemoryStore(),
		Index:  nopIndex{},
		Logger: zap.NewNop(),
	})
	responder := orchestrator.New(orchestrator.Dependencies{
		Classifier: alwaysNewClassifier{},
		Runbooks:   noRunbooks{},
		Advisor:    cannedAdvisor{},
		Tickets:    tickets,
		Metrics:    observability.NewMetrics(),
		Logger:     zap.NewNop(),
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), observability.NewMetrics(), time.Minute)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("incident-iq", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Incidents:      handlers.NewIncidentsHandler(responder, tickets),
		AuthMiddleware: auth.NewMiddleware(authService.TokenManager(), users),
	})
	return &testServer{app: app, tickets: tickets}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (s *testServer) registerAndLogin(t *testing.T) string {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var decoded struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	require.NotEmpty(t, decoded.Auth.Token)
	return decoded.Auth.Token
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/me", "/incidents"} {
		resp := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
	resp := s.do(t, http.MethodPost, "/incident", "", map[string]string{"log": "boom"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginAndMe(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t)

	resp := s.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded struct {
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))

	me := s.do(t, http.MethodGet, "/me", decoded.Auth.Token, nil)
	require.Equal(t, http.StatusOK, me.StatusCode)

	var profile map[string]any
	require.NoError(t, json.NewDecoder(me.Body).Decode(&profile))
	assert.Equal(t, "alice", profile["username"])
}

func TestLoginBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.registerAndLogin(t)

	resp := s.do(t, http.MethodPost, "/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestReportIncident(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t)

	resp := s.do(t, http.MethodPost, "/incident", token, map[string]string{
		"log":     "Task timed out after 30.00 seconds",
		"service": "process-orders",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded orchestrator.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "new", decoded.Status)
	assert.Regexp(t, `^inc_[0-9a-f]{8}$`, decoded.IncidentID)
	assert.Equal(t, "check the logs", decoded.Recommendations)
}

func TestReportIncidentRequiresLog(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t)

	resp := s.do(t, http.MethodPost, "/incident", token, map[string]string{"service": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestResolveFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t)

	ticket, err := s.tickets.CreateTicket(context.Background(), lifecycle.CreateInput{
		IncidentID:   "inc_55550001",
		ErrorMessage: "payment gateway 502",
		Severity:     domain.SeverityMedium,
	})
	require.NoError(t, err)

	resp := s.do(t, http.MethodPost, "/resolve", token, map[string]string{
		"incident_id": ticket.IncidentID,
		"resolution":  "restarted the gateway",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "alice", decoded["resolved_by"], "resolver defaults to the authenticated user")

	loaded, err := s.tickets.Get(context.Background(), ticket.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, loaded.Status)
}

func TestResolveUnknownTicket(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t)

	resp := s.do(t, http.MethodPost, "/resolve", token, map[string]string{
		"incident_id": "inc_none",
		"resolution":  "n/a",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "error", decoded["status"])
	assert.Equal(t, "Incident inc_none not found", decoded["error"])
}

func TestListAndGetIncidents(t *testing.T) {
	s := newTestServer(t)
	token := s.registerAndLogin(t)

	_, err := s.tickets.CreateTicket(context.Background(), lifecycle.CreateInput{
		IncidentID:   "inc_55550002",
		ErrorMessage: "disk full on /var",
		Severity:     domain.SeverityMedium,
	})
	require.NoError(t, err)

	list := s.do(t, http.MethodGet, "/incidents?status=OPEN", token, nil)
	require.Equal(t, http.StatusOK, list.StatusCode)

	var listing struct {
		Count     int             `json:"count"`
		Incidents []domain.Ticket `json:"incidents"`
	}
	require.NoError(t, json.NewDecoder(list.Body).Decode(&listing))
	assert.Equal(t, 1, listing.Count)

	get := s.do(t, http.MethodGet, "/incidents/inc_55550002", token, nil)
	require.Equal(t, http.StatusOK, get.StatusCode)

	var ticket domain.Ticket
	require.NoError(t, json.NewDecoder(get.Body).Decode(&ticket))
	assert.Equal(t, "disk full on /var", ticket.ErrorMessage)

	missing := s.do(t, http.MethodGet, "/incidents/inc_nope", token, nil)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)

	bad := s.do(t, http.MethodGet, "/incidents?status=BOGUS", token, nil)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
