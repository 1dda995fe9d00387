package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ssantosh21/incident-iq/internal/api/dto"
	"github.com/ssantosh21/incident-iq/internal/auth"
	"github.com/ssantosh21/incident-iq/internal/domain"
	"github.com/ssantosh21/incident-iq/internal/lifecycle"
	"github.com/ssantosh21/incident-iq/internal/orchestrator"
	"github.com/ssantosh21/incident-iq/internal/ticketstore"
)

// IncidentsHandler exposes the triage and ticket endpoints.
type IncidentsHandler struct {
	responder *orchestrator.Orchestrator
	tickets   *lifecycle.Manager
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(responder *orchestrator.Orchestrator, tickets *lifecycle.Manager) *IncidentsHandler {
	return &IncidentsHandler{responder: responder, tickets: tickets}
}

// Report handles POST /incident.
func (h *IncidentsHandler) Report(c *fiber.Ctx) error {
	var req dto.IncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if strings.TrimSpace(req.Log) == "" {
		return fiber.NewError(http.StatusBadRequest, "log required")
	}

	resp := h.responder.Respond(c.UserContext(), orchestrator.Report{
		Log:     req.Log,
		Service: req.Service,
	})
	if resp.Status == orchestrator.StatusError {
		return c.Status(http.StatusInternalServerError).JSON(resp)
	}
	return c.JSON(resp)
}

// Resolve handles POST /resolve.
func (h *IncidentsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.IncidentID == "" || strings.TrimSpace(req.Resolution) == "" {
		return fiber.NewError(http.StatusBadRequest, "incident_id and resolution required")
	}

	resolvedBy := req.ResolvedBy
	if resolvedBy == "" {
		if principal, ok := auth.PrincipalFromContext(c); ok {
			resolvedBy = principal.User.Username
		} else {
			resolvedBy = "unknown"
		}
	}

	ok, err := h.tickets.Resolve(c.UserContext(), req.IncidentID, req.Resolution, resolvedBy)
	if err != nil {
		return err
	}
	if !ok {
		return notFoundResponse(c, req.IncidentID)
	}

	return c.JSON(fiber.Map{
		"status":      "success",
		"incident_id": req.IncidentID,
		"resolution":  req.Resolution,
		"resolved_by": resolvedBy,
	})
}

// List handles GET /incidents with an optional ?status= filter.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	var status *domain.TicketStatus
	if raw := c.Query("status"); raw != "" {
		parsed := domain.TicketStatus(strings.ToUpper(raw))
		if parsed != domain.TicketStatusOpen && parsed != domain.TicketStatusResolved {
			return fiber.NewError(http.StatusBadRequest, "status must be OPEN or RESOLVED")
		}
		status = &parsed
	}

	tickets, err := h.tickets.List(c.UserContext(), status)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"count":     len(tickets),
		"incidents": tickets,
	})
}

// Get handles GET /incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	incidentID := c.Params("id")

	ticket, err := h.tickets.Get(c.UserContext(), incidentID)
	if err != nil {
		if errors.Is(err, ticketstore.ErrNotFound) {
			return notFoundResponse(c, incidentID)
		}
		return err
	}
	return c.JSON(ticket)
}

func notFoundResponse(c *fiber.Ctx, incidentID string) error {
	return c.Status(http.StatusNotFound).JSON(fiber.Map{
		"status": "error",
		"error":  fmt.Sprintf("Incident %s not found", incidentID),
	})
}
