package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/sla-service/internal/api/dto"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/service"
)

// DeadlineManager resolves and overrides ticket deadlines.
type DeadlineManager interface {
	GetDeadline(ctx context.Context, ticketID string) (*service.DeadlineView, error)
	OverrideDeadline(ctx context.Context, actor domain.Actor, ticketID string, input service.OverrideInput) (*service.DeadlineView, error)
	ListHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

// DeadlineHandler exposes ticket deadline endpoints.
type DeadlineHandler struct {
	deadlines DeadlineManager
}

// NewDeadlineHandler constructs handler.
func NewDeadlineHandler(deadlines DeadlineManager) *DeadlineHandler {
	return &DeadlineHandler{deadlines: deadlines}
}

// Get GET /sla/tickets/:id/deadline.
func (h *DeadlineHandler) Get(c *fiber.Ctx) error {
	ticketID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.deadlines.GetDeadline(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": deadlineResponse(view)})
}

// Override PUT /sla/tickets/:id/deadline.
func (h *DeadlineHandler) Override(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	ticketID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.OverrideDeadlineRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	view, err := h.deadlines.OverrideDeadline(c.UserContext(), *actor, ticketID, service.OverrideInput{
		Deadline: req.Deadline,
		Reason:   req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": deadlineResponse(view)})
}

// History GET /sla/tickets/:id/history.
func (h *DeadlineHandler) History(c *fiber.Ctx) error {
	ticketID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	entries, err := h.deadlines.ListHistory(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.TicketHistoryResponse{
			ID:          entry.ID,
			ChangedByID: entry.ChangedByID,
			ChangeType:  entry.ChangeType,
			OldValue:    entry.OldValue,
			NewValue:    entry.NewValue,
			CreatedAt:   entry.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

func deadlineResponse(view *service.DeadlineView) dto.DeadlineResponse {
	return dto.DeadlineResponse{
		TicketID:         view.Ticket.ID,
		SectorID:         view.Ticket.SectorID,
		Priority:         view.Ticket.Priority,
		Status:           view.Ticket.Status,
		Deadline:         view.Deadline,
		Source:           string(view.Source),
		Overdue:          view.Overdue,
		Mode:             view.Mode,
		InternalDeadline: view.Ticket.InternalDeadline,
	}
}
