package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/quotation-service/internal/api/dto"
	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/service"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// QuotationsHandler manages quotation endpoints.
type QuotationsHandler struct {
	quotations *service.QuotationService
	views      *service.ViewService
}

// NewQuotationsHandler constructs handler.
func NewQuotationsHandler(quotations *service.QuotationService, views *service.ViewService) *QuotationsHandler {
	return &QuotationsHandler{quotations: quotations, views: views}
}

// CreateQuotation POST /quotations.
func (h *QuotationsHandler) CreateQuotation(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	if actorType != domain.ActorTypeCustomer {
		return util.NewForbidden("only customers create quotations")
	}
	var req dto.CreateQuotationRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	quotation, err := h.quotations.CreateQuotation(c.UserContext(), service.CreateQuotationInput{
		Type:        req.Type,
		CustomerID:  actorID,
		ArtistID:    req.ArtistID,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": quotationSummary(quotation)})
}

// ListQuotations GET /quotations.
func (h *QuotationsHandler) ListQuotations(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	if actorType != domain.ActorTypeCustomer {
		return util.NewForbidden("listing is customer-scoped")
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	quotations, err := h.quotations.ListQuotations(c.UserContext(), actorID, limit, offset)
	if err != nil {
		return err
	}
	items := make([]dto.QuotationSummary, 0, len(quotations))
	for i := range quotations {
		items = append(items, quotationSummary(&quotations[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetQuotation GET /quotations/:id.
func (h *QuotationsHandler) GetQuotation(c *fiber.Ctx) error {
	detail, err := h.views.GetQuotationDetail(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quotationDetail(detail)})
}

// ApplyTransition POST /quotations/:id/transitions.
func (h *QuotationsHandler) ApplyTransition(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	action, err := parseAction(req.Action)
	if err != nil {
		return err
	}

	payload := service.TransitionPayload{
		AppointmentDate:     req.AppointmentDate,
		AppointmentDuration: req.AppointmentDuration,
		Reason:              req.Reason,
	}
	if req.EstimatedCost != nil {
		payload.EstimatedCost = &domain.Money{
			Amount:   req.EstimatedCost.Amount,
			Currency: req.EstimatedCost.Currency,
			Scale:    req.EstimatedCost.Scale,
		}
	}

	quotation, err := h.quotations.ApplyTransition(c.UserContext(), service.TransitionRequest{
		QuotationID: c.Params("id"),
		ActorID:     actorID,
		ActorType:   actorType,
		Action:      action,
		Payload:     payload,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": quotationSummary(quotation)})
}

// MarkRead POST /quotations/:id/read.
func (h *QuotationsHandler) MarkRead(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	if err := h.quotations.MarkRead(c.UserContext(), c.Params("id"), actorID, actorType); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseAction(raw string) (service.Action, error) {
	action := service.Action(raw)
	switch action {
	case service.ActionQuote, service.ActionAccept, service.ActionReject,
		service.ActionAppeal, service.ActionCancel,
		service.ActionRejectAppeal, service.ActionAcceptAppeal:
		return action, nil
	}
	return "", util.NewValidationError("unknown action", map[string]any{"action": raw})
}

func moneyDTO(m domain.Money) *dto.MoneyDTO {
	if m.IsZero() {
		return nil
	}
	return &dto.MoneyDTO{Amount: m.Amount, Currency: m.Currency, Scale: m.Scale}
}

func quotationSummary(q *domain.Quotation) dto.QuotationSummary {
	return dto.QuotationSummary{
		ID:                  q.ID,
		Type:                q.Type,
		Status:              q.Status,
		CustomerID:          q.CustomerID,
		ArtistID:            q.ArtistID,
		Description:         q.Description,
		EstimatedCost:       moneyDTO(q.EstimatedCost),
		AppointmentDate:     q.AppointmentDate,
		AppointmentDuration: q.AppointmentDuration,
		CustomerUnread:      q.CustomerUnread,
		ArtistUnread:        q.ArtistUnread,
		CreatedAt:           q.CreatedAt,
		UpdatedAt:           q.UpdatedAt,
	}
}

func quotationDetail(detail *service.QuotationDetail) dto.QuotationDetailResponse {
	q := detail.Quotation
	response := dto.QuotationDetailResponse{
		QuotationSummary:     quotationSummary(&q),
		CustomerRejectReason: q.CustomerRejectReason,
		ArtistRejectReason:   q.ArtistRejectReason,
		CustomerCancelReason: q.CustomerCancelReason,
		SystemCancelReason:   q.SystemCancelReason,
		AppealReason:         q.AppealReason,
		Offers:               make([]dto.OfferResponse, 0, len(detail.Offers)),
		History:              make([]dto.HistoryEntryResponse, 0, len(detail.History)),
	}
	if detail.Customer != nil {
		response.CustomerName = detail.Customer.DisplayName
	}
	if detail.Artist != nil {
		response.ArtistName = detail.Artist.DisplayName
	}
	for _, view := range detail.Offers {
		response.Offers = append(response.Offers, offerResponse(view.Offer, view.Artist))
	}
	for _, entry := range detail.History {
		response.History = append(response.History, historyEntryResponse(entry))
	}
	return response
}

func historyEntryResponse(entry domain.QuotationHistory) dto.HistoryEntryResponse {
	response := dto.HistoryEntryResponse{
		ID:               entry.ID,
		PreviousStatus:   entry.PreviousStatus,
		NewStatus:        entry.NewStatus,
		ActorID:          entry.ActorID,
		ActorType:        entry.ActorType,
		PreviousDate:     entry.PreviousDate,
		NewDate:          entry.NewDate,
		PreviousDuration: entry.PreviousDuration,
		NewDuration:      entry.NewDuration,
		Reason:           entry.Reason,
		CreatedAt:        entry.CreatedAt,
	}
	if entry.PreviousCost != nil {
		response.PreviousCost = moneyDTO(*entry.PreviousCost)
	}
	if entry.NewCost != nil {
		response.NewCost = moneyDTO(*entry.NewCost)
	}
	return response
}
