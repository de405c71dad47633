package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/quotation-service/internal/api/dto"
	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/service"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// OffersHandler manages marketplace offer endpoints.
type OffersHandler struct {
	offers *service.OfferService
}

// NewOffersHandler constructs handler.
func NewOffersHandler(offers *service.OfferService) *OffersHandler {
	return &OffersHandler{offers: offers}
}

// SubmitOffer POST /quotations/:id/offers.
func (h *OffersHandler) SubmitOffer(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	if actorType != domain.ActorTypeArtist {
		return util.NewForbidden("only artists submit offers")
	}
	var req dto.SubmitOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}

	offer, err := h.offers.SubmitOffer(c.UserContext(), service.SubmitOfferInput{
		QuotationID: c.Params("id"),
		ArtistID:    actorID,
		EstimatedCost: domain.Money{
			Amount:   req.EstimatedCost.Amount,
			Currency: req.EstimatedCost.Currency,
			Scale:    req.EstimatedCost.Scale,
		},
		EstimatedDuration: req.EstimatedDuration,
		Message:           req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": offerResponse(*offer, nil)})
}

// AcceptOffer POST /quotations/:id/offers/:offerId/accept.
func (h *OffersHandler) AcceptOffer(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	if actorType != domain.ActorTypeCustomer {
		return util.NewForbidden("only the customer accepts offers")
	}

	offer, err := h.offers.AcceptOffer(c.UserContext(), c.Params("id"), c.Params("offerId"), actorID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": offerResponse(*offer, nil)})
}

// WithdrawOffer POST /quotations/:id/offers/:offerId/withdraw.
func (h *OffersHandler) WithdrawOffer(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	if actorType != domain.ActorTypeArtist {
		return util.NewForbidden("only the submitting artist withdraws offers")
	}
	if err := h.offers.WithdrawOffer(c.UserContext(), c.Params("id"), c.Params("offerId"), actorID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddOfferMessage POST /quotations/:id/offers/:offerId/messages.
func (h *OffersHandler) AddOfferMessage(c *fiber.Ctx) error {
	actorID, actorType, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dto.AddOfferMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Body) == "" && req.ImageURL == nil {
		return util.NewValidationError("body or image_url required", nil)
	}

	msg, err := h.offers.AddOfferMessage(c.UserContext(), c.Params("offerId"), actorID, actorType, req.Body, req.ImageURL)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": offerMessageResponse(*msg)})
}

func offerResponse(offer domain.QuotationOffer, artist *domain.Artist) dto.OfferResponse {
	response := dto.OfferResponse{
		ID:          offer.ID,
		QuotationID: offer.QuotationID,
		ArtistID:    offer.ArtistID,
		EstimatedCost: dto.MoneyDTO{
			Amount:   offer.EstimatedCost.Amount,
			Currency: offer.EstimatedCost.Currency,
			Scale:    offer.EstimatedCost.Scale,
		},
		EstimatedDuration: offer.EstimatedDuration,
		Message:           offer.Message,
		Status:            offer.Status,
		Messages:          make([]dto.OfferMessageResponse, 0, len(offer.Messages)),
		CreatedAt:         offer.CreatedAt,
		UpdatedAt:         offer.UpdatedAt,
	}
	if artist != nil {
		response.ArtistName = artist.DisplayName
	}
	for _, msg := range offer.Messages {
		response.Messages = append(response.Messages, offerMessageResponse(msg))
	}
	return response
}

func offerMessageResponse(msg domain.OfferMessage) dto.OfferMessageResponse {
	return dto.OfferMessageResponse{
		ID:         msg.ID,
		SenderID:   msg.SenderID,
		SenderType: msg.SenderType,
		Body:       msg.Body,
		ImageURL:   msg.ImageURL,
		CreatedAt:  msg.CreatedAt,
	}
}
