package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/jobs"
	"github.com/spec-kit/quotation-service/internal/queue"
	"github.com/spec-kit/quotation-service/internal/repository"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// OfferService coordinates marketplace offers on OPEN quotations. Acceptance
// is single-winner: the quotation and offer rows are locked, and every rival
// SUBMITTED offer is rejected in the same transaction.
type OfferService struct {
	txm        repository.TxManager
	quotations repository.QuotationRepository
	offers     repository.OfferRepository
	history    repository.HistoryRepository
	enqueuer   queue.Enqueuer
	logger     *zap.Logger
}

func NewOfferService(
	txm repository.TxManager,
	quotations repository.QuotationRepository,
	offers repository.OfferRepository,
	history repository.HistoryRepository,
	enqueuer queue.Enqueuer,
	logger *zap.Logger,
) *OfferService {
	return &OfferService{
		txm:        txm,
		quotations: quotations,
		offers:     offers,
		history:    history,
		enqueuer:   enqueuer,
		logger:     logger,
	}
}

// SubmitOfferInput is an artist's bid.
type SubmitOfferInput struct {
	QuotationID       string
	ArtistID          string
	EstimatedCost     domain.Money
	EstimatedDuration int32
	Message           string
}

// SubmitOffer places a bid on an OPEN quotation still accepting offers. The
// precondition check and the insert share one transaction with the quotation
// row locked, so a quotation cannot close between check and insert. A second
// bid by the same artist surfaces as Conflict via the unique index.
func (s *OfferService) SubmitOffer(ctx context.Context, input SubmitOfferInput) (*domain.QuotationOffer, error) {
	if input.ArtistID == "" {
		return nil, util.NewMissingRequiredField("artistId")
	}
	if input.EstimatedCost.IsZero() {
		return nil, util.NewMissingRequiredField("estimatedCost")
	}
	if input.EstimatedDuration <= 0 {
		return nil, util.NewMissingRequiredField("estimatedDuration")
	}

	var (
		offer     *domain.QuotationOffer
		quotation *domain.Quotation
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		quotation, err = s.quotations.GetByIDForUpdate(ctx, input.QuotationID)
		if err != nil {
			return err
		}
		if quotation.Type != domain.QuotationTypeOpen {
			return util.NewForbidden("offers are only accepted on open quotations")
		}
		if quotation.Status != domain.QuotationStatusOpen {
			return util.NewConflict("quotation is no longer accepting offers", map[string]any{
				"quotation_id": quotation.ID,
				"status":       string(quotation.Status),
			})
		}

		offer = &domain.QuotationOffer{
			QuotationID:       input.QuotationID,
			ArtistID:          input.ArtistID,
			EstimatedCost:     input.EstimatedCost,
			EstimatedDuration: input.EstimatedDuration,
			Message:           input.Message,
			Status:            domain.OfferStatusSubmitted,
		}
		return s.offers.Create(ctx, offer)
	})
	if err != nil {
		return nil, err
	}

	s.enqueueOfferEvent(ctx, jobs.KindOfferSubmitted, quotation, offer)
	return offer, nil
}

// AcceptOffer selects the winning offer on an OPEN quotation. One transaction
// locks the quotation and offer rows, accepts the winner, rejects every other
// SUBMITTED offer, and moves the quotation to ACCEPTED with the winner's
// terms. Concurrent accepts serialize on the quotation row lock; the loser of
// the race sees Conflict.
func (s *OfferService) AcceptOffer(ctx context.Context, quotationID, offerID, customerID string) (*domain.QuotationOffer, error) {
	var (
		winner         *domain.QuotationOffer
		quotationAfter *domain.Quotation
		losers         []string
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		quotation, err := s.quotations.GetByIDForUpdate(ctx, quotationID)
		if err != nil {
			return err
		}
		if quotation.CustomerID != customerID {
			return util.NewForbidden("actor is not a participant of this quotation")
		}
		if quotation.Type != domain.QuotationTypeOpen {
			return util.NewForbidden("offer acceptance applies only to open quotations")
		}
		if quotation.Status != domain.QuotationStatusOpen {
			return util.NewConflict("quotation is no longer accepting offers", map[string]any{
				"quotation_id": quotation.ID,
				"status":       string(quotation.Status),
			})
		}

		offer, err := s.offers.GetByIDForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.QuotationID != quotation.ID {
			return util.NewNotFound("offer", map[string]any{"id": offerID})
		}
		if offer.Status != domain.OfferStatusSubmitted {
			return util.NewConflict("offer is not open for acceptance", map[string]any{
				"offer_id": offer.ID,
				"status":   string(offer.Status),
			})
		}

		if err := s.offers.UpdateStatus(ctx, offer.ID, domain.OfferStatusAccepted); err != nil {
			return err
		}
		losers, err = s.offers.RejectSubmittedSiblings(ctx, quotation.ID, offer.ID)
		if err != nil {
			return err
		}

		decision, err := Decide(quotation.Status, domain.ActorTypeCustomer, ActionAccept, TransitionPayload{})
		if err != nil {
			return err
		}

		entry := historyEntry(quotation, TransitionRequest{
			QuotationID: quotation.ID,
			ActorID:     customerID,
			ActorType:   domain.ActorTypeCustomer,
			Action:      ActionAccept,
		}, decision)
		entry.NewCost = &offer.EstimatedCost
		entry.NewDuration = &offer.EstimatedDuration

		quotation.Status = decision.NextStatus
		quotation.ArtistID = &offer.ArtistID
		quotation.EstimatedCost = offer.EstimatedCost
		quotation.AppointmentDuration = &offer.EstimatedDuration
		quotation.CustomerUnread = false
		quotation.ArtistUnread = true
		quotation.LastUpdatedBy = customerID
		quotation.LastUpdatedByType = domain.ActorTypeCustomer

		if err := s.quotations.Update(ctx, quotation); err != nil {
			return err
		}
		if err := s.history.Create(ctx, entry); err != nil {
			return err
		}

		offer.Status = domain.OfferStatusAccepted
		winner = offer
		quotationAfter = quotation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueueOfferEvent(ctx, jobs.KindOfferAccepted, quotationAfter, winner)
	for _, artistID := range losers {
		s.enqueueLoserEvent(ctx, quotationAfter, winner, artistID)
	}
	return winner, nil
}

// WithdrawOffer retracts the artist's own SUBMITTED offer.
func (s *OfferService) WithdrawOffer(ctx context.Context, quotationID, offerID, artistID string) error {
	return s.txm.WithinTx(ctx, func(ctx context.Context) error {
		quotation, err := s.quotations.GetByIDForUpdate(ctx, quotationID)
		if err != nil {
			return err
		}
		offer, err := s.offers.GetByIDForUpdate(ctx, offerID)
		if err != nil {
			return err
		}
		if offer.QuotationID != quotation.ID {
			return util.NewNotFound("offer", map[string]any{"id": offerID})
		}
		if offer.ArtistID != artistID {
			return util.NewForbidden("only the submitting artist can withdraw an offer")
		}
		if offer.Status != domain.OfferStatusSubmitted {
			return util.NewConflict("only submitted offers can be withdrawn", map[string]any{
				"offer_id": offer.ID,
				"status":   string(offer.Status),
			})
		}
		return s.offers.UpdateStatus(ctx, offer.ID, domain.OfferStatusWithdrawn)
	})
}

// AddOfferMessage appends to the offer's negotiation thread. Only the offer's
// artist or the quotation's customer may post.
func (s *OfferService) AddOfferMessage(ctx context.Context, offerID, senderID string, senderType domain.ActorType, body string, imageURL *string) (*domain.OfferMessage, error) {
	if body == "" && imageURL == nil {
		return nil, util.NewMissingRequiredField("body")
	}

	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	quotation, err := s.quotations.GetByID(ctx, offer.QuotationID)
	if err != nil {
		return nil, err
	}
	switch senderType {
	case domain.ActorTypeArtist:
		if offer.ArtistID != senderID {
			return nil, util.NewForbidden("actor is not a participant of this offer")
		}
	case domain.ActorTypeCustomer:
		if quotation.CustomerID != senderID {
			return nil, util.NewForbidden("actor is not a participant of this offer")
		}
	default:
		return nil, util.NewForbidden("actor is not a participant of this offer")
	}

	msg := &domain.OfferMessage{
		OfferID:    offerID,
		SenderID:   senderID,
		SenderType: senderType,
		Body:       body,
		ImageURL:   imageURL,
	}
	if err := s.offers.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListOffers returns all offers on a quotation with their message threads.
func (s *OfferService) ListOffers(ctx context.Context, quotationID string) ([]domain.QuotationOffer, error) {
	offers, err := s.offers.ListByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	for i := range offers {
		messages, err := s.offers.ListMessages(ctx, offers[i].ID)
		if err != nil {
			return nil, err
		}
		offers[i].Messages = messages
	}
	return offers, nil
}

func (s *OfferService) enqueueOfferEvent(ctx context.Context, kind jobs.Kind, q *domain.Quotation, offer *domain.QuotationOffer) {
	payload := jobs.OfferEventPayload{
		QuotationID:  q.ID,
		OfferID:      offer.ID,
		ArtistID:     offer.ArtistID,
		CustomerID:   q.CustomerID,
		CostAmount:   offer.EstimatedCost.Amount,
		CostCurrency: offer.EstimatedCost.Currency,
		CostScale:    offer.EstimatedCost.Scale,
	}
	s.enqueue(ctx, kind, q.ID, payload)
}

// enqueueLoserEvent notifies one losing artist after the winner is committed.
func (s *OfferService) enqueueLoserEvent(ctx context.Context, q *domain.Quotation, winner *domain.QuotationOffer, artistID string) {
	payload := jobs.OfferEventPayload{
		QuotationID: q.ID,
		OfferID:     winner.ID,
		ArtistID:    artistID,
		CustomerID:  q.CustomerID,
	}
	s.enqueue(ctx, jobs.KindOfferRejected, q.ID, payload)
}

func (s *OfferService) enqueue(ctx context.Context, kind jobs.Kind, quotationID string, payload any) {
	channel := jobs.ChannelEmailAndPush
	if kind == jobs.KindOfferRejected {
		channel = jobs.ChannelPush
	}
	env, err := jobs.NewEnvelope(kind, channel, payload)
	if err != nil {
		s.logger.Error("build notification envelope",
			zap.String("kind", string(kind)),
			zap.String("quotation_id", quotationID),
			zap.Error(err))
		return
	}
	if err := s.enqueuer.Enqueue(ctx, env); err != nil {
		s.logger.Error("enqueue notification",
			zap.String("kind", string(kind)),
			zap.String("quotation_id", quotationID),
			zap.Error(err))
	}
}
