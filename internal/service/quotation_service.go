package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/jobs"
	"github.com/spec-kit/quotation-service/internal/queue"
	"github.com/spec-kit/quotation-service/internal/repository"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// QuotationService owns quotation creation and the transactional transition
// executor. Status never changes outside ApplyTransition.
type QuotationService struct {
	txm        repository.TxManager
	quotations repository.QuotationRepository
	history    repository.HistoryRepository
	enqueuer   queue.Enqueuer
	logger     *zap.Logger
}

func NewQuotationService(
	txm repository.TxManager,
	quotations repository.QuotationRepository,
	history repository.HistoryRepository,
	enqueuer queue.Enqueuer,
	logger *zap.Logger,
) *QuotationService {
	return &QuotationService{
		txm:        txm,
		quotations: quotations,
		history:    history,
		enqueuer:   enqueuer,
		logger:     logger,
	}
}

// CreateQuotationInput is the creation payload.
type CreateQuotationInput struct {
	Type        domain.QuotationType
	CustomerID  string
	ArtistID    *string
	Description string
}

// CreateQuotation creates a quotation in its initial status: PENDING for
// DIRECT, OPEN for marketplace requests.
func (s *QuotationService) CreateQuotation(ctx context.Context, input CreateQuotationInput) (*domain.Quotation, error) {
	if input.CustomerID == "" {
		return nil, util.NewMissingRequiredField("customerId")
	}
	if input.Description == "" {
		return nil, util.NewMissingRequiredField("description")
	}
	switch input.Type {
	case domain.QuotationTypeDirect:
		if input.ArtistID == nil || *input.ArtistID == "" {
			return nil, util.NewMissingRequiredField("artistId")
		}
	case domain.QuotationTypeOpen:
		if input.ArtistID != nil {
			return nil, util.NewValidationError("open quotations cannot target an artist", nil)
		}
	default:
		return nil, util.NewValidationError("unknown quotation type", map[string]any{"type": string(input.Type)})
	}

	quotation := &domain.Quotation{
		Type:              input.Type,
		Status:            domain.InitialStatus(input.Type),
		CustomerID:        input.CustomerID,
		ArtistID:          input.ArtistID,
		Description:       input.Description,
		ArtistUnread:      input.Type == domain.QuotationTypeDirect,
		LastUpdatedBy:     input.CustomerID,
		LastUpdatedByType: domain.ActorTypeCustomer,
	}
	if err := s.quotations.Create(ctx, quotation); err != nil {
		return nil, err
	}

	s.enqueueQuotationEvent(ctx, jobs.KindQuotationCreated, quotation, "", domain.ActorTypeCustomer, "")
	return quotation, nil
}

// TransitionRequest identifies the actor and the action to apply.
type TransitionRequest struct {
	QuotationID string
	ActorID     string
	ActorType   domain.ActorType
	Action      Action
	Payload     TransitionPayload
}

// ApplyTransition executes one state transition atomically: lock the row,
// consult the engine, apply mutations, record exactly one history entry. The
// notification job is enqueued only after commit and never unwinds the
// transition.
func (s *QuotationService) ApplyTransition(ctx context.Context, req TransitionRequest) (*domain.Quotation, error) {
	if !req.ActorType.Valid() {
		return nil, util.NewValidationError("unknown actor type", map[string]any{"actor_type": string(req.ActorType)})
	}

	var (
		updated    *domain.Quotation
		prevStatus domain.QuotationStatus
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		quotation, err := s.quotations.GetByIDForUpdate(ctx, req.QuotationID)
		if err != nil {
			return err
		}
		if err := authorizeActor(quotation, req.ActorID, req.ActorType); err != nil {
			return err
		}
		// open quotations resolve through offer acceptance, which picks the
		// winning artist and settles cost; a bare accept would leave both unset
		if req.Action == ActionAccept && quotation.Type == domain.QuotationTypeOpen {
			return util.NewForbidden("open quotations are resolved by accepting an offer")
		}

		decision, err := Decide(quotation.Status, req.ActorType, req.Action, req.Payload)
		if err != nil {
			return err
		}

		prevStatus = quotation.Status
		entry := historyEntry(quotation, req, decision)
		applyDecision(quotation, decision, req)

		if err := s.quotations.Update(ctx, quotation); err != nil {
			return err
		}
		if err := s.history.Create(ctx, entry); err != nil {
			return err
		}
		updated = quotation
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueueQuotationEvent(ctx, jobKindFor(req.Action), updated,
		string(prevStatus), req.ActorType, req.Payload.Reason)
	return updated, nil
}

// GetQuotation loads a single quotation, lock-free.
func (s *QuotationService) GetQuotation(ctx context.Context, id string) (*domain.Quotation, error) {
	return s.quotations.GetByID(ctx, id)
}

// ListQuotations pages a customer's quotations, newest activity first.
func (s *QuotationService) ListQuotations(ctx context.Context, customerID string, limit, offset int) ([]domain.Quotation, error) {
	return s.quotations.ListByCustomer(ctx, customerID, limit, offset)
}

// ListHistory returns the transition ledger for a quotation in order.
func (s *QuotationService) ListHistory(ctx context.Context, quotationID string, limit, offset int) ([]domain.QuotationHistory, error) {
	return s.history.ListByQuotation(ctx, quotationID, limit, offset)
}

// MarkRead clears the unread flag for the acting party.
func (s *QuotationService) MarkRead(ctx context.Context, quotationID, actorID string, actorType domain.ActorType) error {
	return s.txm.WithinTx(ctx, func(ctx context.Context) error {
		quotation, err := s.quotations.GetByIDForUpdate(ctx, quotationID)
		if err != nil {
			return err
		}
		if err := authorizeActor(quotation, actorID, actorType); err != nil {
			return err
		}
		now := time.Now().UTC()
		switch actorType {
		case domain.ActorTypeCustomer:
			quotation.CustomerUnread = false
			quotation.CustomerReadAt = &now
		case domain.ActorTypeArtist:
			quotation.ArtistUnread = false
			quotation.ArtistReadAt = &now
		default:
			return util.NewForbidden("only participants mark quotations read")
		}
		return s.quotations.Update(ctx, quotation)
	})
}

// authorizeActor verifies the actor is a participant of this quotation.
// SYSTEM actors pass; mismatched parties are indistinguishable from outsiders.
func authorizeActor(q *domain.Quotation, actorID string, actorType domain.ActorType) error {
	switch actorType {
	case domain.ActorTypeSystem:
		return nil
	case domain.ActorTypeCustomer:
		if q.CustomerID != actorID {
			return util.NewForbidden("actor is not a participant of this quotation")
		}
	case domain.ActorTypeArtist:
		if q.ArtistID == nil || *q.ArtistID != actorID {
			return util.NewForbidden("actor is not a participant of this quotation")
		}
	}
	return nil
}

// applyDecision mutates the quotation in place per the engine's verdict.
func applyDecision(q *domain.Quotation, decision Decision, req TransitionRequest) {
	q.Status = decision.NextStatus
	if decision.Mutations.EstimatedCost != nil {
		q.EstimatedCost = *decision.Mutations.EstimatedCost
	}
	if decision.Mutations.AppointmentDate != nil {
		q.AppointmentDate = decision.Mutations.AppointmentDate
	}
	if decision.Mutations.AppointmentDuration != nil {
		q.AppointmentDuration = decision.Mutations.AppointmentDuration
	}

	switch decision.Mutations.ReasonField {
	case ReasonCustomerReject:
		q.CustomerRejectReason = decision.Mutations.Reason
	case ReasonArtistReject:
		q.ArtistRejectReason = decision.Mutations.Reason
	case ReasonCustomerCancel:
		q.CustomerCancelReason = decision.Mutations.Reason
	case ReasonSystemCancel:
		q.SystemCancelReason = decision.Mutations.Reason
	case ReasonAppeal:
		q.AppealReason = decision.Mutations.Reason
	}

	// acting party has seen the new state, the other party has not
	switch req.ActorType {
	case domain.ActorTypeCustomer:
		q.CustomerUnread = false
		q.ArtistUnread = true
	case domain.ActorTypeArtist:
		q.ArtistUnread = false
		q.CustomerUnread = true
	default:
		q.CustomerUnread = true
		q.ArtistUnread = true
	}

	q.LastUpdatedBy = req.ActorID
	q.LastUpdatedByType = req.ActorType
}

// historyEntry snapshots before/after values. Must be built from the locked
// row before applyDecision mutates it.
func historyEntry(q *domain.Quotation, req TransitionRequest, decision Decision) *domain.QuotationHistory {
	entry := &domain.QuotationHistory{
		QuotationID:    q.ID,
		PreviousStatus: q.Status,
		NewStatus:      decision.NextStatus,
		ActorID:        req.ActorID,
		ActorType:      req.ActorType,
		Reason:         decision.Mutations.Reason,
	}
	if !q.EstimatedCost.IsZero() {
		prev := q.EstimatedCost
		entry.PreviousCost = &prev
	}
	entry.PreviousDate = q.AppointmentDate
	entry.PreviousDuration = q.AppointmentDuration

	if decision.Mutations.EstimatedCost != nil {
		entry.NewCost = decision.Mutations.EstimatedCost
		entry.NewDate = decision.Mutations.AppointmentDate
		entry.NewDuration = decision.Mutations.AppointmentDuration
	} else {
		entry.NewCost = entry.PreviousCost
		entry.NewDate = entry.PreviousDate
		entry.NewDuration = entry.PreviousDuration
	}
	return entry
}

// jobKindFor maps a transition action to its notification job kind.
func jobKindFor(action Action) jobs.Kind {
	switch action {
	case ActionQuote, ActionAcceptAppeal:
		return jobs.KindQuotationQuoted
	case ActionAccept:
		return jobs.KindQuotationAccepted
	case ActionReject, ActionRejectAppeal:
		return jobs.KindQuotationRejected
	case ActionCancel:
		return jobs.KindQuotationCanceled
	case ActionAppeal:
		return jobs.KindQuotationAppealed
	}
	return jobs.KindQuotationCreated
}

// enqueueQuotationEvent dispatches the post-commit notification. Failures are
// logged and swallowed: the committed transition is the source of truth.
func (s *QuotationService) enqueueQuotationEvent(ctx context.Context, kind jobs.Kind, q *domain.Quotation, prevStatus string, actor domain.ActorType, reason string) {
	payload := jobs.QuotationEventPayload{
		QuotationID:    q.ID,
		QuotationType:  string(q.Type),
		CustomerID:     q.CustomerID,
		PreviousStatus: prevStatus,
		NewStatus:      string(q.Status),
		ActorType:      string(actor),
		Reason:         reason,
	}
	if q.ArtistID != nil {
		payload.ArtistID = *q.ArtistID
	}

	env, err := jobs.NewEnvelope(kind, jobs.ChannelEmailAndPush, payload)
	if err != nil {
		s.logger.Error("build notification envelope",
			zap.String("kind", string(kind)),
			zap.String("quotation_id", q.ID),
			zap.Error(err))
		return
	}
	if err := s.enqueuer.Enqueue(ctx, env); err != nil {
		s.logger.Error("enqueue notification",
			zap.String("kind", string(kind)),
			zap.String("quotation_id", q.ID),
			zap.Error(err))
	}
}
