package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/jobs"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// passTxManager runs the unit of work without a database. Fakes apply writes
// immediately, so rollback tests assert on absence of side effects instead.
type passTxManager struct{}

func (passTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return util.MapError(err)
	}
	return nil
}

// hookTxManager runs a callback when the unit of work opens, before fn sees
// any locked state. Simulates writes that land just ahead of the lock.
type hookTxManager struct {
	before func()
}

func (m hookTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.before != nil {
		m.before()
	}
	return passTxManager{}.WithinTx(ctx, fn)
}

type fakeQuotationRepo struct {
	byID      map[string]*domain.Quotation
	seq       int
	updateErr error
}

func newFakeQuotationRepo() *fakeQuotationRepo {
	return &fakeQuotationRepo{byID: map[string]*domain.Quotation{}}
}

func (r *fakeQuotationRepo) Create(ctx context.Context, q *domain.Quotation) error {
	r.seq++
	q.ID = fmt.Sprintf("quotation-%d", r.seq)
	q.CreatedAt = time.Now().UTC()
	q.UpdatedAt = q.CreatedAt
	stored := *q
	r.byID[q.ID] = &stored
	return nil
}

func (r *fakeQuotationRepo) GetByID(ctx context.Context, id string) (*domain.Quotation, error) {
	q, ok := r.byID[id]
	if !ok {
		return nil, util.NewNotFound("quotation", map[string]any{"id": id})
	}
	copied := *q
	return &copied, nil
}

func (r *fakeQuotationRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Quotation, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeQuotationRepo) Update(ctx context.Context, q *domain.Quotation) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.byID[q.ID]; !ok {
		return util.NewNotFound("quotation", map[string]any{"id": q.ID})
	}
	q.UpdatedAt = time.Now().UTC()
	stored := *q
	r.byID[q.ID] = &stored
	return nil
}

func (r *fakeQuotationRepo) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Quotation, error) {
	var result []domain.Quotation
	for _, q := range r.byID {
		if q.CustomerID == customerID {
			result = append(result, *q)
		}
	}
	return result, nil
}

type fakeHistoryRepo struct {
	entries   []domain.QuotationHistory
	createErr error
}

func (r *fakeHistoryRepo) Create(ctx context.Context, entry *domain.QuotationHistory) error {
	if r.createErr != nil {
		return r.createErr
	}
	entry.ID = fmt.Sprintf("history-%d", len(r.entries)+1)
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeHistoryRepo) ListByQuotation(ctx context.Context, quotationID string, limit, offset int) ([]domain.QuotationHistory, error) {
	var result []domain.QuotationHistory
	for _, entry := range r.entries {
		if entry.QuotationID == quotationID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeEnqueuer struct {
	envelopes []jobs.Envelope
	err       error
}

func (e *fakeEnqueuer) Enqueue(ctx context.Context, env jobs.Envelope) error {
	if e.err != nil {
		return e.err
	}
	e.envelopes = append(e.envelopes, env)
	return nil
}

func (e *fakeEnqueuer) kinds() []jobs.Kind {
	kinds := make([]jobs.Kind, 0, len(e.envelopes))
	for _, env := range e.envelopes {
		kinds = append(kinds, env.Kind)
	}
	return kinds
}

type fakeOfferRepo struct {
	byID      map[string]*domain.QuotationOffer
	messages  map[string][]domain.OfferMessage
	seq       int
	createErr error
}

func newFakeOfferRepo() *fakeOfferRepo {
	return &fakeOfferRepo{
		byID:     map[string]*domain.QuotationOffer{},
		messages: map[string][]domain.OfferMessage{},
	}
}

func (r *fakeOfferRepo) Create(ctx context.Context, offer *domain.QuotationOffer) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.QuotationID == offer.QuotationID && existing.ArtistID == offer.ArtistID {
			return util.NewConflict("artist already has an offer on this quotation", nil)
		}
	}
	r.seq++
	offer.ID = fmt.Sprintf("offer-%d", r.seq)
	offer.CreatedAt = time.Now().UTC()
	offer.UpdatedAt = offer.CreatedAt
	stored := *offer
	r.byID[offer.ID] = &stored
	return nil
}

func (r *fakeOfferRepo) GetByID(ctx context.Context, id string) (*domain.QuotationOffer, error) {
	offer, ok := r.byID[id]
	if !ok {
		return nil, util.NewNotFound("offer", map[string]any{"id": id})
	}
	copied := *offer
	return &copied, nil
}

func (r *fakeOfferRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.QuotationOffer, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeOfferRepo) UpdateStatus(ctx context.Context, id string, status domain.OfferStatus) error {
	offer, ok := r.byID[id]
	if !ok {
		return util.NewNotFound("offer", map[string]any{"id": id})
	}
	offer.Status = status
	offer.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakeOfferRepo) RejectSubmittedSiblings(ctx context.Context, quotationID, exceptOfferID string) ([]string, error) {
	var losers []string
	for _, offer := range r.byID {
		if offer.QuotationID == quotationID && offer.ID != exceptOfferID && offer.Status == domain.OfferStatusSubmitted {
			offer.Status = domain.OfferStatusRejected
			losers = append(losers, offer.ArtistID)
		}
	}
	return losers, nil
}

func (r *fakeOfferRepo) ListByQuotation(ctx context.Context, quotationID string) ([]domain.QuotationOffer, error) {
	var result []domain.QuotationOffer
	for _, offer := range r.byID {
		if offer.QuotationID == quotationID {
			result = append(result, *offer)
		}
	}
	return result, nil
}

func (r *fakeOfferRepo) AddMessage(ctx context.Context, msg *domain.OfferMessage) error {
	msg.ID = fmt.Sprintf("message-%d", len(r.messages[msg.OfferID])+1)
	msg.CreatedAt = time.Now().UTC()
	r.messages[msg.OfferID] = append(r.messages[msg.OfferID], *msg)
	return nil
}

func (r *fakeOfferRepo) ListMessages(ctx context.Context, offerID string) ([]domain.OfferMessage, error) {
	return r.messages[offerID], nil
}
