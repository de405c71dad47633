package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/jobs"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

type quotationFixture struct {
	service    *QuotationService
	quotations *fakeQuotationRepo
	history    *fakeHistoryRepo
	enqueuer   *fakeEnqueuer
}

func newQuotationFixture() *quotationFixture {
	quotations := newFakeQuotationRepo()
	history := &fakeHistoryRepo{}
	enqueuer := &fakeEnqueuer{}
	return &quotationFixture{
		service:    NewQuotationService(passTxManager{}, quotations, history, enqueuer, zap.NewNop()),
		quotations: quotations,
		history:    history,
		enqueuer:   enqueuer,
	}
}

func (f *quotationFixture) createDirect(t *testing.T, customerID, artistID string) *domain.Quotation {
	t.Helper()
	quotation, err := f.service.CreateQuotation(context.Background(), CreateQuotationInput{
		Type:        domain.QuotationTypeDirect,
		CustomerID:  customerID,
		ArtistID:    &artistID,
		Description: "dragon sleeve, upper arm",
	})
	require.NoError(t, err)
	return quotation
}

func TestCreateQuotation_InitialStatuses(t *testing.T) {
	fixture := newQuotationFixture()

	direct := fixture.createDirect(t, "customer-1", "artist-1")
	assert.Equal(t, domain.QuotationStatusPending, direct.Status)
	assert.True(t, direct.ArtistUnread)
	assert.False(t, direct.CustomerUnread)

	open, err := fixture.service.CreateQuotation(context.Background(), CreateQuotationInput{
		Type:        domain.QuotationTypeOpen,
		CustomerID:  "customer-1",
		Description: "koi on forearm",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusOpen, open.Status)
	assert.Nil(t, open.ArtistID)

	require.Len(t, fixture.enqueuer.envelopes, 2)
	assert.Equal(t, jobs.KindQuotationCreated, fixture.enqueuer.envelopes[0].Kind)
}

func TestCreateQuotation_Validation(t *testing.T) {
	fixture := newQuotationFixture()
	artistID := "artist-1"

	tests := []struct {
		name  string
		input CreateQuotationInput
		code  string
	}{
		{"missing customer", CreateQuotationInput{Type: domain.QuotationTypeDirect, ArtistID: &artistID, Description: "x"}, "MISSING_REQUIRED_FIELD"},
		{"missing description", CreateQuotationInput{Type: domain.QuotationTypeDirect, CustomerID: "c", ArtistID: &artistID}, "MISSING_REQUIRED_FIELD"},
		{"direct without artist", CreateQuotationInput{Type: domain.QuotationTypeDirect, CustomerID: "c", Description: "x"}, "MISSING_REQUIRED_FIELD"},
		{"open with artist", CreateQuotationInput{Type: domain.QuotationTypeOpen, CustomerID: "c", ArtistID: &artistID, Description: "x"}, "VALIDATION_FAILED"},
		{"unknown type", CreateQuotationInput{Type: "BROADCAST", CustomerID: "c", Description: "x"}, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.service.CreateQuotation(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, util.HasCode(err, tt.code))
		})
	}
	assert.Empty(t, fixture.enqueuer.envelopes)
}

func TestApplyTransition_QuoteRecordsHistoryAndEnqueues(t *testing.T) {
	fixture := newQuotationFixture()
	quotation := fixture.createDirect(t, "customer-1", "artist-1")
	fixture.enqueuer.envelopes = nil

	date := time.Date(2026, 9, 12, 11, 0, 0, 0, time.UTC)
	duration := int32(180)
	updated, err := fixture.service.ApplyTransition(context.Background(), TransitionRequest{
		QuotationID: quotation.ID,
		ActorID:     "artist-1",
		ActorType:   domain.ActorTypeArtist,
		Action:      ActionQuote,
		Payload: TransitionPayload{
			EstimatedCost:       &domain.Money{Amount: 48000, Currency: "JPY", Scale: 0},
			AppointmentDate:     &date,
			AppointmentDuration: &duration,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.QuotationStatusQuoted, updated.Status)
	assert.Equal(t, int64(48000), updated.EstimatedCost.Amount)
	require.NotNil(t, updated.AppointmentDate)
	assert.True(t, updated.AppointmentDate.Equal(date))

	// artist acted: artist read, customer flagged unread
	assert.False(t, updated.ArtistUnread)
	assert.True(t, updated.CustomerUnread)
	assert.Equal(t, "artist-1", updated.LastUpdatedBy)

	require.Len(t, fixture.history.entries, 1)
	entry := fixture.history.entries[0]
	assert.Equal(t, domain.QuotationStatusPending, entry.PreviousStatus)
	assert.Equal(t, domain.QuotationStatusQuoted, entry.NewStatus)
	assert.Nil(t, entry.PreviousCost)
	require.NotNil(t, entry.NewCost)
	assert.Equal(t, int64(48000), entry.NewCost.Amount)

	require.Len(t, fixture.enqueuer.envelopes, 1)
	env := fixture.enqueuer.envelopes[0]
	assert.Equal(t, jobs.KindQuotationQuoted, env.Kind)

	var payload jobs.QuotationEventPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, quotation.ID, payload.QuotationID)
	assert.Equal(t, string(domain.QuotationStatusPending), payload.PreviousStatus)
	assert.Equal(t, string(domain.QuotationStatusQuoted), payload.NewStatus)
}

func TestApplyTransition_IllegalLeavesNoTrace(t *testing.T) {
	fixture := newQuotationFixture()
	quotation := fixture.createDirect(t, "customer-1", "artist-1")
	fixture.enqueuer.envelopes = nil

	_, err := fixture.service.ApplyTransition(context.Background(), TransitionRequest{
		QuotationID: quotation.ID,
		ActorID:     "customer-1",
		ActorType:   domain.ActorTypeCustomer,
		Action:      ActionAccept,
	})
	require.Error(t, err)
	assert.True(t, util.HasCode(err, "ILLEGAL_TRANSITION"))

	stored, getErr := fixture.quotations.GetByID(context.Background(), quotation.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.QuotationStatusPending, stored.Status)
	assert.Empty(t, fixture.history.entries)
	assert.Empty(t, fixture.enqueuer.envelopes)
}

func TestApplyTransition_HistoryFailureAbortsAndSkipsEnqueue(t *testing.T) {
	fixture := newQuotationFixture()
	quotation := fixture.createDirect(t, "customer-1", "artist-1")
	fixture.enqueuer.envelopes = nil
	fixture.history.createErr = errors.New("disk full")

	_, err := fixture.service.ApplyTransition(context.Background(), TransitionRequest{
		QuotationID: quotation.ID,
		ActorID:     "customer-1",
		ActorType:   domain.ActorTypeCustomer,
		Action:      ActionCancel,
		Payload:     TransitionPayload{Reason: "changed plans"},
	})
	require.Error(t, err)
	assert.Empty(t, fixture.enqueuer.envelopes)
}

func TestApplyTransition_EnqueueFailureDoesNotUnwind(t *testing.T) {
	fixture := newQuotationFixture()
	quotation := fixture.createDirect(t, "customer-1", "artist-1")
	fixture.enqueuer.err = errors.New("redis down")

	updated, err := fixture.service.ApplyTransition(context.Background(), TransitionRequest{
		QuotationID: quotation.ID,
		ActorID:     "customer-1",
		ActorType:   domain.ActorTypeCustomer,
		Action:      ActionCancel,
		Payload:     TransitionPayload{Reason: "changed plans"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusCanceled, updated.Status)
	require.Len(t, fixture.history.entries, 1)
}

func TestApplyTransition_ReasonColumnRouting(t *testing.T) {
	fixture := newQuotationFixture()

	customerCancel := fixture.createDirect(t, "customer-1", "artist-1")
	updated, err := fixture.service.ApplyTransition(context.Background(), TransitionRequest{
		QuotationID: customerCancel.ID,
		ActorID:     "customer-1",
		ActorType:   domain.ActorTypeCustomer,
		Action:      ActionCancel,
		Payload:     TransitionPayload{Reason: "moving abroad"},
	})
	require.NoError(t, err)
	assert.Equal(t, "moving abroad", updated.CustomerCancelReason)
	assert.Empty(t, updated.SystemCancelReason)

	artistReject := fixture.createDirect(t, "customer-1", "artist-1")
	updated, err = fixture.service.ApplyTransition(context.Background(), TransitionRequest{
		QuotationID: artistReject.ID,
		ActorID:     "artist-1",
		ActorType:   domain.ActorTypeArtist,
		Action:      ActionReject,
		Payload:     TransitionPayload{Reason: "style mismatch"},
	})
	require.NoError(t, err)
	assert.Equal(t, "style mismatch", updated.ArtistRejectReason)
	assert.Empty(t, updated.CustomerRejectReason)
}

func TestApplyTransition_ForbiddenForOutsiders(t *testing.T) {
	fixture := newQuotationFixture()
	quotation := fixture.createDirect(t, "customer-1", "artist-1")

	tests := []struct {
		name      string
		actorID   string
		actorType domain.ActorType
	}{
		{"other customer", "customer-2", domain.ActorTypeCustomer},
		{"other artist", "artist-2", domain.ActorTypeArtist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fixture.service.ApplyTransition(context.Background(), TransitionRequest{
				QuotationID: quotation.ID,
				ActorID:     tt.actorID,
				ActorType:   tt.actorType,
				Action:      ActionCancel,
				Payload:     TransitionPayload{Reason: "nope"},
			})
			require.Error(t, err)
			assert.True(t, util.HasCode(err, "FORBIDDEN"))
		})
	}
}

func TestApplyTransition_OpenQuotationAcceptGoesThroughOffers(t *testing.T) {
	quotations := newFakeQuotationRepo()
	history := &fakeHistoryRepo{}
	enqueuer := &fakeEnqueuer{}
	offers := newFakeOfferRepo()
	ctx := context.Background()

	quotationSvc := NewQuotationService(passTxManager{}, quotations, history, enqueuer, zap.NewNop())
	offerSvc := NewOfferService(passTxManager{}, quotations, offers, history, enqueuer, zap.NewNop())

	open, err := quotationSvc.CreateQuotation(ctx, CreateQuotationInput{
		Type:        domain.QuotationTypeOpen,
		CustomerID:  "customer-1",
		Description: "snake wrapping the wrist",
	})
	require.NoError(t, err)

	offer, err := offerSvc.SubmitOffer(ctx, SubmitOfferInput{
		QuotationID:       open.ID,
		ArtistID:          "artist-1",
		EstimatedCost:     domain.Money{Amount: 12000, Currency: "JPY", Scale: 0},
		EstimatedDuration: 120,
	})
	require.NoError(t, err)
	enqueuer.envelopes = nil

	// the generic transition endpoint must not settle an open quotation:
	// that would leave artist and cost unset and the offer dangling
	_, err = quotationSvc.ApplyTransition(ctx, TransitionRequest{
		QuotationID: open.ID,
		ActorID:     "customer-1",
		ActorType:   domain.ActorTypeCustomer,
		Action:      ActionAccept,
	})
	require.Error(t, err)
	assert.True(t, util.HasCode(err, "FORBIDDEN"))

	stored, err := quotations.GetByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuotationStatusOpen, stored.Status)
	assert.Nil(t, stored.ArtistID)
	assert.True(t, stored.EstimatedCost.IsZero())

	storedOffer, err := offers.GetByID(ctx, offer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusSubmitted, storedOffer.Status)
	assert.Empty(t, history.entries)
	assert.Empty(t, enqueuer.envelopes)

	// offer acceptance remains the one way to settle it
	accepted, err := offerSvc.AcceptOffer(ctx, open.ID, offer.ID, "customer-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OfferStatusAccepted, accepted.Status)
}

func TestApplyTransition_FullNegotiationLedger(t *testing.T) {
	fixture := newQuotationFixture()
	quotation := fixture.createDirect(t, "customer-1", "artist-1")
	ctx := context.Background()

	date := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	duration := int32(90)
	quotePayload := TransitionPayload{
		EstimatedCost:       &domain.Money{Amount: 30000, Currency: "JPY", Scale: 0},
		AppointmentDate:     &date,
		AppointmentDuration: &duration,
	}

	steps := []TransitionRequest{
		{QuotationID: quotation.ID, ActorID: "artist-1", ActorType: domain.ActorTypeArtist, Action: ActionQuote, Payload: quotePayload},
		{QuotationID: quotation.ID, ActorID: "customer-1", ActorType: domain.ActorTypeCustomer, Action: ActionAppeal, Payload: TransitionPayload{Reason: "too pricey"}},
		{QuotationID: quotation.ID, ActorID: "artist-1", ActorType: domain.ActorTypeArtist, Action: ActionAcceptAppeal, Payload: quotePayload},
		{QuotationID: quotation.ID, ActorID: "customer-1", ActorType: domain.ActorTypeCustomer, Action: ActionAccept},
	}
	for _, step := range steps {
		_, err := fixture.service.ApplyTransition(ctx, step)
		require.NoError(t, err)
	}

	entries, err := fixture.service.ListHistory(ctx, quotation.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	// the ledger chains: each row's new status is the next row's previous
	for i := 1; i < len(entries); i++ {
		assert.Equal(t, entries[i-1].NewStatus, entries[i].PreviousStatus)
	}
	assert.Equal(t, domain.QuotationStatusAccepted, entries[3].NewStatus)
}

func TestMarkRead(t *testing.T) {
	fixture := newQuotationFixture()
	quotation := fixture.createDirect(t, "customer-1", "artist-1")

	require.NoError(t, fixture.service.MarkRead(context.Background(), quotation.ID, "artist-1", domain.ActorTypeArtist))

	stored, err := fixture.quotations.GetByID(context.Background(), quotation.ID)
	require.NoError(t, err)
	assert.False(t, stored.ArtistUnread)
	assert.NotNil(t, stored.ArtistReadAt)

	err = fixture.service.MarkRead(context.Background(), quotation.ID, "system", domain.ActorTypeSystem)
	require.Error(t, err)
	assert.True(t, util.HasCode(err, "FORBIDDEN"))
}
