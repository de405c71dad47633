package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/quotation-service/internal/domain"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

func quotePayload() TransitionPayload {
	date := time.Date(2026, 9, 10, 14, 0, 0, 0, time.UTC)
	duration := int32(120)
	return TransitionPayload{
		EstimatedCost:       &domain.Money{Amount: 25000, Currency: "JPY", Scale: 0},
		AppointmentDate:     &date,
		AppointmentDuration: &duration,
	}
}

func TestDecide_LegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current domain.QuotationStatus
		actor   domain.ActorType
		action  Action
		payload TransitionPayload
		want    domain.QuotationStatus
	}{
		{"artist quotes pending", domain.QuotationStatusPending, domain.ActorTypeArtist, ActionQuote, quotePayload(), domain.QuotationStatusQuoted},
		{"artist rejects pending", domain.QuotationStatusPending, domain.ActorTypeArtist, ActionReject, TransitionPayload{Reason: "booked out"}, domain.QuotationStatusRejected},
		{"customer rejects pending", domain.QuotationStatusPending, domain.ActorTypeCustomer, ActionReject, TransitionPayload{Reason: "changed my mind"}, domain.QuotationStatusRejected},
		{"customer cancels pending", domain.QuotationStatusPending, domain.ActorTypeCustomer, ActionCancel, TransitionPayload{Reason: "no longer needed"}, domain.QuotationStatusCanceled},
		{"system cancels pending", domain.QuotationStatusPending, domain.ActorTypeSystem, ActionCancel, TransitionPayload{Reason: "expired"}, domain.QuotationStatusCanceled},
		{"customer accepts open", domain.QuotationStatusOpen, domain.ActorTypeCustomer, ActionAccept, TransitionPayload{}, domain.QuotationStatusAccepted},
		{"customer cancels open", domain.QuotationStatusOpen, domain.ActorTypeCustomer, ActionCancel, TransitionPayload{Reason: "found another artist"}, domain.QuotationStatusCanceled},
		{"customer accepts quoted", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionAccept, TransitionPayload{}, domain.QuotationStatusAccepted},
		{"customer appeals quoted", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionAppeal, TransitionPayload{Reason: "price too high"}, domain.QuotationStatusAppealed},
		{"customer rejects quoted", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionReject, TransitionPayload{Reason: "too expensive"}, domain.QuotationStatusRejected},
		{"artist rejects appeal", domain.QuotationStatusAppealed, domain.ActorTypeArtist, ActionRejectAppeal, TransitionPayload{}, domain.QuotationStatusRejected},
		{"artist accepts appeal with new quote", domain.QuotationStatusAppealed, domain.ActorTypeArtist, ActionAcceptAppeal, quotePayload(), domain.QuotationStatusQuoted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := Decide(tt.current, tt.actor, tt.action, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision.NextStatus)
		})
	}
}

func TestDecide_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		current domain.QuotationStatus
		actor   domain.ActorType
		action  Action
	}{
		{"customer cannot quote", domain.QuotationStatusPending, domain.ActorTypeCustomer, ActionQuote},
		{"artist cannot accept", domain.QuotationStatusQuoted, domain.ActorTypeArtist, ActionAccept},
		{"artist cannot appeal", domain.QuotationStatusQuoted, domain.ActorTypeArtist, ActionAppeal},
		{"cannot quote twice", domain.QuotationStatusQuoted, domain.ActorTypeArtist, ActionQuote},
		{"accepted is terminal", domain.QuotationStatusAccepted, domain.ActorTypeCustomer, ActionCancel},
		{"rejected is terminal", domain.QuotationStatusRejected, domain.ActorTypeArtist, ActionQuote},
		{"canceled is terminal", domain.QuotationStatusCanceled, domain.ActorTypeCustomer, ActionAccept},
		{"customer cannot resolve appeal", domain.QuotationStatusAppealed, domain.ActorTypeCustomer, ActionRejectAppeal},
		{"system cannot accept", domain.QuotationStatusQuoted, domain.ActorTypeSystem, ActionAccept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decide(tt.current, tt.actor, tt.action, quotePayload())
			require.Error(t, err)
			assert.True(t, util.HasCode(err, "ILLEGAL_TRANSITION"))
		})
	}
}

func TestDecide_MissingRequiredFields(t *testing.T) {
	date := time.Now()
	duration := int32(60)
	cost := domain.Money{Amount: 100, Currency: "EUR", Scale: 2}

	tests := []struct {
		name    string
		current domain.QuotationStatus
		actor   domain.ActorType
		action  Action
		payload TransitionPayload
		field   string
	}{
		{"quote without cost", domain.QuotationStatusPending, domain.ActorTypeArtist, ActionQuote,
			TransitionPayload{AppointmentDate: &date, AppointmentDuration: &duration}, "estimatedCost"},
		{"quote without date", domain.QuotationStatusPending, domain.ActorTypeArtist, ActionQuote,
			TransitionPayload{EstimatedCost: &cost, AppointmentDuration: &duration}, "appointmentDate"},
		{"quote without duration", domain.QuotationStatusPending, domain.ActorTypeArtist, ActionQuote,
			TransitionPayload{EstimatedCost: &cost, AppointmentDate: &date}, "appointmentDuration"},
		{"reject without reason", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionReject, TransitionPayload{}, "reason"},
		{"cancel without reason", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionCancel, TransitionPayload{}, "reason"},
		{"appeal without reason", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionAppeal, TransitionPayload{}, "reason"},
		{"accept appeal without quote fields", domain.QuotationStatusAppealed, domain.ActorTypeArtist, ActionAcceptAppeal, TransitionPayload{}, "estimatedCost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decide(tt.current, tt.actor, tt.action, tt.payload)
			require.Error(t, err)
			assert.True(t, util.HasCode(err, "MISSING_REQUIRED_FIELD"))
			var domainErr *util.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.field, domainErr.Details["field"])
		})
	}
}

func TestDecide_ReasonRouting(t *testing.T) {
	tests := []struct {
		name   string
		status domain.QuotationStatus
		actor  domain.ActorType
		action Action
		want   ReasonField
	}{
		{"customer reject", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionReject, ReasonCustomerReject},
		{"artist reject", domain.QuotationStatusPending, domain.ActorTypeArtist, ActionReject, ReasonArtistReject},
		{"customer cancel", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionCancel, ReasonCustomerCancel},
		{"system cancel", domain.QuotationStatusQuoted, domain.ActorTypeSystem, ActionCancel, ReasonSystemCancel},
		{"appeal", domain.QuotationStatusQuoted, domain.ActorTypeCustomer, ActionAppeal, ReasonAppeal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision, err := Decide(tt.status, tt.actor, tt.action, TransitionPayload{Reason: "because"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision.Mutations.ReasonField)
			assert.Equal(t, "because", decision.Mutations.Reason)
		})
	}
}

// The full negotiation round trip: quote, appeal, re-quote, final rejection.
func TestDecide_NegotiationRoundTrip(t *testing.T) {
	status := domain.QuotationStatusPending

	decision, err := Decide(status, domain.ActorTypeArtist, ActionQuote, quotePayload())
	require.NoError(t, err)
	status = decision.NextStatus
	assert.Equal(t, domain.QuotationStatusQuoted, status)

	decision, err = Decide(status, domain.ActorTypeCustomer, ActionAppeal, TransitionPayload{Reason: "over budget"})
	require.NoError(t, err)
	status = decision.NextStatus
	assert.Equal(t, domain.QuotationStatusAppealed, status)

	decision, err = Decide(status, domain.ActorTypeArtist, ActionAcceptAppeal, quotePayload())
	require.NoError(t, err)
	status = decision.NextStatus
	assert.Equal(t, domain.QuotationStatusQuoted, status)

	decision, err = Decide(status, domain.ActorTypeCustomer, ActionReject, TransitionPayload{Reason: "still over budget"})
	require.NoError(t, err)
	status = decision.NextStatus
	assert.Equal(t, domain.QuotationStatusRejected, status)
	assert.True(t, status.Terminal())

	_, err = Decide(status, domain.ActorTypeArtist, ActionQuote, quotePayload())
	require.Error(t, err)
	assert.True(t, util.HasCode(err, "ILLEGAL_TRANSITION"))
}
