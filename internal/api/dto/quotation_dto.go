package dto

import (
	"time"

	"github.com/spec-kit/quotation-service/internal/domain"
)

// MoneyDTO is the wire shape of a monetary amount. Amount is in minor units
// at the given scale; floats never appear.
type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Scale    int32  `json:"scale"`
}

// CreateQuotationRequest payload.
type CreateQuotationRequest struct {
	Type        domain.QuotationType `json:"type"`
	ArtistID    *string              `json:"artist_id"`
	Description string               `json:"description"`
}

// TransitionRequest payload for POST /quotations/:id/transitions.
type TransitionRequest struct {
	Action              string     `json:"action"`
	EstimatedCost       *MoneyDTO  `json:"estimated_cost"`
	AppointmentDate     *time.Time `json:"appointment_date"`
	AppointmentDuration *int32     `json:"appointment_duration"`
	Reason              string     `json:"reason"`
}

// QuotationSummary response.
type QuotationSummary struct {
	ID                  string                 `json:"id"`
	Type                domain.QuotationType   `json:"type"`
	Status              domain.QuotationStatus `json:"status"`
	CustomerID          string                 `json:"customer_id"`
	ArtistID            *string                `json:"artist_id"`
	Description         string                 `json:"description"`
	EstimatedCost       *MoneyDTO              `json:"estimated_cost"`
	AppointmentDate     *time.Time             `json:"appointment_date"`
	AppointmentDuration *int32                 `json:"appointment_duration"`
	CustomerUnread      bool                   `json:"customer_unread"`
	ArtistUnread        bool                   `json:"artist_unread"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// QuotationDetailResponse provides the full aggregate.
type QuotationDetailResponse struct {
	QuotationSummary
	CustomerRejectReason string                 `json:"customer_reject_reason,omitempty"`
	ArtistRejectReason   string                 `json:"artist_reject_reason,omitempty"`
	CustomerCancelReason string                 `json:"customer_cancel_reason,omitempty"`
	SystemCancelReason   string                 `json:"system_cancel_reason,omitempty"`
	AppealReason         string                 `json:"appeal_reason,omitempty"`
	CustomerName         string                 `json:"customer_name,omitempty"`
	ArtistName           string                 `json:"artist_name,omitempty"`
	Offers               []OfferResponse        `json:"offers"`
	History              []HistoryEntryResponse `json:"history"`
}

// HistoryEntryResponse is one transition ledger row.
type HistoryEntryResponse struct {
	ID                  string                 `json:"id"`
	PreviousStatus      domain.QuotationStatus `json:"previous_status"`
	NewStatus           domain.QuotationStatus `json:"new_status"`
	ActorID             string                 `json:"actor_id"`
	ActorType           domain.ActorType       `json:"actor_type"`
	PreviousCost        *MoneyDTO              `json:"previous_cost"`
	NewCost             *MoneyDTO              `json:"new_cost"`
	PreviousDate        *time.Time             `json:"previous_date"`
	NewDate             *time.Time             `json:"new_date"`
	PreviousDuration    *int32                 `json:"previous_duration"`
	NewDuration         *int32                 `json:"new_duration"`
	Reason              string                 `json:"reason,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
}
