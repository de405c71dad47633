package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates notification job variants.
type Kind string

const (
	KindQuotationCreated  Kind = "QUOTATION_CREATED"
	KindQuotationQuoted   Kind = "QUOTATION_QUOTED"
	KindQuotationAccepted Kind = "QUOTATION_ACCEPTED"
	KindQuotationRejected Kind = "QUOTATION_REJECTED"
	KindQuotationCanceled Kind = "QUOTATION_CANCELED"
	KindQuotationAppealed Kind = "QUOTATION_APPEALED"
	KindOfferSubmitted    Kind = "OFFER_SUBMITTED"
	KindOfferAccepted     Kind = "OFFER_ACCEPTED"
	KindOfferRejected     Kind = "OFFER_REJECTED"
	KindEventReminder     Kind = "EVENT_REMINDER"
)

// Channel selects the delivery medium for a job.
type Channel string

const (
	ChannelEmail        Channel = "EMAIL"
	ChannelPush         Channel = "PUSH"
	ChannelEmailAndPush Channel = "EMAIL_AND_PUSH"
)

// Envelope is the queued form of a notification job. Payload bytes are
// immutable once enqueued; the queue carries the attempt counter.
type Envelope struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Channel    Channel         `json:"channel"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewEnvelope marshals the payload and stamps identity and enqueue time.
func NewEnvelope(kind Kind, channel Channel, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Envelope{
		ID:         uuid.NewString(),
		Kind:       kind,
		Channel:    channel,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}, nil
}

// QuotationEventPayload describes a quotation state transition.
type QuotationEventPayload struct {
	QuotationID    string `json:"quotation_id"`
	QuotationType  string `json:"quotation_type"`
	CustomerID     string `json:"customer_id"`
	ArtistID       string `json:"artist_id,omitempty"`
	PreviousStatus string `json:"previous_status,omitempty"`
	NewStatus      string `json:"new_status"`
	ActorType      string `json:"actor_type"`
	Reason         string `json:"reason,omitempty"`
}

// OfferEventPayload describes an offer lifecycle event.
type OfferEventPayload struct {
	QuotationID  string `json:"quotation_id"`
	OfferID      string `json:"offer_id"`
	ArtistID     string `json:"artist_id"`
	CustomerID   string `json:"customer_id"`
	CostAmount   int64  `json:"cost_amount"`
	CostCurrency string `json:"cost_currency"`
	CostScale    int32  `json:"cost_scale"`
}

// EventReminderPayload nudges a party about an upcoming appointment.
type EventReminderPayload struct {
	QuotationID     string    `json:"quotation_id"`
	RecipientID     string    `json:"recipient_id"`
	RecipientType   string    `json:"recipient_type"`
	AppointmentDate time.Time `json:"appointment_date"`
}
