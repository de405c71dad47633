package domain

import "time"

// OfferStatus enumerates lifecycle states for offers on OPEN quotations.
type OfferStatus string

const (
	OfferStatusSubmitted OfferStatus = "SUBMITTED"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusRejected  OfferStatus = "REJECTED"
	OfferStatusWithdrawn OfferStatus = "WITHDRAWN"
)

// QuotationOffer is one artist's bid on an OPEN quotation. At most one offer
// exists per (quotation, artist), and at most one per quotation ever reaches
// ACCEPTED.
type QuotationOffer struct {
	ID                string
	QuotationID       string
	ArtistID          string
	EstimatedCost     Money
	EstimatedDuration int32
	Message           string
	Status            OfferStatus
	Messages          []OfferMessage
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OfferMessage is one entry in an offer's negotiation thread.
type OfferMessage struct {
	ID         string
	OfferID    string
	SenderID   string
	SenderType ActorType
	Body       string
	ImageURL   *string
	CreatedAt  time.Time
}
