package dto

import (
	"time"

	"github.com/spec-kit/quotation-service/internal/domain"
)

// SubmitOfferRequest payload.
type SubmitOfferRequest struct {
	EstimatedCost     MoneyDTO `json:"estimated_cost"`
	EstimatedDuration int32    `json:"estimated_duration"`
	Message           string   `json:"message"`
}

// AddOfferMessageRequest payload.
type AddOfferMessageRequest struct {
	Body     string  `json:"body"`
	ImageURL *string `json:"image_url"`
}

// OfferResponse response.
type OfferResponse struct {
	ID                string                 `json:"id"`
	QuotationID       string                 `json:"quotation_id"`
	ArtistID          string                 `json:"artist_id"`
	ArtistName        string                 `json:"artist_name,omitempty"`
	EstimatedCost     MoneyDTO               `json:"estimated_cost"`
	EstimatedDuration int32                  `json:"estimated_duration"`
	Message           string                 `json:"message"`
	Status            domain.OfferStatus     `json:"status"`
	Messages          []OfferMessageResponse `json:"messages"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// OfferMessageResponse is one thread entry.
type OfferMessageResponse struct {
	ID         string           `json:"id"`
	SenderID   string           `json:"sender_id"`
	SenderType domain.ActorType `json:"sender_type"`
	Body       string           `json:"body"`
	ImageURL   *string          `json:"image_url"`
	CreatedAt  time.Time        `json:"created_at"`
}
