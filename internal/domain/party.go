package domain

import "time"

// Customer is the requesting party of a quotation. Read-only from the core's
// point of view; enrichment lookups only.
type Customer struct {
	ID          string
	DisplayName string
	Email       string
	CreatedAt   time.Time
}

// Artist is the quoting/bidding party.
type Artist struct {
	ID          string
	DisplayName string
	Email       string
	StudioName  *string
	CreatedAt   time.Time
}
