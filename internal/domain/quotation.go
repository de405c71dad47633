package domain

import "time"

// QuotationType distinguishes negotiation modes.
type QuotationType string

const (
	// QuotationTypeDirect targets a single pre-selected artist.
	QuotationTypeDirect QuotationType = "DIRECT"
	// QuotationTypeOpen is marketplace bidding: multiple artists submit offers.
	QuotationTypeOpen QuotationType = "OPEN"
)

// QuotationStatus enumerates lifecycle states for quotations.
type QuotationStatus string

const (
	QuotationStatusPending  QuotationStatus = "PENDING"
	QuotationStatusOpen     QuotationStatus = "OPEN"
	QuotationStatusQuoted   QuotationStatus = "QUOTED"
	QuotationStatusAccepted QuotationStatus = "ACCEPTED"
	QuotationStatusRejected QuotationStatus = "REJECTED"
	QuotationStatusCanceled QuotationStatus = "CANCELED"
	QuotationStatusAppealed QuotationStatus = "APPEALED"
)

// Terminal reports whether no further transitions are legal from this status.
func (s QuotationStatus) Terminal() bool {
	switch s {
	case QuotationStatusAccepted, QuotationStatusRejected, QuotationStatusCanceled:
		return true
	}
	return false
}

// Quotation is the unit of negotiation between a customer and one or more
// artists. Status only changes through the transition engine.
type Quotation struct {
	ID         string
	Type       QuotationType
	Status     QuotationStatus
	CustomerID string
	// ArtistID is nil for OPEN quotations until an offer is accepted.
	ArtistID            *string
	Description         string
	EstimatedCost       Money
	AppointmentDate     *time.Time
	AppointmentDuration *int32

	CustomerRejectReason string
	ArtistRejectReason   string
	CustomerCancelReason string
	SystemCancelReason   string
	AppealReason         string

	CustomerUnread bool
	ArtistUnread   bool
	CustomerReadAt *time.Time
	ArtistReadAt   *time.Time

	LastUpdatedBy     string
	LastUpdatedByType ActorType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InitialStatus returns the creation status for a quotation type.
func InitialStatus(t QuotationType) QuotationStatus {
	if t == QuotationTypeOpen {
		return QuotationStatusOpen
	}
	return QuotationStatusPending
}
