package domain

import "time"

// QuotationHistory is an immutable audit trail entry. Exactly one row is
// written per successful transition, inside the same transaction.
type QuotationHistory struct {
	ID          string
	QuotationID string

	PreviousStatus QuotationStatus
	NewStatus      QuotationStatus

	ActorID   string
	ActorType ActorType

	PreviousCost     *Money
	NewCost          *Money
	PreviousDate     *time.Time
	NewDate          *time.Time
	PreviousDuration *int32
	NewDuration      *int32

	Reason string

	CreatedAt time.Time
}
