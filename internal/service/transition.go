package service

import (
	"time"

	"github.com/spec-kit/quotation-service/internal/domain"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// Action is the closed set of quotation actions. Illegal action/payload
// combinations are rejected by Decide, not by string matching at call sites.
type Action string

const (
	ActionQuote        Action = "quote"
	ActionAccept       Action = "accept"
	ActionReject       Action = "reject"
	ActionAppeal       Action = "appeal"
	ActionCancel       Action = "cancel"
	ActionRejectAppeal Action = "reject_appeal"
	ActionAcceptAppeal Action = "accept_appeal"
)

// TransitionPayload carries the action-specific inputs.
type TransitionPayload struct {
	EstimatedCost       *domain.Money
	AppointmentDate     *time.Time
	AppointmentDuration *int32
	Reason              string
}

// ReasonField selects which reason column a transition writes. The mapping is
// fixed per (action, actor) pair so a reason can never land in the wrong
// column.
type ReasonField int

const (
	ReasonNone ReasonField = iota
	ReasonCustomerReject
	ReasonArtistReject
	ReasonCustomerCancel
	ReasonSystemCancel
	ReasonAppeal
)

// Mutations are the field changes a transition applies alongside the status.
type Mutations struct {
	EstimatedCost       *domain.Money
	AppointmentDate     *time.Time
	AppointmentDuration *int32
	ReasonField         ReasonField
	Reason              string
}

// Decision is the transition engine's verdict for a legal transition.
type Decision struct {
	NextStatus domain.QuotationStatus
	Mutations  Mutations
}

type transitionRule struct {
	from        domain.QuotationStatus
	action      Action
	actors      []domain.ActorType
	to          domain.QuotationStatus
	quoteFields bool // requires estimatedCost, appointmentDate, appointmentDuration
	reason      bool // requires a non-empty reason
}

// transitionTable is the sole authority on legal transitions.
var transitionTable = []transitionRule{
	{from: domain.QuotationStatusPending, action: ActionQuote, actors: []domain.ActorType{domain.ActorTypeArtist}, to: domain.QuotationStatusQuoted, quoteFields: true},
	{from: domain.QuotationStatusPending, action: ActionReject, actors: []domain.ActorType{domain.ActorTypeArtist, domain.ActorTypeCustomer}, to: domain.QuotationStatusRejected, reason: true},
	{from: domain.QuotationStatusPending, action: ActionCancel, actors: []domain.ActorType{domain.ActorTypeCustomer, domain.ActorTypeSystem}, to: domain.QuotationStatusCanceled, reason: true},

	{from: domain.QuotationStatusOpen, action: ActionAccept, actors: []domain.ActorType{domain.ActorTypeCustomer}, to: domain.QuotationStatusAccepted},
	{from: domain.QuotationStatusOpen, action: ActionCancel, actors: []domain.ActorType{domain.ActorTypeCustomer, domain.ActorTypeSystem}, to: domain.QuotationStatusCanceled, reason: true},

	{from: domain.QuotationStatusQuoted, action: ActionAccept, actors: []domain.ActorType{domain.ActorTypeCustomer}, to: domain.QuotationStatusAccepted},
	{from: domain.QuotationStatusQuoted, action: ActionReject, actors: []domain.ActorType{domain.ActorTypeArtist, domain.ActorTypeCustomer}, to: domain.QuotationStatusRejected, reason: true},
	{from: domain.QuotationStatusQuoted, action: ActionAppeal, actors: []domain.ActorType{domain.ActorTypeCustomer}, to: domain.QuotationStatusAppealed, reason: true},
	{from: domain.QuotationStatusQuoted, action: ActionCancel, actors: []domain.ActorType{domain.ActorTypeCustomer, domain.ActorTypeSystem}, to: domain.QuotationStatusCanceled, reason: true},

	{from: domain.QuotationStatusAppealed, action: ActionRejectAppeal, actors: []domain.ActorType{domain.ActorTypeArtist}, to: domain.QuotationStatusRejected},
	{from: domain.QuotationStatusAppealed, action: ActionAcceptAppeal, actors: []domain.ActorType{domain.ActorTypeArtist}, to: domain.QuotationStatusQuoted, quoteFields: true},
}

// reasonFieldFor routes a reason to its exact column per (action, actor).
func reasonFieldFor(action Action, actor domain.ActorType) ReasonField {
	switch action {
	case ActionReject:
		if actor == domain.ActorTypeCustomer {
			return ReasonCustomerReject
		}
		return ReasonArtistReject
	case ActionRejectAppeal:
		return ReasonArtistReject
	case ActionCancel:
		if actor == domain.ActorTypeCustomer {
			return ReasonCustomerCancel
		}
		return ReasonSystemCancel
	case ActionAppeal:
		return ReasonAppeal
	}
	return ReasonNone
}

// Decide computes the next status and field mutations for a quotation given
// an actor, an action, and the action payload. Pure: no I/O, no side effects.
func Decide(current domain.QuotationStatus, actor domain.ActorType, action Action, payload TransitionPayload) (Decision, error) {
	rule, ok := findRule(current, actor, action)
	if !ok {
		return Decision{}, util.NewIllegalTransition("no legal transition for this status, actor and action", map[string]any{
			"status": string(current),
			"actor":  string(actor),
			"action": string(action),
		})
	}

	if rule.quoteFields {
		if payload.EstimatedCost == nil {
			return Decision{}, util.NewMissingRequiredField("estimatedCost")
		}
		if payload.AppointmentDate == nil {
			return Decision{}, util.NewMissingRequiredField("appointmentDate")
		}
		if payload.AppointmentDuration == nil {
			return Decision{}, util.NewMissingRequiredField("appointmentDuration")
		}
	}
	if rule.reason && payload.Reason == "" {
		return Decision{}, util.NewMissingRequiredField("reason")
	}

	decision := Decision{NextStatus: rule.to}
	if rule.quoteFields {
		decision.Mutations.EstimatedCost = payload.EstimatedCost
		decision.Mutations.AppointmentDate = payload.AppointmentDate
		decision.Mutations.AppointmentDuration = payload.AppointmentDuration
	}
	if payload.Reason != "" {
		decision.Mutations.ReasonField = reasonFieldFor(action, actor)
		decision.Mutations.Reason = payload.Reason
	}
	return decision, nil
}

func findRule(current domain.QuotationStatus, actor domain.ActorType, action Action) (transitionRule, bool) {
	for _, rule := range transitionTable {
		if rule.from != current || rule.action != action {
			continue
		}
		for _, allowed := range rule.actors {
			if allowed == actor {
				return rule, true
			}
		}
	}
	return transitionRule{}, false
}
