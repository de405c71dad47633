package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/notify"
	"github.com/spec-kit/quotation-service/internal/repository"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// Collaborators are the shared dependencies handlers close over.
type Collaborators struct {
	Customers repository.CustomerRepository
	Artists   repository.ArtistRepository
	Email     notify.EmailSender
	Push      notify.PushSender
	EmailFrom string
	Logger    *zap.Logger
}

// DefaultRegistrations wires every job kind to its schema and handler.
func DefaultRegistrations(c Collaborators) map[Kind]Registration {
	return map[Kind]Registration{
		KindQuotationCreated:  {SchemaJSON: quotationEventSchema, Handler: c.handleQuotationCreated},
		KindQuotationQuoted:   {SchemaJSON: quotationEventSchema, Handler: c.handleQuotationQuoted},
		KindQuotationAccepted: {SchemaJSON: quotationEventSchema, Handler: c.handleQuotationAccepted},
		KindQuotationRejected: {SchemaJSON: quotationEventSchema, Handler: c.handleQuotationStatusToOther},
		KindQuotationCanceled: {SchemaJSON: quotationEventSchema, Handler: c.handleQuotationStatusToOther},
		KindQuotationAppealed: {SchemaJSON: quotationEventSchema, Handler: c.handleQuotationAppealed},
		KindOfferSubmitted:    {SchemaJSON: offerEventSchema, Handler: c.handleOfferSubmitted},
		KindOfferAccepted:     {SchemaJSON: offerEventSchema, Handler: c.handleOfferAccepted},
		KindOfferRejected:     {SchemaJSON: offerEventSchema, Handler: c.handleOfferRejected},
		KindEventReminder:     {SchemaJSON: eventReminderSchema, Handler: c.handleEventReminder},
	}
}

func (c Collaborators) handleQuotationCreated(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[QuotationEventPayload](env)
	if err != nil {
		return err
	}
	// OPEN quotations have no artist yet; marketplace broadcast is handled
	// outside this pipeline.
	if payload.ArtistID == "" {
		return nil
	}
	return c.notifyArtist(ctx, env.Channel, payload.ArtistID, "quotation_created",
		"New quotation request", fmt.Sprintf("You received a new quotation request (%s).", payload.QuotationID),
		map[string]any{"quotation_id": payload.QuotationID})
}

func (c Collaborators) handleQuotationQuoted(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[QuotationEventPayload](env)
	if err != nil {
		return err
	}
	return c.notifyCustomer(ctx, env.Channel, payload.CustomerID, "quotation_quoted",
		"Your quotation was priced", fmt.Sprintf("The artist sent a quote for request %s.", payload.QuotationID),
		map[string]any{"quotation_id": payload.QuotationID})
}

func (c Collaborators) handleQuotationAccepted(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[QuotationEventPayload](env)
	if err != nil {
		return err
	}
	if payload.ArtistID == "" {
		return nil
	}
	return c.notifyArtist(ctx, env.Channel, payload.ArtistID, "quotation_accepted",
		"Quote accepted", fmt.Sprintf("The customer accepted your quote for %s.", payload.QuotationID),
		map[string]any{"quotation_id": payload.QuotationID})
}

// handleQuotationStatusToOther notifies the party that did not act.
func (c Collaborators) handleQuotationStatusToOther(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[QuotationEventPayload](env)
	if err != nil {
		return err
	}
	subject := "Quotation update"
	body := fmt.Sprintf("Quotation %s is now %s.", payload.QuotationID, payload.NewStatus)
	data := map[string]any{"quotation_id": payload.QuotationID, "status": payload.NewStatus, "reason": payload.Reason}

	switch domain.ActorType(payload.ActorType) {
	case domain.ActorTypeCustomer:
		if payload.ArtistID == "" {
			return nil
		}
		return c.notifyArtist(ctx, env.Channel, payload.ArtistID, "quotation_status", subject, body, data)
	case domain.ActorTypeArtist:
		return c.notifyCustomer(ctx, env.Channel, payload.CustomerID, "quotation_status", subject, body, data)
	default:
		// system transitions notify both parties
		if err := c.notifyCustomer(ctx, env.Channel, payload.CustomerID, "quotation_status", subject, body, data); err != nil {
			return err
		}
		if payload.ArtistID == "" {
			return nil
		}
		return c.notifyArtist(ctx, env.Channel, payload.ArtistID, "quotation_status", subject, body, data)
	}
}

func (c Collaborators) handleQuotationAppealed(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[QuotationEventPayload](env)
	if err != nil {
		return err
	}
	if payload.ArtistID == "" {
		return nil
	}
	return c.notifyArtist(ctx, env.Channel, payload.ArtistID, "quotation_appealed",
		"Quote appealed", fmt.Sprintf("The customer appealed your quote for %s: %s", payload.QuotationID, payload.Reason),
		map[string]any{"quotation_id": payload.QuotationID, "reason": payload.Reason})
}

func (c Collaborators) handleOfferSubmitted(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[OfferEventPayload](env)
	if err != nil {
		return err
	}
	return c.notifyCustomer(ctx, env.Channel, payload.CustomerID, "offer_submitted",
		"New offer on your request", fmt.Sprintf("An artist submitted an offer on quotation %s.", payload.QuotationID),
		map[string]any{"quotation_id": payload.QuotationID, "offer_id": payload.OfferID})
}

func (c Collaborators) handleOfferAccepted(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[OfferEventPayload](env)
	if err != nil {
		return err
	}
	return c.notifyArtist(ctx, env.Channel, payload.ArtistID, "offer_accepted",
		"Your offer won", fmt.Sprintf("Your offer on quotation %s was accepted.", payload.QuotationID),
		map[string]any{"quotation_id": payload.QuotationID, "offer_id": payload.OfferID})
}

func (c Collaborators) handleOfferRejected(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[OfferEventPayload](env)
	if err != nil {
		return err
	}
	return c.notifyArtist(ctx, env.Channel, payload.ArtistID, "offer_rejected",
		"Offer not selected", fmt.Sprintf("Your offer on quotation %s was not selected.", payload.QuotationID),
		map[string]any{"quotation_id": payload.QuotationID, "offer_id": payload.OfferID})
}

func (c Collaborators) handleEventReminder(ctx context.Context, env Envelope) error {
	payload, err := DecodePayload[EventReminderPayload](env)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Reminder: appointment for quotation %s on %s.",
		payload.QuotationID, payload.AppointmentDate.Format("2006-01-02 15:04"))
	if domain.ActorType(payload.RecipientType) == domain.ActorTypeArtist {
		return c.notifyArtist(ctx, env.Channel, payload.RecipientID, "event_reminder", "Appointment reminder", body,
			map[string]any{"quotation_id": payload.QuotationID})
	}
	return c.notifyCustomer(ctx, env.Channel, payload.RecipientID, "event_reminder", "Appointment reminder", body,
		map[string]any{"quotation_id": payload.QuotationID})
}

func (c Collaborators) notifyCustomer(ctx context.Context, channel Channel, customerID, template, subject, body string, data map[string]any) error {
	customer, err := c.Customers.GetByID(ctx, customerID)
	if err != nil {
		return err
	}
	return c.deliver(ctx, channel, customer.ID, customer.Email, template, subject, body, data)
}

func (c Collaborators) notifyArtist(ctx context.Context, channel Channel, artistID, template, subject, body string, data map[string]any) error {
	artist, err := c.Artists.GetByID(ctx, artistID)
	if err != nil {
		return err
	}
	return c.deliver(ctx, channel, artist.ID, artist.Email, template, subject, body, data)
}

func (c Collaborators) deliver(ctx context.Context, channel Channel, userID, email, template, subject, body string, data map[string]any) error {
	if channel == ChannelEmail || channel == ChannelEmailAndPush {
		msg := notify.EmailMessage{
			From:     c.EmailFrom,
			To:       email,
			Subject:  subject,
			Template: template,
			Data:     data,
		}
		if err := c.Email.Send(ctx, msg); err != nil {
			return util.NewTransientSendFailure("email", err)
		}
	}
	if channel == ChannelPush || channel == ChannelEmailAndPush {
		pushData := make(map[string]string, len(data))
		for k, v := range data {
			pushData[k] = fmt.Sprint(v)
		}
		report, err := c.Push.SendToUser(ctx, userID, notify.PushNote{Title: subject, Body: body}, pushData)
		if err != nil {
			return util.NewTransientSendFailure("push", err)
		}
		if !report.Delivered {
			c.Logger.Warn("push not delivered",
				zap.String("user_id", userID),
				zap.String("template", template),
				zap.String("error", report.Error))
		}
	}
	return nil
}
