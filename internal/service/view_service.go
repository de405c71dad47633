package service

import (
	"context"

	"github.com/spec-kit/quotation-service/internal/domain"
	"github.com/spec-kit/quotation-service/internal/repository"
)

// QuotationDetail is the full read-side view of one quotation.
type QuotationDetail struct {
	Quotation domain.Quotation
	Customer  *domain.Customer
	Artist    *domain.Artist
	Offers    []OfferView
	History   []domain.QuotationHistory
}

// OfferView decorates an offer with its artist's display data.
type OfferView struct {
	Offer  domain.QuotationOffer
	Artist *domain.Artist
}

// ViewService assembles read-side aggregates. Lock-free: it never joins a
// transaction and tolerates parties deleted after the fact.
type ViewService struct {
	quotations repository.QuotationRepository
	offers     repository.OfferRepository
	history    repository.HistoryRepository
	customers  repository.CustomerRepository
	artists    repository.ArtistRepository
}

func NewViewService(
	quotations repository.QuotationRepository,
	offers repository.OfferRepository,
	history repository.HistoryRepository,
	customers repository.CustomerRepository,
	artists repository.ArtistRepository,
) *ViewService {
	return &ViewService{
		quotations: quotations,
		offers:     offers,
		history:    history,
		customers:  customers,
		artists:    artists,
	}
}

// GetQuotationDetail loads the quotation with its offers, transition ledger
// and party display data. Artists are fetched once by id set, then mapped.
func (s *ViewService) GetQuotationDetail(ctx context.Context, quotationID string) (*QuotationDetail, error) {
	quotation, err := s.quotations.GetByID(ctx, quotationID)
	if err != nil {
		return nil, err
	}

	offers, err := s.offers.ListByQuotation(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	for i := range offers {
		messages, err := s.offers.ListMessages(ctx, offers[i].ID)
		if err != nil {
			return nil, err
		}
		offers[i].Messages = messages
	}

	history, err := s.history.ListByQuotation(ctx, quotationID, 0, 0)
	if err != nil {
		return nil, err
	}

	detail := &QuotationDetail{
		Quotation: *quotation,
		Offers:    make([]OfferView, 0, len(offers)),
		History:   history,
	}

	customer, err := s.customers.GetByID(ctx, quotation.CustomerID)
	if err == nil {
		detail.Customer = customer
	}

	artistByID, err := s.artistMap(ctx, quotation, offers)
	if err != nil {
		return nil, err
	}
	if quotation.ArtistID != nil {
		detail.Artist = artistByID[*quotation.ArtistID]
	}
	for _, offer := range offers {
		detail.Offers = append(detail.Offers, OfferView{
			Offer:  offer,
			Artist: artistByID[offer.ArtistID],
		})
	}
	return detail, nil
}

func (s *ViewService) artistMap(ctx context.Context, quotation *domain.Quotation, offers []domain.QuotationOffer) (map[string]*domain.Artist, error) {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if quotation.ArtistID != nil {
		add(*quotation.ArtistID)
	}
	for _, offer := range offers {
		add(offer.ArtistID)
	}

	artists, err := s.artists.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Artist, len(artists))
	for i := range artists {
		byID[artists[i].ID] = &artists[i]
	}
	return byID, nil
}
