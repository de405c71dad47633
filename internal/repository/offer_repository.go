package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/quotation-service/internal/domain"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// OfferRepository encapsulates offer persistence.
type OfferRepository interface {
	Create(ctx context.Context, offer *domain.QuotationOffer) error
	GetByID(ctx context.Context, id string) (*domain.QuotationOffer, error)
	// GetByIDForUpdate loads the offer under an exclusive lock. Must be called
	// inside a TxManager unit of work.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.QuotationOffer, error)
	UpdateStatus(ctx context.Context, id string, status domain.OfferStatus) error
	// RejectSubmittedSiblings rejects every SUBMITTED offer on the quotation
	// except the given one and returns the losing artist ids.
	RejectSubmittedSiblings(ctx context.Context, quotationID, exceptOfferID string) ([]string, error)
	ListByQuotation(ctx context.Context, quotationID string) ([]domain.QuotationOffer, error)
	AddMessage(ctx context.Context, msg *domain.OfferMessage) error
	ListMessages(ctx context.Context, offerID string) ([]domain.OfferMessage, error)
}

type offerRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository builds repository.
func NewOfferRepository(pool *pgxpool.Pool) OfferRepository {
	return &offerRepository{pool: pool}
}

const pgUniqueViolation = "23505"

const offerColumns = `
        id, quotation_id, artist_id, cost_amount, cost_currency, cost_scale,
        estimated_duration, message, status, created_at, updated_at`

func (r *offerRepository) Create(ctx context.Context, offer *domain.QuotationOffer) error {
	const query = `
        INSERT INTO quotation_offers (quotation_id, artist_id, cost_amount, cost_currency, cost_scale,
            estimated_duration, message, status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	err := querierFrom(ctx, r.pool).QueryRow(ctx, query,
		offer.QuotationID,
		offer.ArtistID,
		offer.EstimatedCost.Amount,
		offer.EstimatedCost.Currency,
		offer.EstimatedCost.Scale,
		offer.EstimatedDuration,
		offer.Message,
		offer.Status,
	).Scan(&offer.ID, &offer.CreatedAt, &offer.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return util.NewConflict("artist already has an offer on this quotation", map[string]any{
				"quotation_id": offer.QuotationID,
				"artist_id":    offer.ArtistID,
			})
		}
		return util.MapError(err)
	}
	return nil
}

func (r *offerRepository) GetByID(ctx context.Context, id string) (*domain.QuotationOffer, error) {
	return r.fetchSingle(ctx, `SELECT `+offerColumns+` FROM quotation_offers WHERE id=$1`, id)
}

func (r *offerRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.QuotationOffer, error) {
	return r.fetchSingle(ctx, `SELECT `+offerColumns+` FROM quotation_offers WHERE id=$1 FOR UPDATE`, id)
}

func (r *offerRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.QuotationOffer, error) {
	var offer domain.QuotationOffer
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&offer.ID,
		&offer.QuotationID,
		&offer.ArtistID,
		&offer.EstimatedCost.Amount,
		&offer.EstimatedCost.Currency,
		&offer.EstimatedCost.Scale,
		&offer.EstimatedDuration,
		&offer.Message,
		&offer.Status,
		&offer.CreatedAt,
		&offer.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("offer", map[string]any{"id": arg})
		}
		return nil, util.MapError(err)
	}
	return &offer, nil
}

func (r *offerRepository) UpdateStatus(ctx context.Context, id string, status domain.OfferStatus) error {
	const query = `UPDATE quotation_offers SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query, status, id)
	if err != nil {
		return util.MapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("offer", map[string]any{"id": id})
	}
	return nil
}

func (r *offerRepository) RejectSubmittedSiblings(ctx context.Context, quotationID, exceptOfferID string) ([]string, error) {
	const query = `
        UPDATE quotation_offers SET status=$1, updated_at=NOW()
        WHERE quotation_id=$2 AND id<>$3 AND status=$4
        RETURNING artist_id`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query,
		domain.OfferStatusRejected, quotationID, exceptOfferID, domain.OfferStatusSubmitted)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var artistIDs []string
	for rows.Next() {
		var artistID string
		if err := rows.Scan(&artistID); err != nil {
			return nil, err
		}
		artistIDs = append(artistIDs, artistID)
	}
	return artistIDs, rows.Err()
}

func (r *offerRepository) ListByQuotation(ctx context.Context, quotationID string) ([]domain.QuotationOffer, error) {
	const query = `SELECT ` + offerColumns + `
        FROM quotation_offers WHERE quotation_id=$1 ORDER BY created_at ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, quotationID)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.QuotationOffer
	for rows.Next() {
		var offer domain.QuotationOffer
		if err := rows.Scan(
			&offer.ID,
			&offer.QuotationID,
			&offer.ArtistID,
			&offer.EstimatedCost.Amount,
			&offer.EstimatedCost.Currency,
			&offer.EstimatedCost.Scale,
			&offer.EstimatedDuration,
			&offer.Message,
			&offer.Status,
			&offer.CreatedAt,
			&offer.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, offer)
	}
	return result, rows.Err()
}

func (r *offerRepository) AddMessage(ctx context.Context, msg *domain.OfferMessage) error {
	const query = `
        INSERT INTO quotation_offer_messages (offer_id, sender_id, sender_type, body, image_url)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		msg.OfferID,
		msg.SenderID,
		msg.SenderType,
		msg.Body,
		msg.ImageURL,
	).Scan(&msg.ID, &msg.CreatedAt)
}

func (r *offerRepository) ListMessages(ctx context.Context, offerID string) ([]domain.OfferMessage, error) {
	const query = `
        SELECT id, offer_id, sender_id, sender_type, body, image_url, created_at
        FROM quotation_offer_messages WHERE offer_id=$1 ORDER BY created_at ASC`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, offerID)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.OfferMessage
	for rows.Next() {
		var msg domain.OfferMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.OfferID,
			&msg.SenderID,
			&msg.SenderType,
			&msg.Body,
			&msg.ImageURL,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
