package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/quotation-service/internal/domain"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// QuotationRepository encapsulates quotation persistence.
type QuotationRepository interface {
	Create(ctx context.Context, quotation *domain.Quotation) error
	GetByID(ctx context.Context, id string) (*domain.Quotation, error)
	// GetByIDForUpdate loads the row under an exclusive lock. Must be called
	// inside a TxManager unit of work.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Quotation, error)
	Update(ctx context.Context, quotation *domain.Quotation) error
	ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Quotation, error)
}

type quotationRepository struct {
	pool *pgxpool.Pool
}

// NewQuotationRepository instantiates repository.
func NewQuotationRepository(pool *pgxpool.Pool) QuotationRepository {
	return &quotationRepository{pool: pool}
}

const quotationColumns = `
        id, type, status, customer_id, artist_id, description,
        cost_amount, cost_currency, cost_scale,
        appointment_date, appointment_duration,
        customer_reject_reason, artist_reject_reason,
        customer_cancel_reason, system_cancel_reason, appeal_reason,
        customer_unread, artist_unread, customer_read_at, artist_read_at,
        last_updated_by, last_updated_by_type, created_at, updated_at`

func (r *quotationRepository) Create(ctx context.Context, q *domain.Quotation) error {
	const query = `
        INSERT INTO quotations (type, status, customer_id, artist_id, description,
            cost_amount, cost_currency, cost_scale,
            appointment_date, appointment_duration,
            customer_unread, artist_unread,
            last_updated_by, last_updated_by_type)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		q.Type,
		q.Status,
		q.CustomerID,
		q.ArtistID,
		q.Description,
		q.EstimatedCost.Amount,
		q.EstimatedCost.Currency,
		q.EstimatedCost.Scale,
		q.AppointmentDate,
		q.AppointmentDuration,
		q.CustomerUnread,
		q.ArtistUnread,
		q.LastUpdatedBy,
		q.LastUpdatedByType,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (r *quotationRepository) GetByID(ctx context.Context, id string) (*domain.Quotation, error) {
	return r.fetchSingle(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id=$1`, id)
}

func (r *quotationRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Quotation, error) {
	return r.fetchSingle(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id=$1 FOR UPDATE`, id)
}

func (r *quotationRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Quotation, error) {
	var q domain.Quotation
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, arg).Scan(
		&q.ID,
		&q.Type,
		&q.Status,
		&q.CustomerID,
		&q.ArtistID,
		&q.Description,
		&q.EstimatedCost.Amount,
		&q.EstimatedCost.Currency,
		&q.EstimatedCost.Scale,
		&q.AppointmentDate,
		&q.AppointmentDuration,
		&q.CustomerRejectReason,
		&q.ArtistRejectReason,
		&q.CustomerCancelReason,
		&q.SystemCancelReason,
		&q.AppealReason,
		&q.CustomerUnread,
		&q.ArtistUnread,
		&q.CustomerReadAt,
		&q.ArtistReadAt,
		&q.LastUpdatedBy,
		&q.LastUpdatedByType,
		&q.CreatedAt,
		&q.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("quotation", map[string]any{"id": arg})
		}
		return nil, util.MapError(err)
	}
	return &q, nil
}

func (r *quotationRepository) Update(ctx context.Context, q *domain.Quotation) error {
	const query = `
        UPDATE quotations SET status=$1, artist_id=$2,
            cost_amount=$3, cost_currency=$4, cost_scale=$5,
            appointment_date=$6, appointment_duration=$7,
            customer_reject_reason=$8, artist_reject_reason=$9,
            customer_cancel_reason=$10, system_cancel_reason=$11, appeal_reason=$12,
            customer_unread=$13, artist_unread=$14,
            customer_read_at=$15, artist_read_at=$16,
            last_updated_by=$17, last_updated_by_type=$18, updated_at=NOW()
        WHERE id=$19`
	cmd, err := querierFrom(ctx, r.pool).Exec(ctx, query,
		q.Status,
		q.ArtistID,
		q.EstimatedCost.Amount,
		q.EstimatedCost.Currency,
		q.EstimatedCost.Scale,
		q.AppointmentDate,
		q.AppointmentDuration,
		q.CustomerRejectReason,
		q.ArtistRejectReason,
		q.CustomerCancelReason,
		q.SystemCancelReason,
		q.AppealReason,
		q.CustomerUnread,
		q.ArtistUnread,
		q.CustomerReadAt,
		q.ArtistReadAt,
		q.LastUpdatedBy,
		q.LastUpdatedByType,
		q.ID,
	)
	if err != nil {
		return util.MapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return util.NewNotFound("quotation", map[string]any{"id": q.ID})
	}
	return nil
}

func (r *quotationRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Quotation, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT ` + quotationColumns + `
        FROM quotations WHERE customer_id=$1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, customerID, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.Quotation
	for rows.Next() {
		var q domain.Quotation
		if err := rows.Scan(
			&q.ID,
			&q.Type,
			&q.Status,
			&q.CustomerID,
			&q.ArtistID,
			&q.Description,
			&q.EstimatedCost.Amount,
			&q.EstimatedCost.Currency,
			&q.EstimatedCost.Scale,
			&q.AppointmentDate,
			&q.AppointmentDuration,
			&q.CustomerRejectReason,
			&q.ArtistRejectReason,
			&q.CustomerCancelReason,
			&q.SystemCancelReason,
			&q.AppealReason,
			&q.CustomerUnread,
			&q.ArtistUnread,
			&q.CustomerReadAt,
			&q.ArtistReadAt,
			&q.LastUpdatedBy,
			&q.LastUpdatedByType,
			&q.CreatedAt,
			&q.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}
