package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/quotation-service/internal/domain"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// HistoryRepository stores the append-only transition ledger. Entries are
// never updated or deleted.
type HistoryRepository interface {
	Create(ctx context.Context, entry *domain.QuotationHistory) error
	ListByQuotation(ctx context.Context, quotationID string, limit, offset int) ([]domain.QuotationHistory, error)
}

type historyRepository struct {
	pool *pgxpool.Pool
}

// NewHistoryRepository builds repository.
func NewHistoryRepository(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepository{pool: pool}
}

func (r *historyRepository) Create(ctx context.Context, entry *domain.QuotationHistory) error {
	const query = `
        INSERT INTO quotation_history (quotation_id, previous_status, new_status, actor_id, actor_type,
            prev_cost_amount, prev_cost_currency, prev_cost_scale,
            new_cost_amount, new_cost_currency, new_cost_scale,
            prev_appointment_date, new_appointment_date,
            prev_appointment_duration, new_appointment_duration, reason)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at`
	var (
		prevAmount, newAmount     *int64
		prevCurrency, newCurrency *string
		prevScale, newScale       *int32
	)
	if entry.PreviousCost != nil {
		prevAmount, prevCurrency, prevScale = &entry.PreviousCost.Amount, &entry.PreviousCost.Currency, &entry.PreviousCost.Scale
	}
	if entry.NewCost != nil {
		newAmount, newCurrency, newScale = &entry.NewCost.Amount, &entry.NewCost.Currency, &entry.NewCost.Scale
	}
	return querierFrom(ctx, r.pool).QueryRow(ctx, query,
		entry.QuotationID,
		entry.PreviousStatus,
		entry.NewStatus,
		entry.ActorID,
		entry.ActorType,
		prevAmount, prevCurrency, prevScale,
		newAmount, newCurrency, newScale,
		entry.PreviousDate,
		entry.NewDate,
		entry.PreviousDuration,
		entry.NewDuration,
		entry.Reason,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *historyRepository) ListByQuotation(ctx context.Context, quotationID string, limit, offset int) ([]domain.QuotationHistory, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, quotation_id, previous_status, new_status, actor_id, actor_type,
            prev_cost_amount, prev_cost_currency, prev_cost_scale,
            new_cost_amount, new_cost_currency, new_cost_scale,
            prev_appointment_date, new_appointment_date,
            prev_appointment_duration, new_appointment_duration, reason, created_at
        FROM quotation_history WHERE quotation_id=$1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, quotationID, limit, offset)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.QuotationHistory
	for rows.Next() {
		var (
			entry                     domain.QuotationHistory
			prevAmount, newAmount     *int64
			prevCurrency, newCurrency *string
			prevScale, newScale       *int32
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.QuotationID,
			&entry.PreviousStatus,
			&entry.NewStatus,
			&entry.ActorID,
			&entry.ActorType,
			&prevAmount, &prevCurrency, &prevScale,
			&newAmount, &newCurrency, &newScale,
			&entry.PreviousDate,
			&entry.NewDate,
			&entry.PreviousDuration,
			&entry.NewDuration,
			&entry.Reason,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if prevAmount != nil && prevCurrency != nil && prevScale != nil {
			entry.PreviousCost = &domain.Money{Amount: *prevAmount, Currency: *prevCurrency, Scale: *prevScale}
		}
		if newAmount != nil && newCurrency != nil && newScale != nil {
			entry.NewCost = &domain.Money{Amount: *newAmount, Currency: *newCurrency, Scale: *newScale}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
