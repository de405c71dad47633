package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/quotation-service/internal/domain"
	util "github.com/spec-kit/quotation-service/pkg/util"
)

// CustomerRepository is a lock-free read-side lookup used for notification
// enrichment and view assembly.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
}

// ArtistRepository is the artist counterpart.
type ArtistRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Artist, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Artist, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository builds repository.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	const query = `SELECT id, display_name, email, created_at FROM customers WHERE id=$1`
	var c domain.Customer
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&c.ID, &c.DisplayName, &c.Email, &c.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("customer", map[string]any{"id": id})
		}
		return nil, util.MapError(err)
	}
	return &c, nil
}

type artistRepository struct {
	pool *pgxpool.Pool
}

// NewArtistRepository builds repository.
func NewArtistRepository(pool *pgxpool.Pool) ArtistRepository {
	return &artistRepository{pool: pool}
}

func (r *artistRepository) GetByID(ctx context.Context, id string) (*domain.Artist, error) {
	const query = `SELECT id, display_name, email, studio_name, created_at FROM artists WHERE id=$1`
	var a domain.Artist
	if err := querierFrom(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&a.ID, &a.DisplayName, &a.Email, &a.StudioName, &a.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, util.NewNotFound("artist", map[string]any{"id": id})
		}
		return nil, util.MapError(err)
	}
	return &a, nil
}

func (r *artistRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT id, display_name, email, studio_name, created_at FROM artists WHERE id = ANY($1)`
	rows, err := querierFrom(ctx, r.pool).Query(ctx, query, ids)
	if err != nil {
		return nil, util.MapError(err)
	}
	defer rows.Close()

	var result []domain.Artist
	for rows.Next() {
		var a domain.Artist
		if err := rows.Scan(&a.ID, &a.DisplayName, &a.Email, &a.StudioName, &a.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}
