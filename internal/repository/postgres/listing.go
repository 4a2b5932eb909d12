package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/skillexchange/exchange-service/internal/domain"
	"github.com/skillexchange/exchange-service/internal/repository"
	"github.com/skillexchange/exchange-service/pkg/database"
	apperrors "github.com/skillexchange/exchange-service/pkg/errors"
)

// ListingRepository implements repository.ListingRepository using PostgreSQL.
type ListingRepository struct {
	pool database.DBTX
}

// NewListingRepository creates a new PostgreSQL-backed listing repository.
func NewListingRepository(pool database.DBTX) *ListingRepository {
	return &ListingRepository{pool: pool}
}

// Create inserts a new listing.
func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateListing", "INSERT INTO listings")
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx,
		`INSERT INTO listings (id, owner_id, title, description, category, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.OwnerID, l.Title, l.Description, l.Category, l.Status, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}

	return nil
}

// GetByID retrieves a listing by its ID.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (listing *domain.Listing, err error) {
	ctx, end := database.TraceQuery(ctx, "GetListing", "SELECT FROM listings")
	defer func() { end(err) }()

	var l domain.Listing
	err = r.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, description, category, status, created_at, updated_at
		 FROM listings WHERE id = $1`,
		id,
	).Scan(
		&l.ID,
		&l.OwnerID,
		&l.Title,
		&l.Description,
		&l.Category,
		&l.Status,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan listing: %w", err)
	}

	return &l, nil
}

// List returns listings matching the given filter, newest first, with the
// total count.
func (r *ListingRepository) List(ctx context.Context, filter repository.ListingFilter) (listings []domain.Listing, total int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListListings", "SELECT FROM listings")
	defer func() { end(err) }()

	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.OwnerID != nil {
		conditions = append(conditions, fmt.Sprintf("owner_id = $%d", argIndex))
		args = append(args, *filter.OwnerID)
		argIndex++
	}

	if filter.OnlyAvailable {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, domain.ListingStatusAvailable)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, title, description, category, status, created_at, updated_at,
		       count(*) OVER() AS total_count
		FROM listings
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	listings = make([]domain.Listing, 0)
	for rows.Next() {
		var l domain.Listing
		if err = rows.Scan(
			&l.ID,
			&l.OwnerID,
			&l.Title,
			&l.Description,
			&l.Category,
			&l.Status,
			&l.CreatedAt,
			&l.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan listing row: %w", err)
		}
		listings = append(listings, l)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate listing rows: %w", err)
	}

	return listings, total, nil
}
