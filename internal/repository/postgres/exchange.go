package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/skillexchange/exchange-service/internal/domain"
	"github.com/skillexchange/exchange-service/internal/repository"
	"github.com/skillexchange/exchange-service/pkg/database"
	apperrors "github.com/skillexchange/exchange-service/pkg/errors"
)

// ExchangeRepository implements repository.ExchangeRepository using PostgreSQL.
type ExchangeRepository struct {
	pool database.DBTX
}

// NewExchangeRepository creates a new PostgreSQL-backed exchange repository.
func NewExchangeRepository(pool database.DBTX) *ExchangeRepository {
	return &ExchangeRepository{pool: pool}
}

// Create inserts a new pending exchange. The listing row is locked for the
// duration of the transaction so the availability check and the
// duplicate-request check cannot race with a concurrent accept or create.
func (r *ExchangeRepository) Create(ctx context.Context, e *domain.Exchange) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateExchange", "INSERT INTO exchanges")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var listingStatus string
	err = tx.QueryRow(ctx,
		`SELECT status FROM listings WHERE id = $1 FOR UPDATE`,
		e.ListingID,
	).Scan(&listingStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("lock listing: %w", err)
	}

	if listingStatus != domain.ListingStatusAvailable {
		return apperrors.ErrInvalidState
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM exchanges
			WHERE requester_id = $1 AND listing_id = $2 AND status IN ($3, $4)
		)`,
		e.RequesterID, e.ListingID, domain.ExchangeStatusPending, domain.ExchangeStatusAccepted,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check duplicate exchange: %w", err)
	}
	if exists {
		return apperrors.ErrConflict
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO exchanges (id, requester_id, listing_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.RequesterID, e.ListingID, e.Status, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an exchange joined with its listing, populating the
// denormalized ProviderID and ListingTitle fields.
func (r *ExchangeRepository) GetByID(ctx context.Context, id string) (ex *domain.Exchange, err error) {
	ctx, end := database.TraceQuery(ctx, "GetExchange", "SELECT FROM exchanges JOIN listings")
	defer func() { end(err) }()

	query := `
		SELECT e.id, e.requester_id, e.listing_id, e.status, e.created_at, e.updated_at,
		       l.owner_id, l.title
		FROM exchanges e
		JOIN listings l ON l.id = e.listing_id
		WHERE e.id = $1`

	var e domain.Exchange
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.RequesterID,
		&e.ListingID,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.ProviderID,
		&e.ListingTitle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan exchange: %w", err)
	}

	return &e, nil
}

// List returns exchanges where the user is a party, newest first, with the
// total count computed in the same query.
func (r *ExchangeRepository) List(ctx context.Context, filter repository.ExchangeFilter) (exchanges []domain.Exchange, total int, err error) {
	ctx, end := database.TraceQuery(ctx, "ListExchanges", "SELECT FROM exchanges JOIN listings")
	defer func() { end(err) }()

	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	switch filter.Direction {
	case repository.DirectionIncoming:
		conditions = append(conditions, fmt.Sprintf("l.owner_id = $%d", argIndex))
	case repository.DirectionOutgoing:
		conditions = append(conditions, fmt.Sprintf("e.requester_id = $%d", argIndex))
	default:
		conditions = append(conditions, fmt.Sprintf("(e.requester_id = $%d OR l.owner_id = $%d)", argIndex, argIndex))
	}
	args = append(args, filter.UserID)
	argIndex++

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT e.id, e.requester_id, e.listing_id, e.status, e.created_at, e.updated_at,
		       l.owner_id, l.title,
		       count(*) OVER() AS total_count
		FROM exchanges e
		JOIN listings l ON l.id = e.listing_id
		WHERE %s
		ORDER BY e.created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1,
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
		return nil, 0, fmt.Errorf("list exchanges: %w", err)
	}
	defer rows.Close()

	exchanges = make([]domain.Exchange, 0)
	for rows.Next() {
		var e domain.Exchange
		if err = rows.Scan(
			&e.ID,
			&e.RequesterID,
			&e.ListingID,
			&e.Status,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.ProviderID,
			&e.ListingTitle,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan exchange row: %w", err)
		}
		exchanges = append(exchanges, e)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate exchange rows: %w", err)
	}

	return exchanges, total, nil
}

// UpdateStatus transitions the exchange from the expected prior status to
// the new status. A zero-row update means the status moved underneath the
// caller and surfaces as ErrInvalidState.
func (r *ExchangeRepository) UpdateStatus(ctx context.Context, id, from, to string) (err error) {
	ctx, end := database.TraceQuery(ctx, "UpdateExchangeStatus", "UPDATE exchanges SET status")
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx,
		`UPDATE exchanges SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now().UTC(), id, from,
	)
	if err != nil {
		return fmt.Errorf("update exchange status: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.ErrInvalidState
	}

	return nil
}

// Accept sets the exchange to accepted and its listing to exchanged in one
// transaction. Both guarded updates must affect exactly one row; otherwise
// the whole transaction rolls back and the caller sees ErrInvalidState.
func (r *ExchangeRepository) Accept(ctx context.Context, exchangeID, listingID string) (err error) {
	ctx, end := database.TraceQuery(ctx, "AcceptExchange", "UPDATE exchanges; UPDATE listings")
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	ct, err := tx.Exec(ctx,
		`UPDATE exchanges SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		domain.ExchangeStatusAccepted, now, exchangeID, domain.ExchangeStatusPending,
	)
	if err != nil {
		return fmt.Errorf("update exchange status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrInvalidState
	}

	ct, err = tx.Exec(ctx,
		`UPDATE listings SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		domain.ListingStatusExchanged, now, listingID, domain.ListingStatusAvailable,
	)
	if err != nil {
		return fmt.Errorf("update listing status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.ErrInvalidState
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
