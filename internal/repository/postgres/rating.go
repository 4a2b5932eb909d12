package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/skillexchange/exchange-service/internal/domain"
	"github.com/skillexchange/exchange-service/pkg/database"
	apperrors "github.com/skillexchange/exchange-service/pkg/errors"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint violations.
const pgUniqueViolation = "23505"

// RatingRepository implements repository.RatingRepository using PostgreSQL.
type RatingRepository struct {
	pool database.DBTX
}

// NewRatingRepository creates a new PostgreSQL-backed rating repository.
func NewRatingRepository(pool database.DBTX) *RatingRepository {
	return &RatingRepository{pool: pool}
}

// Create appends a rating. The unique constraint on (exchange_id, rater_id)
// enforces one rating per rater per exchange; a violation maps to ErrConflict.
func (r *RatingRepository) Create(ctx context.Context, rating *domain.Rating) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateRating", "INSERT INTO ratings")
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx,
		`INSERT INTO ratings (id, exchange_id, rater_id, rated_user_id, score, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rating.ID, rating.ExchangeID, rating.RaterID, rating.RatedUserID,
		rating.Score, rating.Comment, rating.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("insert rating: %w", err)
	}

	return nil
}

// SummaryForUser returns aggregate statistics over the ratings a user has
// received. A user with no ratings gets a zero-valued summary.
func (r *RatingRepository) SummaryForUser(ctx context.Context, userID string) (summary *domain.RatingSummary, err error) {
	ctx, end := database.TraceQuery(ctx, "RatingSummary", "SELECT AVG(score) FROM ratings")
	defer func() { end(err) }()

	s := domain.RatingSummary{UserID: userID}
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(score), 0), COUNT(*)
		 FROM ratings WHERE rated_user_id = $1`,
		userID,
	).Scan(&s.AverageScore, &s.TotalCount)
	if err != nil {
		return nil, fmt.Errorf("scan rating summary: %w", err)
	}

	return &s, nil
}
