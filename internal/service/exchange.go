package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skillexchange/exchange-service/internal/domain"
	"github.com/skillexchange/exchange-service/internal/event"
	"github.com/skillexchange/exchange-service/internal/repository"
	apperrors "github.com/skillexchange/exchange-service/pkg/errors"
)

// ExchangeService implements the business logic for the exchange lifecycle.
type ExchangeService struct {
	exchanges repository.ExchangeRepository
	listings  repository.ListingRepository
	ratings   repository.RatingRepository
	producer  *event.Producer
	logger    *slog.Logger
}

// NewExchangeService creates a new exchange service.
func NewExchangeService(
	exchanges repository.ExchangeRepository,
	listings repository.ListingRepository,
	ratings repository.RatingRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ExchangeService {
	return &ExchangeService{
		exchanges: exchanges,
		listings:  listings,
		ratings:   ratings,
		producer:  producer,
		logger:    logger,
	}
}

// CreateExchangeInput holds the parameters for requesting an exchange.
type CreateExchangeInput struct {
	RequesterID string
	ListingID   string
}

// CreateExchange creates a pending exchange request against a listing.
// Preconditions are checked in a fixed order: the listing must exist, must
// not belong to the requester, must be available, and the requester must not
// already have an active request for it. The repository re-checks the last
// two inside the insert transaction, so a concurrent accept or duplicate
// request cannot slip between check and write.
func (s *ExchangeService) CreateExchange(ctx context.Context, input CreateExchangeInput) (*domain.Exchange, error) {
	if input.RequesterID == "" {
		return nil, apperrors.InvalidInput("requester_id is required")
	}
	if input.ListingID == "" {
		return nil, apperrors.InvalidInput("listing_id is required")
	}

	listing, err := s.listings.GetByID(ctx, input.ListingID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("listing", input.ListingID)
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}

	if listing.OwnerID == input.RequesterID {
		return nil, apperrors.Forbidden("cannot request an exchange for your own listing")
	}

	if !listing.IsAvailable() {
		return nil, apperrors.InvalidState("listing is not available")
	}

	now := time.Now().UTC()
	exchange := &domain.Exchange{
		ID:           uuid.New().String(),
		RequesterID:  input.RequesterID,
		ListingID:    listing.ID,
		Status:       domain.ExchangeStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		ProviderID:   listing.OwnerID,
		ListingTitle: listing.Title,
	}

	if err := s.exchanges.Create(ctx, exchange); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			return nil, apperrors.NotFound("listing", input.ListingID)
		case errors.Is(err, apperrors.ErrInvalidState):
			return nil, apperrors.InvalidState("listing is not available")
		case errors.Is(err, apperrors.ErrConflict):
			return nil, apperrors.Conflict("an active exchange request for this listing already exists")
		}
		return nil, fmt.Errorf("create exchange: %w", err)
	}

	if err := s.producer.PublishExchangeRequested(ctx, exchange); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish exchange.requested event",
			slog.String("exchange_id", exchange.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "exchange requested",
		slog.String("exchange_id", exchange.ID),
		slog.String("requester_id", exchange.RequesterID),
		slog.String("listing_id", exchange.ListingID),
	)

	return exchange, nil
}

// RespondToExchangeInput holds the parameters for a provider's decision on a
// pending exchange.
type RespondToExchangeInput struct {
	ExchangeID string
	UserID     string
	Decision   string
}

// RespondToExchange accepts or rejects a pending exchange. Only the listing
// owner may respond. Accepting also marks the listing exchanged; the two
// writes happen in one transaction so neither survives without the other.
func (s *ExchangeService) RespondToExchange(ctx context.Context, input RespondToExchangeInput) (*domain.Exchange, error) {
	if !domain.IsValidDecision(input.Decision) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid decision %q, must be one of: %s",
			input.Decision, strings.Join(domain.ValidDecisions(), ", ")))
	}

	exchange, err := s.exchanges.GetByID(ctx, input.ExchangeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("exchange", input.ExchangeID)
		}
		return nil, fmt.Errorf("get exchange: %w", err)
	}

	if input.UserID != exchange.ProviderID {
		return nil, apperrors.Forbidden("only the listing owner can respond to an exchange request")
	}

	if !exchange.CanTransitionTo(input.Decision) {
		return nil, apperrors.InvalidState(fmt.Sprintf("exchange is %s, only pending requests can be responded to", exchange.Status))
	}

	if input.Decision == domain.ExchangeStatusAccepted {
		err = s.exchanges.Accept(ctx, exchange.ID, exchange.ListingID)
	} else {
		err = s.exchanges.UpdateStatus(ctx, exchange.ID, domain.ExchangeStatusPending, domain.ExchangeStatusRejected)
	}
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidState) {
			return nil, apperrors.InvalidState("exchange was decided concurrently")
		}
		return nil, fmt.Errorf("respond to exchange: %w", err)
	}

	exchange.Status = input.Decision
	exchange.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishExchangeDecided(ctx, exchange, input.Decision); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish exchange decision event",
			slog.String("exchange_id", exchange.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "exchange decided",
		slog.String("exchange_id", exchange.ID),
		slog.String("provider_id", input.UserID),
		slog.String("decision", input.Decision),
	)

	return exchange, nil
}

// CompleteExchange marks an accepted exchange as completed. Either party may
// complete it.
func (s *ExchangeService) CompleteExchange(ctx context.Context, exchangeID, userID string) (*domain.Exchange, error) {
	exchange, err := s.exchanges.GetByID(ctx, exchangeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("exchange", exchangeID)
		}
		return nil, fmt.Errorf("get exchange: %w", err)
	}

	if !exchange.IsParty(userID) {
		return nil, apperrors.Forbidden("only a party to the exchange can complete it")
	}

	if !exchange.CanTransitionTo(domain.ExchangeStatusCompleted) {
		return nil, apperrors.InvalidState(fmt.Sprintf("exchange is %s, only accepted exchanges can be completed", exchange.Status))
	}

	if err := s.exchanges.UpdateStatus(ctx, exchangeID, domain.ExchangeStatusAccepted, domain.ExchangeStatusCompleted); err != nil {
		if errors.Is(err, apperrors.ErrInvalidState) {
			return nil, apperrors.InvalidState("exchange was completed concurrently")
		}
		return nil, fmt.Errorf("complete exchange: %w", err)
	}

	exchange.Status = domain.ExchangeStatusCompleted
	exchange.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishExchangeCompleted(ctx, exchange); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish exchange.completed event",
			slog.String("exchange_id", exchange.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "exchange completed",
		slog.String("exchange_id", exchange.ID),
		slog.String("user_id", userID),
	)

	return exchange, nil
}

// SubmitRatingInput holds the parameters for rating a completed exchange.
type SubmitRatingInput struct {
	ExchangeID string
	RaterID    string
	Score      int
	Comment    string
}

// SubmitRating records a score the rater gives the other party of a
// completed exchange. Each party can rate an exchange at most once.
func (s *ExchangeService) SubmitRating(ctx context.Context, input SubmitRatingInput) (*domain.Rating, error) {
	if !domain.IsValidScore(input.Score) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("score must be between %d and %d",
			domain.RatingScoreMin, domain.RatingScoreMax))
	}

	exchange, err := s.exchanges.GetByID(ctx, input.ExchangeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("exchange", input.ExchangeID)
		}
		return nil, fmt.Errorf("get exchange: %w", err)
	}

	if !exchange.IsParty(input.RaterID) {
		return nil, apperrors.Forbidden("only a party to the exchange can rate it")
	}

	if exchange.Status != domain.ExchangeStatusCompleted {
		return nil, apperrors.InvalidState(fmt.Sprintf("exchange is %s, only completed exchanges can be rated", exchange.Status))
	}

	rating := &domain.Rating{
		ID:          uuid.New().String(),
		ExchangeID:  exchange.ID,
		RaterID:     input.RaterID,
		RatedUserID: exchange.CounterpartOf(input.RaterID),
		Score:       input.Score,
		Comment:     input.Comment,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.ratings.Create(ctx, rating); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Conflict("you have already rated this exchange")
		}
		return nil, fmt.Errorf("create rating: %w", err)
	}

	if err := s.producer.PublishExchangeRated(ctx, rating); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish exchange.rated event",
			slog.String("exchange_id", rating.ExchangeID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "exchange rated",
		slog.String("exchange_id", rating.ExchangeID),
		slog.String("rater_id", rating.RaterID),
		slog.Int("score", rating.Score),
	)

	return rating, nil
}

// ListMyExchanges returns a filtered, paginated list of exchanges where the
// user is either the requester or the provider. CounterpartID is populated
// on each exchange relative to the requesting user.
func (s *ExchangeService) ListMyExchanges(ctx context.Context, filter repository.ExchangeFilter) ([]domain.Exchange, int, error) {
	if filter.UserID == "" {
		return nil, 0, apperrors.InvalidInput("user_id is required")
	}

	switch filter.Direction {
	case "", repository.DirectionAll:
		filter.Direction = repository.DirectionAll
	case repository.DirectionIncoming, repository.DirectionOutgoing:
	default:
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid direction %q, must be one of: all, incoming, outgoing", filter.Direction))
	}

	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s",
			*filter.Status, strings.Join(domain.ValidStatuses(), ", ")))
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	exchanges, total, err := s.exchanges.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list exchanges: %w", err)
	}

	for i := range exchanges {
		exchanges[i].CounterpartID = exchanges[i].CounterpartOf(filter.UserID)
	}

	return exchanges, total, nil
}

// RatingSummary returns aggregate rating statistics for a user.
func (s *ExchangeService) RatingSummary(ctx context.Context, userID string) (*domain.RatingSummary, error) {
	if userID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}

	summary, err := s.ratings.SummaryForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("rating summary: %w", err)
	}

	return summary, nil
}
