package repository

import (
	"context"

	"github.com/skillexchange/exchange-service/internal/domain"
)

// Exchange list directions relative to the requesting user.
const (
	DirectionAll      = "all"
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// ExchangeFilter defines filter criteria for listing a user's exchanges.
type ExchangeFilter struct {
	UserID    string
	Direction string
	Status    *string
	Page      int
	PerPage   int
}

// ExchangeRepository defines the interface for exchange persistence.
//
// Every mutating method executes as a single atomic unit with optimistic
// status guards: the current status is re-checked inside the same
// transaction that performs the write, and a failed guard surfaces as
// ErrInvalidState (or ErrConflict for the duplicate-request guard) rather
// than a silent overwrite.
type ExchangeRepository interface {
	// Create inserts a new pending exchange. Inside one transaction it
	// re-checks that the listing is still available and that no pending or
	// accepted exchange exists for the same (requester, listing) pair.
	Create(ctx context.Context, exchange *domain.Exchange) error

	// GetByID retrieves an exchange joined with its listing, populating
	// ProviderID and ListingTitle.
	GetByID(ctx context.Context, id string) (*domain.Exchange, error)

	// List returns exchanges where the user is a party, filtered by
	// direction and status, newest first, with the total count.
	List(ctx context.Context, filter ExchangeFilter) ([]domain.Exchange, int, error)

	// UpdateStatus transitions the exchange from the expected prior status
	// to the new status.
	UpdateStatus(ctx context.Context, id, from, to string) error

	// Accept atomically sets the exchange to accepted and its listing to
	// exchanged. Neither write survives without the other.
	Accept(ctx context.Context, exchangeID, listingID string) error
}

// ListingFilter defines filter criteria for browsing listings.
type ListingFilter struct {
	OwnerID       *string
	OnlyAvailable bool
	Page          int
	PerPage       int
}

// ListingRepository defines the interface for listing catalog persistence.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]domain.Listing, int, error)
}

// RatingRepository defines the interface for the rating ledger.
type RatingRepository interface {
	// Create appends a rating. A second rating for the same
	// (exchange, rater) pair fails with ErrConflict.
	Create(ctx context.Context, rating *domain.Rating) error

	// SummaryForUser returns aggregate statistics over the ratings a user
	// has received.
	SummaryForUser(ctx context.Context, userID string) (*domain.RatingSummary, error)
}
