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

// ListingService implements the business logic for the listing catalog.
type ListingService struct {
	listings repository.ListingRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewListingService creates a new listing service.
func NewListingService(listings repository.ListingRepository, producer *event.Producer, logger *slog.Logger) *ListingService {
	return &ListingService{
		listings: listings,
		producer: producer,
		logger:   logger,
	}
}

// CreateListingInput holds the parameters for creating a listing.
type CreateListingInput struct {
	OwnerID     string
	Title       string
	Description string
	Category    string
}

// CreateListing creates a new available listing.
func (s *ListingService) CreateListing(ctx context.Context, input CreateListingInput) (*domain.Listing, error) {
	if input.OwnerID == "" {
		return nil, apperrors.InvalidInput("owner_id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.InvalidInput("title is required")
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		ID:          uuid.New().String(),
		OwnerID:     input.OwnerID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Category:    input.Category,
		Status:      domain.ListingStatusAvailable,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}

	if err := s.producer.PublishListingCreated(ctx, listing); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish listing.created event",
			slog.String("listing_id", listing.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "listing created",
		slog.String("listing_id", listing.ID),
		slog.String("owner_id", listing.OwnerID),
	)

	return listing, nil
}

// GetListing retrieves a listing by its ID.
func (s *ListingService) GetListing(ctx context.Context, id string) (*domain.Listing, error) {
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("listing", id)
		}
		return nil, fmt.Errorf("get listing by id: %w", err)
	}
	return listing, nil
}

// BrowseListings returns a paginated list of available listings.
func (s *ListingService) BrowseListings(ctx context.Context, page, perPage int) ([]domain.Listing, int, error) {
	filter := repository.ListingFilter{
		OnlyAvailable: true,
		Page:          page,
		PerPage:       perPage,
	}
	return s.list(ctx, filter)
}

// MyListings returns a paginated list of the user's own listings, regardless
// of status.
func (s *ListingService) MyListings(ctx context.Context, ownerID string, page, perPage int) ([]domain.Listing, int, error) {
	if ownerID == "" {
		return nil, 0, apperrors.InvalidInput("owner_id is required")
	}

	filter := repository.ListingFilter{
		OwnerID: &ownerID,
		Page:    page,
		PerPage: perPage,
	}
	return s.list(ctx, filter)
}

func (s *ListingService) list(ctx context.Context, filter repository.ListingFilter) ([]domain.Listing, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	listings, total, err := s.listings.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}

	return listings, total, nil
}
