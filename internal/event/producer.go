package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skillexchange/exchange-service/internal/domain"
	pkgkafka "github.com/skillexchange/exchange-service/pkg/kafka"
)

// Kafka topic constants for exchange domain events.
const (
	TopicExchangeRequested = "skillexchange.exchange.requested"
	TopicExchangeAccepted  = "skillexchange.exchange.accepted"
	TopicExchangeRejected  = "skillexchange.exchange.rejected"
	TopicExchangeCompleted = "skillexchange.exchange.completed"
	TopicExchangeRated     = "skillexchange.exchange.rated"
	TopicListingCreated    = "skillexchange.listing.created"
)

// Aggregate type constants.
const (
	AggregateTypeExchange = "exchange"
	AggregateTypeListing  = "listing"
)

// Source identifier for events originating from the exchange service.
const SourceExchangeService = "exchange-service"

// ExchangeRequestedData is the payload for an exchange.requested event.
type ExchangeRequestedData struct {
	ExchangeID   string `json:"exchange_id"`
	RequesterID  string `json:"requester_id"`
	ProviderID   string `json:"provider_id"`
	ListingID    string `json:"listing_id"`
	ListingTitle string `json:"listing_title"`
}

// ExchangeDecidedData is the payload for accepted and rejected events.
type ExchangeDecidedData struct {
	ExchangeID  string `json:"exchange_id"`
	RequesterID string `json:"requester_id"`
	ProviderID  string `json:"provider_id"`
	ListingID   string `json:"listing_id"`
	Decision    string `json:"decision"`
}

// ExchangeCompletedData is the payload for an exchange.completed event.
type ExchangeCompletedData struct {
	ExchangeID  string `json:"exchange_id"`
	RequesterID string `json:"requester_id"`
	ProviderID  string `json:"provider_id"`
	ListingID   string `json:"listing_id"`
}

// ExchangeRatedData is the payload for an exchange.rated event.
type ExchangeRatedData struct {
	ExchangeID  string `json:"exchange_id"`
	RaterID     string `json:"rater_id"`
	RatedUserID string `json:"rated_user_id"`
	Score       int    `json:"score"`
}

// ListingCreatedData is the payload for a listing.created event.
type ListingCreatedData struct {
	ListingID string `json:"listing_id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	Category  string `json:"category,omitempty"`
}

// Producer publishes exchange domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the exchange service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishExchangeRequested publishes an exchange.requested event.
func (p *Producer) PublishExchangeRequested(ctx context.Context, e *domain.Exchange) error {
	data := ExchangeRequestedData{
		ExchangeID:   e.ID,
		RequesterID:  e.RequesterID,
		ProviderID:   e.ProviderID,
		ListingID:    e.ListingID,
		ListingTitle: e.ListingTitle,
	}

	event, err := pkgkafka.NewEvent(TopicExchangeRequested, e.ID, AggregateTypeExchange, SourceExchangeService, data)
	if err != nil {
		return fmt.Errorf("create exchange.requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicExchangeRequested, event); err != nil {
		return fmt.Errorf("publish exchange.requested event: %w", err)
	}

	p.logger.DebugContext(ctx, "published exchange.requested event",
		slog.String("exchange_id", e.ID),
		slog.String("listing_id", e.ListingID),
	)

	return nil
}

// PublishExchangeDecided publishes an exchange.accepted or exchange.rejected
// event depending on the provider's decision.
func (p *Producer) PublishExchangeDecided(ctx context.Context, e *domain.Exchange, decision string) error {
	topic := TopicExchangeRejected
	if decision == domain.ExchangeStatusAccepted {
		topic = TopicExchangeAccepted
	}

	data := ExchangeDecidedData{
		ExchangeID:  e.ID,
		RequesterID: e.RequesterID,
		ProviderID:  e.ProviderID,
		ListingID:   e.ListingID,
		Decision:    decision,
	}

	event, err := pkgkafka.NewEvent(topic, e.ID, AggregateTypeExchange, SourceExchangeService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published exchange decision event",
		slog.String("exchange_id", e.ID),
		slog.String("decision", decision),
	)

	return nil
}

// PublishExchangeCompleted publishes an exchange.completed event.
func (p *Producer) PublishExchangeCompleted(ctx context.Context, e *domain.Exchange) error {
	data := ExchangeCompletedData{
		ExchangeID:  e.ID,
		RequesterID: e.RequesterID,
		ProviderID:  e.ProviderID,
		ListingID:   e.ListingID,
	}

	event, err := pkgkafka.NewEvent(TopicExchangeCompleted, e.ID, AggregateTypeExchange, SourceExchangeService, data)
	if err != nil {
		return fmt.Errorf("create exchange.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicExchangeCompleted, event); err != nil {
		return fmt.Errorf("publish exchange.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published exchange.completed event",
		slog.String("exchange_id", e.ID),
	)

	return nil
}

// PublishExchangeRated publishes an exchange.rated event.
func (p *Producer) PublishExchangeRated(ctx context.Context, r *domain.Rating) error {
	data := ExchangeRatedData{
		ExchangeID:  r.ExchangeID,
		RaterID:     r.RaterID,
		RatedUserID: r.RatedUserID,
		Score:       r.Score,
	}

	event, err := pkgkafka.NewEvent(TopicExchangeRated, r.ExchangeID, AggregateTypeExchange, SourceExchangeService, data)
	if err != nil {
		return fmt.Errorf("create exchange.rated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicExchangeRated, event); err != nil {
		return fmt.Errorf("publish exchange.rated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published exchange.rated event",
		slog.String("exchange_id", r.ExchangeID),
		slog.String("rated_user_id", r.RatedUserID),
	)

	return nil
}

// PublishListingCreated publishes a listing.created event.
func (p *Producer) PublishListingCreated(ctx context.Context, l *domain.Listing) error {
	data := ListingCreatedData{
		ListingID: l.ID,
		OwnerID:   l.OwnerID,
		Title:     l.Title,
		Category:  l.Category,
	}

	event, err := pkgkafka.NewEvent(TopicListingCreated, l.ID, AggregateTypeListing, SourceExchangeService, data)
	if err != nil {
		return fmt.Errorf("create listing.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicListingCreated, event); err != nil {
		return fmt.Errorf("publish listing.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published listing.created event",
		slog.String("listing_id", l.ID),
		slog.String("owner_id", l.OwnerID),
	)

	return nil
}
