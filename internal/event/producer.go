package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/utafrali/mongomart/internal/domain"
	pkgkafka "github.com/utafrali/mongomart/pkg/kafka"
	"github.com/utafrali/mongomart/pkg/logger"
)

// Kafka topic for catalog review events.
const TopicItemReviews = "catalog.item.reviews"

// Event type and aggregate constants.
const (
	EventReviewAdded  = "item.review.added"
	AggregateTypeItem = "item"
)

// SourceCatalogService identifies events originating from this service.
const SourceCatalogService = "catalog-service"

// ReviewAddedData is the payload for an item.review.added event.
type ReviewAddedData struct {
	ItemID  int       `json:"item_id"`
	Name    string    `json:"name"`
	Comment string    `json:"comment"`
	Stars   int       `json:"stars"`
	Date    time.Time `json:"date"`
}

// publisher is the part of pkg/kafka.Producer used here.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog domain events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer for the catalog service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishReviewAdded publishes an item.review.added event keyed by item id.
func (p *Producer) PublishReviewAdded(ctx context.Context, itemID int, review domain.Review) error {
	data := ReviewAddedData{
		ItemID:  itemID,
		Name:    review.Name,
		Comment: review.Comment,
		Stars:   review.Stars,
		Date:    review.Date,
	}

	id := strconv.Itoa(itemID)
	evt, err := pkgkafka.NewEvent(EventReviewAdded, AggregateTypeItem, id, SourceCatalogService, review.Date, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", EventReviewAdded, err)
	}
	if cid := logger.CorrelationIDFromContext(ctx); cid != "" {
		evt.WithCorrelationID(cid)
	}

	if err := p.kafka.Publish(ctx, TopicItemReviews, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", EventReviewAdded, err)
	}

	p.logger.DebugContext(ctx, "published item.review.added event",
		slog.Int("item_id", itemID),
		slog.Int("stars", review.Stars),
	)
	return nil
}

// Nop discards every event. Used when Kafka is disabled.
type Nop struct{}

func (Nop) PublishReviewAdded(context.Context, int, domain.Review) error {
	return nil
}
