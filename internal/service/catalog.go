package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/utafrali/mongomart/internal/domain"
	"github.com/utafrali/mongomart/internal/store"
	apperrors "github.com/utafrali/mongomart/pkg/errors"
	"github.com/utafrali/mongomart/pkg/pagination"
)

// RelatedItemsSource supplies the related items shown next to an item. The
// catalog store's unfiltered sample is the default.
type RelatedItemsSource interface {
	RelatedItems(ctx context.Context) ([]domain.Item, error)
}

// ReviewPublisher announces reviews that were applied to an item.
type ReviewPublisher interface {
	PublishReviewAdded(ctx context.Context, itemID int, review domain.Review) error
}

// ItemPage is one page of a listing or search.
type ItemPage = pagination.Result[domain.Item]

// AddReviewInput holds the fields a reviewer submits.
type AddReviewInput struct {
	ItemID  int
	Name    string
	Comment string
	Stars   int
}

// AddReviewResult reports the stored review and whether an item matched.
type AddReviewResult struct {
	Review  domain.Review `json:"review"`
	Applied bool          `json:"applied"`
}

// Option configures a CatalogService.
type Option func(*CatalogService)

// WithRelatedItems replaces the related items source.
func WithRelatedItems(src RelatedItemsSource) Option {
	return func(s *CatalogService) { s.related = src }
}

// WithClock sets the clock used to date reviews.
func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) { s.now = now }
}

// CatalogService implements the catalog use cases on top of a CatalogStore.
type CatalogService struct {
	store     store.CatalogStore
	related   RelatedItemsSource
	publisher ReviewPublisher
	now       func() time.Time
	perPage   int
	logger    *slog.Logger
}

// NewCatalogService creates a catalog service listing perPage items per page.
func NewCatalogService(st store.CatalogStore, publisher ReviewPublisher, perPage int, logger *slog.Logger, opts ...Option) *CatalogService {
	s := &CatalogService{
		store:     st,
		related:   st,
		publisher: publisher,
		now:       time.Now,
		perPage:   perPage,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Categories returns the category breakdown with the "All" total first.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	counts, err := s.store.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return counts, nil
}

// ListItems returns a zero-based page of items in filter with its totals.
func (s *CatalogService) ListItems(ctx context.Context, filter domain.CategoryFilter, page int) (ItemPage, error) {
	params := pagination.New(page, s.perPage)

	items, err := s.store.Items(ctx, filter, params.Page, params.PerPage)
	if err != nil {
		return ItemPage{}, fmt.Errorf("list items: %w", err)
	}
	total, err := s.store.NumItems(ctx, filter)
	if err != nil {
		return ItemPage{}, fmt.Errorf("count items: %w", err)
	}
	return pagination.NewResult(items, total, params), nil
}

// Search returns a zero-based page of text search matches. A blank query
// yields an empty page without touching the store.
func (s *CatalogService) Search(ctx context.Context, query string, page int) (ItemPage, error) {
	params := pagination.New(page, s.perPage)
	query = strings.TrimSpace(query)
	if query == "" {
		return pagination.NewResult([]domain.Item{}, 0, params), nil
	}

	items, err := s.store.SearchItems(ctx, query, params.Page, params.PerPage)
	if err != nil {
		return ItemPage{}, fmt.Errorf("search items: %w", err)
	}
	total, err := s.store.NumSearchItems(ctx, query)
	if err != nil {
		return ItemPage{}, fmt.Errorf("count search items: %w", err)
	}
	return pagination.NewResult(items, total, params), nil
}

// GetItem returns the item with its review summary and related items.
func (s *CatalogService) GetItem(ctx context.Context, id int) (*domain.ItemDetail, error) {
	item, err := s.store.Item(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if item == nil {
		return nil, apperrors.NotFound("item", strconv.Itoa(id))
	}

	related, err := s.related.RelatedItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("get related items: %w", err)
	}
	if related == nil {
		related = []domain.Item{}
	}

	return &domain.ItemDetail{
		Item:          *item,
		ReviewSummary: domain.Summarize(item.Reviews),
		Related:       related,
	}, nil
}

// AddReview validates and appends a review dated now. Applied is false when
// no item has the given id. Publish failures are logged, not returned.
func (s *CatalogService) AddReview(ctx context.Context, input AddReviewInput) (*AddReviewResult, error) {
	review := domain.Review{
		Name:    strings.TrimSpace(input.Name),
		Comment: strings.TrimSpace(input.Comment),
		Stars:   input.Stars,
		// BSON dates carry milliseconds.
		Date: s.now().UTC().Truncate(time.Millisecond),
	}
	if err := review.Validate(); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	matched, err := s.store.AddReview(ctx, input.ItemID, review)
	if err != nil {
		return nil, fmt.Errorf("add review: %w", err)
	}

	result := &AddReviewResult{Review: review, Applied: matched > 0}
	if !result.Applied {
		s.logger.InfoContext(ctx, "review not applied, no such item",
			slog.Int("item_id", input.ItemID),
		)
		return result, nil
	}

	s.logger.InfoContext(ctx, "review added",
		slog.Int("item_id", input.ItemID),
		slog.Int("stars", review.Stars),
	)

	if err := s.publisher.PublishReviewAdded(ctx, input.ItemID, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review event",
			slog.Int("item_id", input.ItemID),
			slog.String("error", err.Error()),
		)
	}
	return result, nil
}
