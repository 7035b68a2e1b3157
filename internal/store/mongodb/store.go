package mongodb

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/mongomart/internal/domain"
	"github.com/utafrali/mongomart/internal/store"
	"github.com/utafrali/mongomart/pkg/database"
	"github.com/utafrali/mongomart/pkg/pagination"
)

// CollectionName is the collection holding catalog items.
const CollectionName = "item"

// Store implements store.CatalogStore on a MongoDB collection.
type Store struct {
	coll *mongo.Collection
}

var _ store.CatalogStore = (*Store)(nil)

// NewStore creates a store over the item collection of db.
func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(CollectionName)}
}

// Categories aggregates non-null categories with their item counts, sorted
// by label, and prepends the "All" total.
func (s *Store) Categories(ctx context.Context) (_ []domain.CategoryCount, err error) {
	ctx, end := database.TraceQuery(ctx, "Categories", CollectionName, "aggregate [$match category != null, $group category, $sort _id]")
	defer func() { end(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "category", Value: bson.D{{Key: "$ne", Value: nil}}}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "num", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, wrap("categories", err)
	}

	var counts []domain.CategoryCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, wrap("categories", err)
	}
	return domain.WithAllEntry(counts), nil
}

// Items returns one page of items matching filter in natural order.
func (s *Store) Items(ctx context.Context, filter domain.CategoryFilter, page, perPage int) (_ []domain.Item, err error) {
	if perPage <= 0 {
		return []domain.Item{}, nil
	}

	ctx, end := database.TraceQuery(ctx, "Items", CollectionName, "find {category} skip limit")
	defer func() { end(err) }()

	items, err := s.findPage(ctx, categoryPredicate(filter), pagination.New(page, perPage))
	if err != nil {
		return nil, wrap("items", err)
	}
	return items, nil
}

// NumItems counts the items matching filter.
func (s *Store) NumItems(ctx context.Context, filter domain.CategoryFilter) (_ int, err error) {
	ctx, end := database.TraceQuery(ctx, "NumItems", CollectionName, "countDocuments {category}")
	defer func() { end(err) }()

	n, err := s.coll.CountDocuments(ctx, categoryPredicate(filter))
	if err != nil {
		return 0, wrap("count items", err)
	}
	return int(n), nil
}

// SearchItems returns one page of items matching query in the text index.
// A blank query matches nothing.
func (s *Store) SearchItems(ctx context.Context, query string, page, perPage int) (_ []domain.Item, err error) {
	if perPage <= 0 || strings.TrimSpace(query) == "" {
		return []domain.Item{}, nil
	}

	ctx, end := database.TraceQuery(ctx, "SearchItems", CollectionName, "find {$text} skip limit")
	defer func() { end(err) }()

	items, err := s.findPage(ctx, textPredicate(query), pagination.New(page, perPage))
	if err != nil {
		return nil, wrap("search items", err)
	}
	return items, nil
}

// NumSearchItems counts the items matching query in the text index.
func (s *Store) NumSearchItems(ctx context.Context, query string) (_ int, err error) {
	if strings.TrimSpace(query) == "" {
		return 0, nil
	}

	ctx, end := database.TraceQuery(ctx, "NumSearchItems", CollectionName, "countDocuments {$text}")
	defer func() { end(err) }()

	n, err := s.coll.CountDocuments(ctx, textPredicate(query))
	if err != nil {
		return 0, wrap("count search items", err)
	}
	return int(n), nil
}

// Item looks up a single item by id. A missing item yields (nil, nil).
func (s *Store) Item(ctx context.Context, id int) (_ *domain.Item, err error) {
	ctx, end := database.TraceQuery(ctx, "Item", CollectionName, "findOne {_id}")
	defer func() { end(err) }()

	var item domain.Item
	err = s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("item", err)
	}
	normalize(&item)
	return &item, nil
}

// RelatedItems returns up to store.RelatedItemsLimit items, unfiltered.
func (s *Store) RelatedItems(ctx context.Context) (_ []domain.Item, err error) {
	ctx, end := database.TraceQuery(ctx, "RelatedItems", CollectionName, "find {} limit")
	defer func() { end(err) }()

	items, err := s.findPage(ctx, bson.D{}, pagination.New(0, store.RelatedItemsLimit))
	if err != nil {
		return nil, wrap("related items", err)
	}
	return items, nil
}

// AddReview pushes review onto the item's reviews in a single update and
// returns the matched count.
func (s *Store) AddReview(ctx context.Context, id int, review domain.Review) (_ int64, err error) {
	ctx, end := database.TraceQuery(ctx, "AddReview", CollectionName, "updateOne {_id} {$push reviews}")
	defer func() { end(err) }()

	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$push", Value: bson.D{{Key: "reviews", Value: review}}}},
	)
	if err != nil {
		return 0, wrap("add review", err)
	}
	return res.MatchedCount, nil
}

func (s *Store) findPage(ctx context.Context, filter bson.D, p pagination.Params) ([]domain.Item, error) {
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit())

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	items := []domain.Item{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, err
	}
	for i := range items {
		normalize(&items[i])
	}
	return items, nil
}

func categoryPredicate(filter domain.CategoryFilter) bson.D {
	label, exact := filter.Label()
	if !exact {
		return bson.D{}
	}
	return bson.D{{Key: "category", Value: label}}
}

func textPredicate(query string) bson.D {
	return bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: query}}}}
}

// normalize turns a missing or null reviews field into an empty list.
func normalize(item *domain.Item) {
	if item.Reviews == nil {
		item.Reviews = []domain.Review{}
	}
}

// wrap classifies a driver error: documents that do not fit the domain
// types are decode errors, everything else is a store failure.
func wrap(op string, err error) error {
	if isDecodeError(err) {
		return store.WrapDecode(op, err)
	}
	return store.Wrap(op, err)
}

func isDecodeError(err error) bool {
	var de *bsoncodec.DecodeError
	var vde bsoncodec.ValueDecoderError
	return errors.As(err, &de) ||
		errors.As(err, &vde) ||
		errors.Is(err, mongo.ErrNilDocument) ||
		errors.Is(err, bson.ErrDecodeToNil)
}
