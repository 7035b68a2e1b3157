package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/utafrali/mongomart/internal/domain"
)

// TextIndexName is the name of the combined text index used by search.
const TextIndexName = "item_text_idx"

// TextIndexModel describes the text index over title, slogan and description.
func TextIndexModel() mongo.IndexModel {
	return mongo.IndexModel{
		Keys: bson.D{
			{Key: "title", Value: "text"},
			{Key: "slogan", Value: "text"},
			{Key: "description", Value: "text"},
		},
		Options: options.Index().SetName(TextIndexName),
	}
}

// EnsureTextIndex creates the search text index. Creating an index that
// already exists with the same definition is a no-op on the server.
func (s *Store) EnsureTextIndex(ctx context.Context) (string, error) {
	name, err := s.coll.Indexes().CreateOne(ctx, TextIndexModel())
	if err != nil {
		return "", fmt.Errorf("create text index: %w", err)
	}
	return name, nil
}

// SeedResult reports how a seed load changed the collection.
type SeedResult struct {
	Inserted int64
	Replaced int64
}

// Seed upserts items by id in one unordered bulk write. Catalog fields are
// overwritten on every load. Reviews are only written when the item is first
// inserted, so re-seeding keeps what customers wrote since.
func (s *Store) Seed(ctx context.Context, items []domain.Item) (SeedResult, error) {
	if len(items) == 0 {
		return SeedResult{}, nil
	}

	models := make([]mongo.WriteModel, 0, len(items))
	for i := range items {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "_id", Value: items[i].ID}}).
			SetUpdate(seedUpdate(items[i])).
			SetUpsert(true))
	}

	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed items: %w", err)
	}
	return SeedResult{Inserted: res.UpsertedCount, Replaced: res.MatchedCount}, nil
}

func seedUpdate(item domain.Item) bson.D {
	normalize(&item)
	return bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "title", Value: item.Title},
			{Key: "slogan", Value: item.Slogan},
			{Key: "description", Value: item.Description},
			{Key: "stars", Value: item.Stars},
			{Key: "category", Value: item.Category},
			{Key: "img_url", Value: item.ImgURL},
			{Key: "price", Value: item.Price},
		}},
		{Key: "$setOnInsert", Value: bson.D{
			{Key: "reviews", Value: item.Reviews},
		}},
	}
}
