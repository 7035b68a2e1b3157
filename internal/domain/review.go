package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Star rating bounds for a review.
const (
	MinReviewStars = 1
	MaxReviewStars = 5
)

// Review is embedded in an Item and only ever appended. Slice order is the
// order reviews were added.
type Review struct {
	Name    string    `json:"name" bson:"name"`
	Comment string    `json:"comment" bson:"comment"`
	Stars   int       `json:"stars" bson:"stars"`
	Date    time.Time `json:"date" bson:"date"`
}

// UnmarshalBSON decodes a stored review. Reviews written by the first
// version of the store keep the date as epoch milliseconds in a double or
// an integer instead of a BSON date.
func (r *Review) UnmarshalBSON(data []byte) error {
	var doc struct {
		Name    string        `bson:"name"`
		Comment string        `bson:"comment"`
		Stars   int           `bson:"stars"`
		Date    bson.RawValue `bson:"date"`
	}
	if err := bson.Unmarshal(data, &doc); err != nil {
		return err
	}
	date, err := reviewDate(doc.Date)
	if err != nil {
		return err
	}
	*r = Review{Name: doc.Name, Comment: doc.Comment, Stars: doc.Stars, Date: date}
	return nil
}

func reviewDate(v bson.RawValue) (time.Time, error) {
	switch v.Type {
	case 0, bsontype.Null, bsontype.Undefined:
		return time.Time{}, nil
	case bsontype.DateTime:
		return time.UnixMilli(v.DateTime()).UTC(), nil
	case bsontype.Int64:
		return time.UnixMilli(v.Int64()).UTC(), nil
	case bsontype.Int32:
		return time.UnixMilli(int64(v.Int32())).UTC(), nil
	case bsontype.Double:
		f := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return time.Time{}, fmt.Errorf("review date: invalid epoch milliseconds %v", f)
		}
		return time.UnixMilli(int64(f)).UTC(), nil
	case bsontype.String:
		t, err := time.Parse(time.RFC3339Nano, v.StringValue())
		if err != nil {
			return time.Time{}, fmt.Errorf("review date: %w", err)
		}
		return t.UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("review date: cannot decode %s", v.Type)
	}
}

var (
	ErrReviewNameRequired = errors.New("review name is required")
	ErrReviewStarsRange   = fmt.Errorf("review stars must be between %d and %d", MinReviewStars, MaxReviewStars)
)

// Validate checks the fields a reviewer supplies.
func (r Review) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrReviewNameRequired
	}
	if r.Stars < MinReviewStars || r.Stars > MaxReviewStars {
		return ErrReviewStarsRange
	}
	return nil
}

// ReviewSummary aggregates an item's reviews.
type ReviewSummary struct {
	Count        int     `json:"count"`
	AverageStars float64 `json:"average_stars"`
}

// Summarize counts reviews and averages their stars, rounded to one decimal.
func Summarize(reviews []Review) ReviewSummary {
	if len(reviews) == 0 {
		return ReviewSummary{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Stars
	}
	avg := float64(total) / float64(len(reviews))
	return ReviewSummary{
		Count:        len(reviews),
		AverageStars: math.Round(avg*10) / 10,
	}
}
