package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/utafrali/mongomart/internal/domain"
	apperrors "github.com/utafrali/mongomart/pkg/errors"
)

// CatalogStore is the data-access layer over the item collection. Each call
// issues one request to the backing store. Not-found is never an error:
// Item returns nil and AddReview returns a zero matched count.
type CatalogStore interface {
	// Categories returns {All, total} followed by one row per non-null
	// category, sorted by label.
	Categories(ctx context.Context) ([]domain.CategoryCount, error)

	// Items returns at most perPage items matching filter, skipping
	// page*perPage matches in the store's natural order.
	Items(ctx context.Context, filter domain.CategoryFilter, page, perPage int) ([]domain.Item, error)

	// NumItems counts the items Items would page over.
	NumItems(ctx context.Context, filter domain.CategoryFilter) (int, error)

	// SearchItems pages over the items matching query in the text index.
	SearchItems(ctx context.Context, query string, page, perPage int) ([]domain.Item, error)

	// NumSearchItems counts the items SearchItems would page over.
	NumSearchItems(ctx context.Context, query string) (int, error)

	// Item returns the item with id, or nil when there is none.
	Item(ctx context.Context, id int) (*domain.Item, error)

	// RelatedItems returns up to RelatedItemsLimit items with no filter or order.
	RelatedItems(ctx context.Context) ([]domain.Item, error)

	// AddReview appends review to the item's reviews atomically and returns
	// the number of items matched (0 or 1).
	AddReview(ctx context.Context, id int, review domain.Review) (int64, error)
}

// RelatedItemsLimit caps RelatedItems.
const RelatedItemsLimit = 4

// Error reports a failed store operation. It matches
// apperrors.ErrServiceUnavail and unwraps to the driver error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("catalog store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, apperrors.ErrServiceUnavail) true for store failures.
func (e *Error) Is(target error) bool {
	return target == apperrors.ErrServiceUnavail
}

// Wrap returns nil for a nil err and a *Error otherwise. Context
// cancellation is passed through untouched so callers can tell it apart.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// DecodeError reports a stored document that could not be read into the
// domain types. It matches apperrors.ErrInternal, not ErrServiceUnavail.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("catalog store %s: decode: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, apperrors.ErrInternal) true for decode failures.
func (e *DecodeError) Is(target error) bool {
	return target == apperrors.ErrInternal
}

// WrapDecode returns nil for a nil err and a *DecodeError otherwise.
func WrapDecode(op string, err error) error {
	if err == nil {
		return nil
	}
	return &DecodeError{Op: op, Err: err}
}
