package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/utafrali/mongomart/internal/domain"
	"github.com/utafrali/mongomart/internal/store"
	"github.com/utafrali/mongomart/pkg/pagination"
)

// Store is an in-process CatalogStore. Natural order is insertion order and
// text search matches any query term against title, slogan and description,
// ignoring case. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	items []domain.Item
	index map[int]int
}

var _ store.CatalogStore = (*Store)(nil)

// New creates a store holding a copy of items. Later items replace earlier
// ones with the same id.
func New(items ...domain.Item) *Store {
	s := &Store{index: make(map[int]int)}
	s.Put(items...)
	return s
}

// Put inserts or replaces items by id.
func (s *Store) Put(items ...domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, it := range items {
		it = clone(it)
		if i, ok := s.index[it.ID]; ok {
			s.items[i] = it
			continue
		}
		s.index[it.ID] = len(s.items)
		s.items = append(s.items, it)
	}
}

func (s *Store) Categories(_ context.Context) ([]domain.CategoryCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, it := range s.items {
		if label, ok := it.CategoryLabel(); ok {
			counts[label]++
		}
	}

	out := make([]domain.CategoryCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, domain.CategoryCount{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return domain.WithAllEntry(out), nil
}

func (s *Store) Items(_ context.Context, filter domain.CategoryFilter, page, perPage int) ([]domain.Item, error) {
	return s.page(func(it domain.Item) bool { return filter.Matches(it.Category) }, pagination.New(page, perPage)), nil
}

func (s *Store) NumItems(_ context.Context, filter domain.CategoryFilter) (int, error) {
	return s.count(func(it domain.Item) bool { return filter.Matches(it.Category) }), nil
}

func (s *Store) SearchItems(_ context.Context, query string, page, perPage int) ([]domain.Item, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return []domain.Item{}, nil
	}
	return s.page(func(it domain.Item) bool { return matchesText(it, terms) }, pagination.New(page, perPage)), nil
}

func (s *Store) NumSearchItems(_ context.Context, query string) (int, error) {
	terms := searchTerms(query)
	if len(terms) == 0 {
		return 0, nil
	}
	return s.count(func(it domain.Item) bool { return matchesText(it, terms) }), nil
}

func (s *Store) Item(_ context.Context, id int) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return nil, nil
	}
	it := clone(s.items[i])
	return &it, nil
}

func (s *Store) RelatedItems(_ context.Context) ([]domain.Item, error) {
	return s.page(func(domain.Item) bool { return true }, pagination.New(0, store.RelatedItemsLimit)), nil
}

// AddReview appends under the write lock, so concurrent appends never lose
// a review.
func (s *Store) AddReview(_ context.Context, id int, review domain.Review) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return 0, nil
	}
	s.items[i].Reviews = append(s.items[i].Reviews, review)
	return 1, nil
}

func (s *Store) page(match func(domain.Item) bool, p pagination.Params) []domain.Item {
	out := []domain.Item{}
	limit := int(p.Limit())
	if limit == 0 {
		return out
	}
	skip := p.Skip()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var seen int64
	for _, it := range s.items {
		if !match(it) {
			continue
		}
		if seen < skip {
			seen++
			continue
		}
		out = append(out, clone(it))
		if len(out) == limit {
			break
		}
	}
	return out
}

func (s *Store) count(match func(domain.Item) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, it := range s.items {
		if match(it) {
			n++
		}
	}
	return n
}

func searchTerms(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func matchesText(it domain.Item, terms []string) bool {
	words := make(map[string]struct{})
	for _, field := range []string{it.Title, it.Slogan, it.Description} {
		for _, w := range searchTerms(field) {
			words[w] = struct{}{}
		}
	}
	for _, t := range terms {
		if _, ok := words[t]; ok {
			return true
		}
	}
	return false
}

// clone copies an item so callers never share the reviews backing array.
func clone(it domain.Item) domain.Item {
	reviews := make([]domain.Review, len(it.Reviews))
	copy(reviews, it.Reviews)
	it.Reviews = reviews
	if it.Category != nil {
		it.Category = domain.StringPtr(*it.Category)
	}
	return it
}
