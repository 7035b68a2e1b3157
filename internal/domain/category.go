package domain

import "strings"

// AllCategoriesLabel is the synthetic category that stands for every item
// with a category.
const AllCategoriesLabel = "All"

// CategoryCount is one row of the category breakdown.
type CategoryCount struct {
	Label string `json:"label" bson:"_id"`
	Count int    `json:"count" bson:"num"`
}

// WithAllEntry prepends the synthetic "All" row whose count is the sum of
// counts. The input is not modified.
func WithAllEntry(counts []CategoryCount) []CategoryCount {
	total := 0
	for _, c := range counts {
		total += c.Count
	}
	out := make([]CategoryCount, 0, len(counts)+1)
	out = append(out, CategoryCount{Label: AllCategoriesLabel, Count: total})
	return append(out, counts...)
}

// CategoryFilter selects the items a listing covers. The zero value is
// AllCategories, which also covers items with no category.
type CategoryFilter struct {
	label string
	exact bool
}

// AllCategories selects every item regardless of category.
func AllCategories() CategoryFilter {
	return CategoryFilter{}
}

// ByCategory selects items whose category equals label exactly.
func ByCategory(label string) CategoryFilter {
	return CategoryFilter{label: label, exact: true}
}

// ParseCategoryFilter maps a request value to a filter. An empty value or
// "All" selects everything; anything else is an exact category.
func ParseCategoryFilter(s string) CategoryFilter {
	s = strings.TrimSpace(s)
	if s == "" || s == AllCategoriesLabel {
		return AllCategories()
	}
	return ByCategory(s)
}

// Label returns the exact category and true, or "" and false for AllCategories.
func (f CategoryFilter) Label() (string, bool) {
	return f.label, f.exact
}

// Matches reports whether an item with the given category passes the filter.
func (f CategoryFilter) Matches(category *string) bool {
	if !f.exact {
		return true
	}
	return category != nil && *category == f.label
}

func (f CategoryFilter) String() string {
	if !f.exact {
		return AllCategoriesLabel
	}
	return f.label
}
