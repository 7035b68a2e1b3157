package domain

// Item is a catalog document in the item collection. The id is assigned when
// the catalog is provisioned and never changes.
type Item struct {
	ID          int      `json:"id" bson:"_id"`
	Title       string   `json:"title" bson:"title"`
	Slogan      string   `json:"slogan" bson:"slogan"`
	Description string   `json:"description" bson:"description"`
	Stars       float64  `json:"stars" bson:"stars"`
	Category    *string  `json:"category" bson:"category"`
	ImgURL      string   `json:"img_url" bson:"img_url"`
	Price       float64  `json:"price" bson:"price"`
	Reviews     []Review `json:"reviews" bson:"reviews"`
}

// CategoryLabel returns the item's category and whether it has one.
func (i Item) CategoryLabel() (string, bool) {
	if i.Category == nil {
		return "", false
	}
	return *i.Category, true
}

// ItemDetail is an item enriched with its review summary and a small set of
// related items for the product page.
type ItemDetail struct {
	Item
	ReviewSummary ReviewSummary `json:"review_summary"`
	Related       []Item        `json:"related_items"`
}

// StringPtr returns a pointer to s. Handy for building items with a category.
func StringPtr(s string) *string {
	return &s
}
