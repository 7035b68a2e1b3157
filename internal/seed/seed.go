// Package seed reads catalog items from a JSON file for provisioning and for
// preloading the in-memory store.
package seed

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/utafrali/mongomart/internal/domain"
)

// Load decodes a JSON array of items. Item ids must be unique.
func Load(r io.Reader) ([]domain.Item, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var items []domain.Item
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode seed items: %w", err)
	}

	seen := make(map[int]struct{}, len(items))
	for i := range items {
		id := items[i].ID
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("seed item %d: duplicate id %d", i, id)
		}
		seen[id] = struct{}{}
		if items[i].Reviews == nil {
			items[i].Reviews = []domain.Review{}
		}
	}
	return items, nil
}

// LoadFile opens path and decodes it with Load.
func LoadFile(path string) ([]domain.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer func() { _ = f.Close() }()

	items, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}
