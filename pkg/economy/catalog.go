package economy

import "sort"

// Catalog is a read-only index of catalog items.
type Catalog struct {
	items map[string]CatalogItem
}

// NewCatalog indexes items by id.
func NewCatalog(items []CatalogItem) *Catalog {
	c := &Catalog{items: make(map[string]CatalogItem, len(items))}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

// Item returns the item with id.
func (c *Catalog) Item(id string) (CatalogItem, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Items returns all items of kind ordered by price, then id.
func (c *Catalog) Items(kind string) []CatalogItem {
	var out []CatalogItem
	for _, it := range c.items {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Price == out[j].Price {
			return out[i].ID < out[j].ID
		}
		return out[i].Price < out[j].Price
	})
	return out
}
