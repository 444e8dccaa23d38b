package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
)

// Catalog keeps items in memory, keyed by lowercased code.
type Catalog struct {
	mu     sync.RWMutex
	items  map[int64]catalog.Item
	byCode map[string]int64
	nextID int64
}

func NewCatalog() *Catalog {
	return &Catalog{
		items:  make(map[int64]catalog.Item),
		byCode: make(map[string]int64),
	}
}

func (c *Catalog) GetByID(_ context.Context, id int64) (*catalog.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, ok := c.items[id]
	if !ok {
		return nil, catalog.ErrItemNotFound
	}
	return &it, nil
}

func (c *Catalog) GetByCode(ctx context.Context, code string) (*catalog.Item, error) {
	c.mu.RLock()
	id, ok := c.byCode[strings.ToLower(code)]
	c.mu.RUnlock()
	if !ok {
		return nil, catalog.ErrItemNotFound
	}
	return c.GetByID(ctx, id)
}

func (c *Catalog) sorted() []catalog.Item {
	items := make([]catalog.Item, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (c *Catalog) SearchByTitle(_ context.Context, fragment string, limit int) ([]*catalog.Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fragment = strings.ToLower(fragment)
	var out []*catalog.Item
	for _, it := range c.sorted() {
		it := it
		if !strings.Contains(strings.ToLower(it.Title), fragment) {
			continue
		}
		out = append(out, &it)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *Catalog) ListTitles(_ context.Context) ([]catalog.Title, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := c.sorted()
	titles := make([]catalog.Title, 0, len(items))
	for _, it := range items {
		titles = append(titles, catalog.Title{ID: it.ID, Title: it.Title})
	}
	return titles, nil
}

func (c *Catalog) Upsert(_ context.Context, items []*catalog.Item) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, it := range items {
		key := strings.ToLower(it.Code)
		stored := *it
		if id, ok := c.byCode[key]; ok {
			stored.ID = id
		} else {
			c.nextID++
			stored.ID = c.nextID
			c.byCode[key] = stored.ID
		}
		c.items[stored.ID] = stored
	}
	return len(items), nil
}
