package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
)

const DefaultCacheSize = 512

// Fuzzy matches are accepted only for queries of minFuzzyQuery runes whose
// characters cover at least minFuzzyDensity of the matched title span.
const (
	minFuzzyQuery   = 3
	minFuzzyDensity = 0.5
)

// titles implements fuzzy.Source.
type titles []Title

func (t titles) Len() int            { return len(t) }
func (t titles) String(i int) string { return strings.ToLower(t[i].Title) }

type Service struct {
	repository Repository
	cache      *lru.Cache
}

func NewService(repository Repository, cacheSize int) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	return &Service{repository: repository, cache: cache}, nil
}

func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// FindByTitleOrCode resolves a free-text query to one item: an exact code
// match wins, then the first title containing the query, then the best fuzzy
// title match.
func (s *Service) FindByTitleOrCode(ctx context.Context, query string) (*Item, bool, error) {
	q := normalizeQuery(query)
	if q == "" {
		return nil, false, nil
	}

	if v, ok := s.cache.Get(q); ok {
		return v.(*Item), true, nil
	}

	item, err := s.lookup(ctx, q)
	if errors.Is(err, ErrItemNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.cache.Add(q, item)
	return item, true, nil
}

func (s *Service) lookup(ctx context.Context, q string) (*Item, error) {
	item, err := s.repository.GetByCode(ctx, q)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, ErrItemNotFound) {
		return nil, err
	}

	items, err := s.repository.SearchByTitle(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	if len(items) > 0 {
		return items[0], nil
	}

	if len([]rune(q)) < minFuzzyQuery {
		return nil, ErrItemNotFound
	}

	all, err := s.repository.ListTitles(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range fuzzy.FindFrom(q, titles(all)) {
		if !dense(m) {
			continue
		}
		best := all[m.Index]
		slog.Debug("Catalog fuzzy match",
			slog.String("type", "sys"),
			slog.String("query", q),
			slog.String("title", best.Title),
			slog.Int("score", m.Score))
		return s.repository.GetByID(ctx, best.ID)
	}
	return nil, ErrItemNotFound
}

// dense rejects subsequence matches scattered across a long title.
func dense(m fuzzy.Match) bool {
	idx := m.MatchedIndexes
	if len(idx) == 0 {
		return false
	}
	span := idx[len(idx)-1] - idx[0] + 1
	return float64(len(idx)) >= minFuzzyDensity*float64(span)
}

// Import stores items and drops cached lookups.
func (s *Service) Import(ctx context.Context, items []*Item) (int, error) {
	n, err := s.repository.Upsert(ctx, items)
	if err != nil {
		return n, err
	}
	s.cache.Purge()
	return n, nil
}
