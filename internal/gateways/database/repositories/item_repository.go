package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/database/models"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/uptrace/bun"
)

type ItemRepository struct {
	*BaseRepository
}

func NewItemRepository(db *bun.DB) *ItemRepository {
	return &ItemRepository{BaseRepository: NewBaseRepository(db)}
}

func toItem(m *models.Item) *catalog.Item {
	return &catalog.Item{
		ID:          m.ID,
		Title:       m.Title,
		Year:        m.Year,
		Genre:       m.Genre,
		Rating:      m.Rating,
		Description: m.Description,
		Code:        m.Code,
		FileRef:     m.FileRef,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *ItemRepository) getOne(ctx context.Context, where string, arg any) (*catalog.Item, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	item := new(models.Item)
	err := r.db.NewSelect().
		Model(item).
		Where(where, arg).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, catalog.ErrItemNotFound
	}
	if err != nil {
		return nil, r.HandleError("get", "item", err)
	}
	return toItem(item), nil
}

func (r *ItemRepository) GetByID(ctx context.Context, id int64) (*catalog.Item, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *ItemRepository) GetByCode(ctx context.Context, code string) (*catalog.Item, error) {
	return r.getOne(ctx, "lower(code) = lower(?)", code)
}

func (r *ItemRepository) SearchByTitle(ctx context.Context, fragment string, limit int) ([]*catalog.Item, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.Item
	q := r.db.NewSelect().
		Model(&rows).
		Where("title ILIKE ?", "%"+likeEscaper.Replace(fragment)+"%").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, r.HandleError("search", "item", err)
	}

	items := make([]*catalog.Item, 0, len(rows))
	for _, m := range rows {
		items = append(items, toItem(m))
	}
	return items, nil
}

func (r *ItemRepository) ListTitles(ctx context.Context) ([]catalog.Title, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var rows []*models.Item
	err := r.db.NewSelect().
		Model(&rows).
		Column("id", "title").
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("list_titles", "item", err)
	}

	titles := make([]catalog.Title, 0, len(rows))
	for _, m := range rows {
		titles = append(titles, catalog.Title{ID: m.ID, Title: m.Title})
	}
	return titles, nil
}

// Upsert writes items in batches keyed by code.
func (r *ItemRepository) Upsert(ctx context.Context, items []*catalog.Item) (int, error) {
	ctx, cancel := r.WithCustomTimeout(ctx, config.BatchQueryTimeout)
	defer cancel()

	now := time.Now()
	written := 0
	for start := 0; start < len(items); start += config.DefaultBatchSize {
		end := min(start+config.DefaultBatchSize, len(items))

		batch := make([]*models.Item, 0, end-start)
		for _, it := range items[start:end] {
			batch = append(batch, &models.Item{
				Title:       it.Title,
				Year:        it.Year,
				Genre:       it.Genre,
				Rating:      it.Rating,
				Description: it.Description,
				Code:        it.Code,
				FileRef:     it.FileRef,
				CreatedAt:   now,
				UpdatedAt:   now,
			})
		}

		res, err := r.db.NewInsert().
			Model(&batch).
			On("CONFLICT (code) DO UPDATE").
			Set("title = EXCLUDED.title").
			Set("year = EXCLUDED.year").
			Set("genre = EXCLUDED.genre").
			Set("rating = EXCLUDED.rating").
			Set("description = EXCLUDED.description").
			Set("file_ref = EXCLUDED.file_ref").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return written, r.HandleError("upsert", "item", err)
		}
		n, _ := res.RowsAffected()
		written += int(n)
	}
	return written, nil
}
