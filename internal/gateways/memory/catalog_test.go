package memory

import (
	"context"
	"testing"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()

	n, err := c.Upsert(ctx, []*catalog.Item{
		{Title: "Sen yetim emassan", Code: "A1"},
		{Title: "Toshkent - non shahri", Code: "B2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.Upsert(ctx, []*catalog.Item{{Title: "Sen yetim emassan (1962)", Code: "a1"}})
	require.NoError(t, err)

	it, err := c.GetByCode(ctx, "A1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), it.ID)
	assert.Equal(t, "Sen yetim emassan (1962)", it.Title)

	_, err = c.GetByCode(ctx, "zz")
	assert.ErrorIs(t, err, catalog.ErrItemNotFound)

	found, err := c.SearchByTitle(ctx, "NON", 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "B2", found[0].Code)

	titles, err := c.ListTitles(ctx)
	require.NoError(t, err)
	assert.Len(t, titles, 2)
}
