package migration

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func bsonDump(t *testing.T, records ...MovieRecord) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	for _, r := range records {
		doc, err := bson.Marshal(r)
		require.NoError(t, err)
		buf.Write(doc)
	}
	return &buf
}

func TestReadBSON(t *testing.T) {
	dump := bsonDump(t,
		MovieRecord{Title: "Abdullajon", Year: 1991, Code: "1", FileID: "BAAC1", Rating: 8.1},
		MovieRecord{Title: "Suyunchi", Year: 1982, Code: "2"},
	)

	records, err := ReadBSON(dump)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Abdullajon", records[0].Title)
	assert.Equal(t, "BAAC1", records[0].FileID)
	assert.Equal(t, 8.1, records[0].Rating)

	truncated := bsonDump(t, MovieRecord{Title: "Abdullajon", Code: "1"})
	truncated.Truncate(truncated.Len() - 3)
	_, err = ReadBSON(truncated)
	assert.Error(t, err)

	records, err = ReadBSON(&bytes.Buffer{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestReadJSON(t *testing.T) {
	records, err := ReadJSON(strings.NewReader(`[{"title":"Yor-yor","year":1964,"code":"15","file_id":"x"}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "15", records[0].Code)

	_, err = ReadJSON(strings.NewReader(`{"title":`))
	assert.Error(t, err)
}

type recordingCatalog struct {
	mu      sync.Mutex
	batches [][]*catalog.Item
	fail    bool
}

func (c *recordingCatalog) Import(_ context.Context, items []*catalog.Item) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return 0, errors.New("connection refused")
	}
	c.batches = append(c.batches, items)
	return len(items), nil
}

func TestImporter_Import(t *testing.T) {
	records := []MovieRecord{
		{Title: "A", Code: "1"},
		{Title: "B", Code: "2"},
		{Title: "", Code: "3"},
		{Title: "C", Code: ""},
		{Title: "B v2", Code: "2"},
		{Title: "D", Code: "4"},
		{Title: "E", Code: "5"},
	}

	cat := &recordingCatalog{}
	im := NewImporter(cat)
	im.SetBatchSize(2)
	im.SetWorkers(2)

	stats, err := im.Import(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.Read)
	assert.Equal(t, 3, stats.Skipped)
	assert.EqualValues(t, 4, stats.Written)
	assert.Equal(t, 2, stats.Batches)

	titles := map[string]string{}
	for _, b := range cat.batches {
		for _, it := range b {
			titles[it.Code] = it.Title
		}
	}
	assert.Equal(t, map[string]string{"1": "A", "2": "B v2", "4": "D", "5": "E"}, titles)
}

func TestImporter_Errors(t *testing.T) {
	_, err := NewImporter(&recordingCatalog{}).Import(context.Background(), []MovieRecord{{Title: "no code"}})
	assert.Error(t, err)

	_, err = NewImporter(&recordingCatalog{fail: true}).Import(context.Background(), []MovieRecord{{Title: "A", Code: "1"}})
	assert.ErrorContains(t, err, "connection refused")
}
