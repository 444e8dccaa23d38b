package migration

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// MovieRecord is one catalog entry as exported from the legacy movies table.
type MovieRecord struct {
	Title       string  `bson:"title" json:"title"`
	Year        int     `bson:"year" json:"year"`
	Genre       string  `bson:"genre" json:"genre"`
	Rating      float64 `bson:"rating" json:"rating"`
	Description string  `bson:"description" json:"description"`
	Code        string  `bson:"code" json:"code"`
	FileID      string  `bson:"file_id" json:"file_id"`
}

func (r MovieRecord) item() *catalog.Item {
	return &catalog.Item{
		Title:       strings.TrimSpace(r.Title),
		Year:        r.Year,
		Genre:       strings.TrimSpace(r.Genre),
		Rating:      r.Rating,
		Description: strings.TrimSpace(r.Description),
		Code:        strings.TrimSpace(r.Code),
		FileRef:     strings.TrimSpace(r.FileID),
	}
}

// ReadBSON reads a mongodump style file: concatenated documents, each
// prefixed by its little-endian int32 length.
func ReadBSON(r io.Reader) ([]MovieRecord, error) {
	var records []MovieRecord
	reader := bufio.NewReader(r)
	for {
		lengthBytes := make([]byte, 4)
		_, err := io.ReadFull(reader, lengthBytes)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read document length: %w", err)
		}

		// The length includes its own four bytes.
		length := int32(binary.LittleEndian.Uint32(lengthBytes))
		if length <= 4 {
			return nil, fmt.Errorf("invalid document length: %d", length)
		}

		doc := make([]byte, length)
		copy(doc, lengthBytes)
		if _, err := io.ReadFull(reader, doc[4:]); err != nil {
			return nil, fmt.Errorf("failed to read document bytes: %w", err)
		}

		var rec MovieRecord
		if err := bson.Unmarshal(doc, &rec); err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReadJSON reads a JSON array of records.
func ReadJSON(r io.Reader) ([]MovieRecord, error) {
	var records []MovieRecord
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode json catalog: %w", err)
	}
	return records, nil
}

// ReadMongo reads every record straight from a live collection.
func ReadMongo(ctx context.Context, coll *mongo.Collection) ([]MovieRecord, error) {
	cursor, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", coll.Name(), err)
	}
	var records []MovieRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", coll.Name(), err)
	}
	return records, nil
}

type Stats struct {
	Read    int
	Skipped int
	Written int64
	Batches int
	Took    time.Duration
}

type importer interface {
	Import(ctx context.Context, items []*catalog.Item) (int, error)
}

// Importer writes records to the catalog in bounded parallel batches.
type Importer struct {
	catalog   importer
	batchSize int
	workers   int
}

func NewImporter(svc importer) *Importer {
	return &Importer{
		catalog:   svc,
		batchSize: config.DefaultBatchSize,
		workers:   config.MaxImportWorkers,
	}
}

func (im *Importer) SetBatchSize(size int) {
	if size > 0 {
		im.batchSize = size
	}
}

func (im *Importer) SetWorkers(n int) {
	if n > 0 {
		im.workers = n
	}
}

// prepare drops records without a title or code and keeps the last record
// for each code, since one upsert batch cannot touch a row twice.
func prepare(records []MovieRecord) ([]*catalog.Item, int) {
	index := make(map[string]int, len(records))
	items := make([]*catalog.Item, 0, len(records))
	skipped := 0
	for _, rec := range records {
		it := rec.item()
		if it.Title == "" || it.Code == "" {
			skipped++
			continue
		}
		key := strings.ToLower(it.Code)
		if i, ok := index[key]; ok {
			items[i] = it
			skipped++
			continue
		}
		index[key] = len(items)
		items = append(items, it)
	}
	return items, skipped
}

func (im *Importer) Import(ctx context.Context, records []MovieRecord) (Stats, error) {
	start := time.Now()
	items, skipped := prepare(records)
	stats := Stats{Read: len(records), Skipped: skipped}
	if len(items) == 0 {
		return stats, errors.New("no importable records")
	}

	var written atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)
	for from := 0; from < len(items); from += im.batchSize {
		batch := items[from:min(from+im.batchSize, len(items))]
		stats.Batches++
		g.Go(func() error {
			n, err := im.catalog.Import(gctx, batch)
			written.Add(int64(n))
			if err != nil {
				return fmt.Errorf("batch starting at %q: %w", batch[0].Code, err)
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Written = written.Load()
	stats.Took = time.Since(start)
	slog.Info("Catalog import finished",
		slog.String("type", "db"),
		slog.Int("read", stats.Read),
		slog.Int("skipped", stats.Skipped),
		slog.Int64("written", stats.Written),
		slog.Int("batches", stats.Batches),
		slog.Duration("took", stats.Took))
	return stats, err
}
