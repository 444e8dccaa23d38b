package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ellavondegurechaff/kinobot/kinobot"
	"github.com/ellavondegurechaff/kinobot/kinobot/config"
	"github.com/ellavondegurechaff/kinobot/kinobot/migration"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var importOpts struct {
	file       string
	mongoURI   string
	mongoDB    string
	collection string
	batchSize  int
	workers    int
}

var importCatalogCmd = &cobra.Command{
	Use:   "import-catalog",
	Short: "Import movies from a BSON dump, a JSON file or a MongoDB collection",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Bot.Storage == kinobot.StorageMemory {
			return errors.New("import-catalog needs postgres storage")
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), config.SweepRunTimeout)
		defer cancel()

		records, err := readRecords(ctx)
		if err != nil {
			return err
		}
		slog.Info("Loaded catalog records", slog.String("type", "sys"), slog.Int("count", len(records)))

		a, err := openApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		im := migration.NewImporter(a.catalog)
		im.SetBatchSize(importOpts.batchSize)
		im.SetWorkers(importOpts.workers)

		stats, err := im.Import(ctx, records)
		if err != nil {
			return fmt.Errorf("import failed after %d rows: %w", stats.Written, err)
		}
		return nil
	},
}

func readRecords(ctx context.Context) ([]migration.MovieRecord, error) {
	if importOpts.mongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(importOpts.mongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to mongo: %w", err)
		}
		defer client.Disconnect(context.Background())
		return migration.ReadMongo(ctx, client.Database(importOpts.mongoDB).Collection(importOpts.collection))
	}

	if importOpts.file == "" {
		return nil, errors.New("either --file or --mongo-uri is required")
	}
	f, err := os.Open(importOpts.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", importOpts.file, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(importOpts.file), ".json") {
		return migration.ReadJSON(f)
	}
	return migration.ReadBSON(f)
}

func init() {
	flags := importCatalogCmd.Flags()
	flags.StringVar(&importOpts.file, "file", "", "path to a .bson dump or .json array")
	flags.StringVar(&importOpts.mongoURI, "mongo-uri", "", "read directly from MongoDB instead of a file")
	flags.StringVar(&importOpts.mongoDB, "mongo-db", "kinobot", "MongoDB database name")
	flags.StringVar(&importOpts.collection, "collection", "movies", "MongoDB collection name")
	flags.IntVar(&importOpts.batchSize, "batch-size", config.DefaultBatchSize, "rows per upsert")
	flags.IntVar(&importOpts.workers, "workers", config.MaxImportWorkers, "parallel upserts")
	rootCmd.AddCommand(importCatalogCmd)
}
