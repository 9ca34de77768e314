// Command import loads a calendar dataset into the SQLite document store
// that the server reads when DATA_SOURCE=sqlite.
//
// Usage:
//
//	go run ./cmd/import -dir ./calendar -db data/ordo.db
//	go run ./cmd/import -db data/ordo.db             # the embedded dataset
//	go run ./cmd/import -db data/ordo.db -history    # recent imports
//
// This tool:
// 1. Reads every document named by the manifest from the source
// 2. Loads them through the engine to reject a dataset that would not load
// 3. Replaces the stored documents in a single transaction
// 4. Reloads from the database and checks the dataset version survived
//
// Every run, successful or not, is recorded in import_runs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/zapponejosh/ordo-api/internal/calendar"
	"github.com/zapponejosh/ordo-api/internal/data"
	"github.com/zapponejosh/ordo-api/internal/database"
	"github.com/zapponejosh/ordo-api/internal/liturgy"
	"github.com/zapponejosh/ordo-api/internal/source"
)

func main() {
	dir := flag.String("dir", "", "Dataset directory (default: the embedded dataset)")
	dbPath := flag.String("db", "data/ordo.db", "Path to SQLite database")
	advent := flag.String("advent", "fixed", "Advent rule used to validate: fixed or sunday")
	history := flag.Bool("history", false, "Print recent imports and exit")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))

	rule, err := calendar.ParseAdventRule(*advent)
	if err != nil {
		logger.Error("invalid flag", slog.String("error", err.Error()))
		os.Exit(2)
	}

	ctx := context.Background()
	db, err := openDB(ctx, *dbPath, logger)
	if err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	if *history {
		if err := printHistory(ctx, db); err != nil {
			logger.Error("list imports", slog.String("error", err.Error()))
			os.Exit(1)
		}
		return
	}

	if err := run(ctx, db, *dir, calendar.Boundaries{Advent: rule}, logger); err != nil {
		logger.Error("import failed", slog.String("error", err.Error()))
		db.Close()
		os.Exit(1)
	}

	logger.Info("import complete")
}

func openDB(ctx context.Context, path string, logger *slog.Logger) (*database.DB, error) {
	logger.Info("opening database", slog.String("path", path))

	db, err := database.Open(database.DefaultConfig(path), logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	migrated, err := db.Migrate(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("migrations complete", slog.Int("applied", migrated))
	return db, nil
}

// run imports the dataset and records the attempt.
func run(ctx context.Context, db *database.DB, dir string, boundaries calendar.Boundaries, logger *slog.Logger) error {
	startTime := time.Now()

	var (
		fetcher liturgy.Fetcher
		label   string
	)
	if dir == "" {
		fetcher, label = source.NewFS(data.FS, ""), "embedded"
	} else {
		fetcher, label = source.NewFS(os.DirFS(dir), ""), dir
	}

	record := &database.ImportRun{Source: label}
	version, count, err := importDataset(ctx, db, fetcher, boundaries, logger)
	elapsed := time.Since(startTime)

	ms := elapsed.Milliseconds()
	record.DurationMs = &ms
	record.Documents = count
	record.Success = err == nil
	if version != "" {
		record.DatasetVersion = &version
	}
	if err != nil {
		msg := err.Error()
		record.ErrorMessage = &msg
	}
	if logErr := db.LogImport(ctx, record); logErr != nil {
		err = errors.Join(err, fmt.Errorf("record import: %w", logErr))
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Import Summary ===")
	fmt.Printf("Source:              %s\n", label)
	fmt.Printf("Documents imported:  %d\n", count)
	fmt.Printf("Dataset version:     %s\n", version)
	fmt.Printf("Time elapsed:        %v\n", elapsed.Round(time.Millisecond))
	return nil
}

func importDataset(ctx context.Context, db *database.DB, fetcher liturgy.Fetcher, boundaries calendar.Boundaries, logger *slog.Logger) (string, int, error) {
	manifest := liturgy.DefaultManifest()

	// =========================================================================
	// Step 1: Read documents
	// =========================================================================
	docs := make(map[string][]byte)
	for _, p := range manifest.Paths() {
		body, err := fetcher.Fetch(ctx, p)
		if err != nil {
			return "", 0, fmt.Errorf("read %s: %w", p, err)
		}
		docs[p] = body
		logger.Debug("read document", slog.String("path", p), slog.Int("bytes", len(body)))
	}

	// =========================================================================
	// Step 2: Validate
	// =========================================================================
	bundle, err := liturgy.LoadBundle(ctx, fetcher, manifest, boundaries)
	if err != nil {
		return "", len(docs), fmt.Errorf("validate dataset: %w", err)
	}
	for _, w := range bundle.Warnings {
		logger.Warn("dataset conflict", slog.String("detail", w.Message), slog.Any("entries", w.EntryIDs))
	}
	stats := bundle.Stats()
	logger.Info("dataset valid",
		slog.String("version", bundle.Version),
		slog.Any("temporal_entries", stats.Temporal),
		slog.Any("sanctoral_entries", stats.Sanctoral),
	)

	// =========================================================================
	// Step 3: Store
	// =========================================================================
	if err := db.ReplaceDocuments(ctx, docs); err != nil {
		return bundle.Version, len(docs), fmt.Errorf("store documents: %w", err)
	}

	// =========================================================================
	// Step 4: Verify
	// =========================================================================
	stored, err := liturgy.LoadBundle(ctx, db, manifest, boundaries)
	if err != nil {
		return bundle.Version, len(docs), fmt.Errorf("reload from database: %w", err)
	}
	if stored.Version != bundle.Version {
		return bundle.Version, len(docs), fmt.Errorf("stored version %s differs from source %s", stored.Version, bundle.Version)
	}
	return bundle.Version, len(docs), nil
}

func printHistory(ctx context.Context, db *database.DB) error {
	runs, err := db.RecentImports(ctx, 20)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tIMPORTED\tSOURCE\tDOCS\tOK\tVERSION\tERROR")
	for _, r := range runs {
		version, msg := "-", ""
		if r.DatasetVersion != nil {
			version = *r.DatasetVersion
		}
		if r.ErrorMessage != nil {
			msg = *r.ErrorMessage
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%v\t%s\t%s\n",
			r.ID, r.ImportedAt.Format(time.RFC3339), r.Source, r.Documents, r.Success, version, msg)
	}
	return tw.Flush()
}
