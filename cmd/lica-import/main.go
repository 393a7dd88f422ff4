package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/cognicore/lica/internal/logging"
	"github.com/cognicore/lica/pkg/lica"
	"github.com/cognicore/lica/pkg/lica/dataset"
	"github.com/cognicore/lica/pkg/lica/store"
	"github.com/cognicore/lica/pkg/lica/store/sqlite"
)

func main() {
	var (
		dbPath   = flag.String("db", "", "Database path (required)")
		dataDir  = flag.String("data", "", "Dataset directory (default: packaged data)")
		logLevel = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	log, err := logging.New(*logLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *dbPath == "" {
		log.Fatal().Msg("--db required")
	}

	if err := run(context.Background(), log, *dbPath, *dataDir); err != nil {
		log.Fatal().Err(err).Msg("import failed")
	}
}

// run validates the source datasets, then copies them into the database.
func run(ctx context.Context, log zerolog.Logger, dbPath, dataDir string) error {
	var src dataset.Loader = dataset.Embedded()
	source := "packaged"
	if dataDir != "" {
		src = dataset.Dir(dataDir)
		source = dataDir
	}

	// refuse to import datasets that would not build
	c, err := lica.Build(ctx, src, lica.Options{})
	if err != nil {
		return fmt.Errorf("validate %s: %w", source, err)
	}
	for _, col := range c.Index().Collisions {
		log.Warn().
			Str("keyword", col.Keyword).
			Stringer("kept", col.Kept).
			Stringer("dropped", col.Dropped).
			Msg("keyword collision")
	}

	st, err := sqlite.OpenSQLite(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := store.Import(ctx, st, src); err != nil {
		return err
	}

	names, err := st.Names(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("source", source).Str("db", dbPath).Strs("datasets", names).Msg("import complete")
	return nil
}
