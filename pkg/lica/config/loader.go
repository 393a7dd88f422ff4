package config

import (
	"context"
	"fmt"

	"github.com/cognicore/lica/pkg/lica"
	"github.com/cognicore/lica/pkg/lica/dataset"
	"github.com/cognicore/lica/pkg/lica/store/sqlite"
)

// Loader resolves where the reference datasets come from and builds a
// classifier from them. DatabasePath wins over DataDir; with neither set the
// packaged datasets are used.
type Loader struct {
	DataDir      string
	DatabasePath string
	CacheSize    int
	FoldAccents  bool
}

// NewLoader creates a loader from a Config
func NewLoader(cfg *Config) Loader {
	return Loader{
		DataDir:      cfg.DataDir,
		DatabasePath: cfg.Database,
		CacheSize:    cfg.CacheSize,
		FoldAccents:  cfg.FoldAccents,
	}
}

// Source describes where datasets are read from
func (l Loader) Source() string {
	switch {
	case l.DatabasePath != "":
		return "sqlite:" + l.DatabasePath
	case l.DataDir != "":
		return "dir:" + l.DataDir
	default:
		return "packaged"
	}
}

// Load builds a classifier from the configured source
func (l Loader) Load(ctx context.Context) (*lica.Classifier, error) {
	opts := lica.Options{
		CacheSize:   l.CacheSize,
		FoldAccents: l.FoldAccents,
	}

	if l.DatabasePath != "" {
		st, err := sqlite.OpenSQLite(ctx, l.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("open dataset store: %w", err)
		}
		defer st.Close()
		return lica.Build(ctx, st, opts)
	}

	if l.DataDir != "" {
		return lica.Build(ctx, dataset.Dir(l.DataDir), opts)
	}

	return lica.Build(ctx, dataset.Embedded(), opts)
}
