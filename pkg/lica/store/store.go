package store

import (
	"context"
	"fmt"

	"github.com/cognicore/lica/pkg/lica/dataset"
)

// Store persists raw reference datasets by name. Every Store is also a
// dataset.Loader, so a classifier can be built straight from it.
type Store interface {
	dataset.Loader
	Put(ctx context.Context, name string, body []byte) error
	Names(ctx context.Context) ([]string, error)
	Close() error
}

// Import copies datasets from src into dst. With no names, the four datasets
// a classifier needs are copied.
func Import(ctx context.Context, dst Store, src dataset.Loader, names ...string) error {
	if len(names) == 0 {
		names = dataset.Names()
	}
	for _, name := range names {
		body, err := src.Load(ctx, name)
		if err != nil {
			return &dataset.ResourceLoadError{Name: name, Err: err}
		}
		if err := dst.Put(ctx, name, body); err != nil {
			return fmt.Errorf("store %s: %w", name, err)
		}
	}
	return nil
}
