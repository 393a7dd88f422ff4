package dataset

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/cognicore/lica/pkg/lica/internalerr"
)

//go:embed data/*.json
var packaged embed.FS

// ResourceLoadError reports a dataset that is missing or corrupt
type ResourceLoadError struct {
	Name string
	Err  error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Name, e.Err)
}

func (e *ResourceLoadError) Unwrap() error {
	return e.Err
}

// Is matches internalerr.ErrResourceLoad.
func (e *ResourceLoadError) Is(target error) bool {
	return target == internalerr.ErrResourceLoad
}

// FSLoader reads datasets from a file system
type FSLoader struct {
	FS fs.FS
}

// Load implements Loader.
func (l FSLoader) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(l.FS, name)
}

// Dir reads datasets from a directory
func Dir(path string) FSLoader {
	return FSLoader{FS: os.DirFS(path)}
}

// Embedded reads the reference datasets packaged with the module.
func Embedded() FSLoader {
	sub, err := fs.Sub(packaged, "data")
	if err != nil {
		panic(err)
	}
	return FSLoader{FS: sub}
}
