package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"geopoints/pkg/blocking"
	"geopoints/pkg/codec"
	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"

	"github.com/google/uuid"
)

// PointsRepository serves point files from a single data directory.
type PointsRepository struct {
	dir       string
	opts      codec.ImportOptions
	blockSize int
}

// FileInfo describes a point file of the repository.
type FileInfo struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Size   int64  `json:"size"`
}

func NewPointsRepository(dir string, opts codec.ImportOptions, blockSize int) *PointsRepository {
	if blockSize <= 0 {
		blockSize = blocking.DefaultBlockSize
	}
	return &PointsRepository{
		dir:       dir,
		opts:      opts,
		blockSize: blockSize,
	}
}

func (r *PointsRepository) Dir() string {
	return r.dir
}

// Path resolves a file name inside the data directory. Names that would
// escape it are rejected.
func (r *PointsRepository) Path(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", geoerr.Validationf("invalid file name %q", name)
	}
	return filepath.Join(r.dir, name), nil
}

// List returns the point files of the data directory sorted by name.
func (r *PointsRepository) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, geoerr.FromOS("list", r.dir, err)
	}

	var out []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		format, err := codec.FormatFromPath(e.Name())
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", e.Name(), err)
		}
		out = append(out, FileInfo{Name: e.Name(), Format: format.String(), Size: info.Size()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Load imports a whole file.
func (r *PointsRepository) Load(name string) (*dataset.Dataset, error) {
	path, opts, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return codec.Import(path, opts)
}

// OpenBlocks starts a blocked read of a file.
func (r *PointsRepository) OpenBlocks(name string) (*blocking.Reader, error) {
	path, opts, err := r.resolve(name)
	if err != nil {
		return nil, err
	}
	return blocking.Open(path, blocking.Options{
		BlockSize:        r.blockSize,
		Delimiter:        opts.Delimiter,
		DefaultAttribute: opts.DefaultAttribute,
		Projector:        opts.Projector,
	})
}

// resolve returns the path of name and its import options after the
// manifest overrides.
func (r *PointsRepository) resolve(name string) (string, codec.ImportOptions, error) {
	path, err := r.Path(name)
	if err != nil {
		return "", codec.ImportOptions{}, err
	}

	m, err := LoadManifest(r.dir)
	if err != nil {
		return "", codec.ImportOptions{}, err
	}

	return path, m.apply(name, r.opts), nil
}

// Save exports ds under name, creating the data directory when needed.
func (r *PointsRepository) Save(ds *dataset.Dataset, name string, opts codec.ExportOptions) error {
	path, err := r.Path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	return codec.Export(ds, path, opts)
}

// NewName returns a fresh file name with the given extension.
func (r *PointsRepository) NewName(ext string) string {
	return fmt.Sprintf("points_%s%s", uuid.NewString(), ext)
}
