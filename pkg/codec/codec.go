package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"
	"geopoints/pkg/geom"
	"geopoints/pkg/projection"

	"github.com/rs/zerolog/log"
)

// ImportOptions controls Import and OpenReader.
type ImportOptions struct {
	// Delimiter of text files. Defaults to ",".
	Delimiter string

	DefaultAttribute string

	// Projector converts lat/long text columns. Defaults to projection.Default.
	Projector projection.Projector

	// BlockSize is the parquet read batch size.
	BlockSize int64
}

// ExportOptions controls Export. The zero value writes absolute coordinates.
type ExportOptions struct {
	// Relative keeps the stored relative points and the full geo reference.
	// Only the binary format supports it.
	Relative bool

	// AsLatLong writes (lat, long) pairs. Text and legacy formats only.
	AsLatLong bool

	// NorthernHemisphere selects the hemisphere for AsLatLong.
	NorthernHemisphere bool

	Delimiter string
}

// BlockReader yields records of bounded size from an open file.
type BlockReader interface {
	// Next returns up to n rows, or io.EOF when the data is exhausted.
	Next(n int) (dataset.Record, error)
	// Total is the row count when the format records it.
	Total() (int64, bool)
	AttributeNames() []string
	Close() error
}

// OpenReader opens a readable points file for incremental reads.
func OpenReader(path string, opts ImportOptions) (BlockReader, Format, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, 0, err
	}

	switch format {
	case FormatPTS:
		r, err := OpenPTS(path, opts.BlockSize)
		if err != nil {
			return nil, 0, err
		}
		return r, format, nil
	case FormatText:
		r, err := OpenText(path, opts.Delimiter, opts.Projector)
		if err != nil {
			return nil, 0, err
		}
		return r, format, nil
	default:
		return nil, 0, geoerr.Unsupported("import", path, format.String()+" (write only)")
	}
}

// Import reads a whole points file into a dataset.
func Import(path string, opts ImportOptions) (*dataset.Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("path", path).Str("format", format.String()).Msg("importing points file")

	var rec dataset.Record
	switch format {
	case FormatPTS:
		rec, err = readPTS(path)
	case FormatText:
		rec, err = readText(path, opts.Delimiter, opts.Projector)
	default:
		return nil, geoerr.Unsupported("import", path, format.String()+" (write only)")
	}
	if err != nil {
		return nil, err
	}

	ds, err := dataset.FromRecord(rec, opts.DefaultAttribute)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("path", path).Int("points", ds.Len()).Msg("imported points file")

	return ds, nil
}

// Export writes ds to path in the format given by its extension.
func Export(ds *dataset.Dataset, path string, opts ExportOptions) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if opts.Relative && format != FormatPTS {
		return geoerr.Validationf("%s files can only be written with absolute coordinates", format)
	}
	if opts.AsLatLong && format == FormatPTS {
		return geoerr.Validationf("%s files cannot be written as lat/long", format)
	}
	if format == FormatURS && !opts.AsLatLong {
		return geoerr.Validationf("%s files hold lats and longs, export them with AsLatLong", format)
	}

	var latLong []geom.Point
	if opts.AsLatLong {
		latLong, err = ds.GetLatLong(!opts.NorthernHemisphere)
		if err != nil {
			return err
		}
	}

	// Written beside the target and renamed into place.
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return geoerr.FromOS("export", path, err)
	}
	tmp := f.Name()

	switch format {
	case FormatPTS:
		err = WritePTS(f, ds, !opts.Relative)
	case FormatText:
		header := [2]string{"x", "y"}
		points := ds.GetDataPoints(true)
		if opts.AsLatLong {
			header = [2]string{"latitude", "longitude"}
			points = latLong
		}
		err = WriteText(f, header, points, ds.AttributeNames(), ds.GetAllAttributes(), opts.Delimiter)
	case FormatURS:
		err = WriteURS(f, latLong, opts.Delimiter)
	}
	// The parquet writer closes the file itself.
	if cerr := f.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) && err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp, 0o644)
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	log.Debug().Str("path", path).Int("points", ds.Len()).Msg("exported points file")

	return nil
}
