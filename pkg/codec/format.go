package codec

import (
	"path/filepath"
	"strings"

	"geopoints/pkg/geoerr"
)

// Format is one of the supported point file formats.
type Format int

const (
	// FormatPTS is the binary array format, stored as Parquet.
	FormatPTS Format = iota + 1
	// FormatText is the delimited text format.
	FormatText
	// FormatURS is the write-only legacy lat/long listing.
	FormatURS
)

var extensions = map[string]Format{
	".pts": FormatPTS,
	".csv": FormatText,
	".txt": FormatText,
	".urs": FormatURS,
}

func (f Format) String() string {
	switch f {
	case FormatPTS:
		return "pts"
	case FormatText:
		return "text"
	case FormatURS:
		return "urs"
	default:
		return "unknown"
	}
}

// Readable reports whether the format can be imported.
func (f Format) Readable() bool {
	return f == FormatPTS || f == FormatText
}

// FormatFromPath maps a file suffix onto its format.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extensions[ext]
	if !ok {
		return 0, geoerr.Unsupported("format", path, ext)
	}
	return f, nil
}
