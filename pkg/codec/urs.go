package codec

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"

	"geopoints/pkg/geom"
)

// DefaultURSDelimiter separates the fields of a legacy listing.
const DefaultURSDelimiter = " "

// WriteURS writes the point count and then one "lat lon index" line per point.
func WriteURS(w io.Writer, latLong []geom.Point, delimiter string) error {
	if delimiter == "" {
		delimiter = DefaultURSDelimiter
	}

	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "%d\n", len(latLong)); err != nil {
		return err
	}

	for i, p := range latLong {
		if _, err := fmt.Fprintf(bw, "%s%s%s%s%d\n",
			formatRounded(p[0]), delimiter, formatRounded(p[1]), delimiter, i); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// formatRounded rounds to 7 decimals.
func formatRounded(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e7)/1e7, 'f', -1, 64)
}
