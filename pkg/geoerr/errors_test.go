package geoerr

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKinds(t *testing.T) {
	t.Run("sentinels match by kind", func(t *testing.T) {
		err := Validationf("attribute %s has %d values, want %d", "elevation", 2, 3)

		assert.ErrorIs(t, err, ErrValidation)
		assert.NotErrorIs(t, err, ErrFormat)
		assert.Equal(t, Validation, KindOf(err))
		assert.Contains(t, err.Error(), "elevation")
	})

	t.Run("wrapped errors keep their kind", func(t *testing.T) {
		err := fmt.Errorf("failed to combine: %w", ZoneConflictf("zone %d vs %d", 55, 56))

		assert.ErrorIs(t, err, ErrZoneConflict)
		assert.Equal(t, ZoneConflict, KindOf(err))
	})

	t.Run("plain errors have no kind", func(t *testing.T) {
		assert.Equal(t, Kind(0), KindOf(errors.New("boom")))
	})
}

func TestFromOS(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.pts")
		_, err := os.Open(path)
		require.Error(t, err)

		got := FromOS("import", path, err)
		assert.ErrorIs(t, got, ErrFileNotFound)
		assert.ErrorIs(t, got, fs.ErrNotExist)
		assert.Contains(t, got.Error(), path)
	})

	t.Run("permission", func(t *testing.T) {
		got := FromOS("import", "x.csv", fs.ErrPermission)
		assert.ErrorIs(t, got, ErrAccessDenied)
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, FromOS("import", "x.csv", nil))
	})
}

func TestFormatHelp(t *testing.T) {
	err := FormatHelp("bad.csv", errors.New("row 3: value \"abc\" is not numeric"))

	assert.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "1st line:     [column names]")
	assert.Contains(t, err.Error(), "not numeric")
	assert.Equal(t, Format.Template(), templates[Format])
}
