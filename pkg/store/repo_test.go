package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"geopoints/pkg/codec"
	"geopoints/pkg/dataset"
	"geopoints/pkg/geoerr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointsRepository(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	repo := NewPointsRepository(dir, codec.ImportOptions{}, 2)

	d, err := dataset.New(dataset.Params{
		Points:     [][]float64{{1, 2}, {3, 4}, {5, 6}},
		Attributes: []float64{1, 2, 3},
	})
	require.NoError(t, err)

	require.NoError(t, repo.Save(d, "a.pts", codec.ExportOptions{}))
	require.NoError(t, repo.Save(d, "b.csv", codec.ExportOptions{}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))

	files, err := repo.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.pts", files[0].Name)
	assert.Equal(t, "pts", files[0].Format)
	assert.Equal(t, "b.csv", files[1].Name)
	assert.Equal(t, "text", files[1].Format)

	back, err := repo.Load("b.csv")
	require.NoError(t, err)
	assert.Equal(t, d.GetDataPoints(true), back.GetDataPoints(true))

	r, err := repo.OpenBlocks("a.pts")
	require.NoError(t, err)
	var sizes []int
	for ds, err := range r.All() {
		require.NoError(t, err)
		sizes = append(sizes, ds.Len())
	}
	assert.Equal(t, []int{2, 1}, sizes)

	t.Run("names cannot escape the directory", func(t *testing.T) {
		for _, name := range []string{"../a.pts", "/etc/passwd.csv", ""} {
			_, err := repo.Load(name)
			assert.ErrorIs(t, err, geoerr.ErrValidation, name)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := repo.Load("c.pts")
		assert.ErrorIs(t, err, geoerr.ErrFileNotFound)
	})

	name := repo.NewName(".pts")
	assert.True(t, strings.HasPrefix(name, "points_"))
	assert.True(t, strings.HasSuffix(name, ".pts"))
	assert.NotEqual(t, name, repo.NewName(".pts"))
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	repo := NewPointsRepository(dir, codec.ImportOptions{}, 0)

	data := "x y depth friction\n1 2 3 0.1\n4 5 6 0.2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "survey.txt"), []byte(data), 0o644))

	t.Run("without manifest the default delimiter fails", func(t *testing.T) {
		_, err := repo.Load("survey.txt")
		assert.ErrorIs(t, err, geoerr.ErrFormat)
	})

	manifest := "files:\n  survey.txt:\n    delimiter: \" \"\n    default_attribute: friction\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte(manifest), 0o644))

	d, err := repo.Load("survey.txt")
	require.NoError(t, err)
	assert.Equal(t, "friction", d.GetDefaultAttribute())

	values, err := d.GetAttributes("")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, values)

	files, err := repo.List()
	require.NoError(t, err)
	require.Len(t, files, 1)

	t.Run("broken manifest", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestName), []byte("files: [\n"), 0o644))
		_, err := repo.Load("survey.txt")
		assert.Error(t, err)
	})
}
