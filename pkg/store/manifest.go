package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"geopoints/pkg/codec"

	"gopkg.in/yaml.v3"
)

// ManifestName is the optional per-directory file holding import overrides.
const ManifestName = "points.yaml"

// Manifest overrides the repository import options per file:
//
//	files:
//	  survey.txt:
//	    delimiter: " "
//	    default_attribute: depth
type Manifest struct {
	Files map[string]FileOptions `yaml:"files"`
}

type FileOptions struct {
	Delimiter        string `yaml:"delimiter,omitempty"`
	DefaultAttribute string `yaml:"default_attribute,omitempty"`
}

// LoadManifest reads the manifest of dir. A missing manifest is empty.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if errors.Is(err, fs.ErrNotExist) {
		return &Manifest{}, nil
	}
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ManifestName, err)
	}

	return &m, nil
}

// apply returns base with the overrides for name.
func (m *Manifest) apply(name string, base codec.ImportOptions) codec.ImportOptions {
	fo, ok := m.Files[name]
	if !ok {
		return base
	}
	if fo.Delimiter != "" {
		base.Delimiter = fo.Delimiter
	}
	if fo.DefaultAttribute != "" {
		base.DefaultAttribute = fo.DefaultAttribute
	}
	return base
}
