package preinstall

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/willibrandon/gonuget-vs/version"
)

// manifest is the YAML form of a Configuration:
//
//	repositoryPath: packages
//	preunzipped: true
//	packages:
//	  - id: jQuery
//	    version: 1.4.4
//	  - id: EntityFramework
//	    version: 4.1.10331.0
//	    skipAssemblyReferences: true
type manifest struct {
	RepositoryPath string          `yaml:"repositoryPath"`
	Preunzipped    bool            `yaml:"preunzipped"`
	Packages       []manifestEntry `yaml:"packages"`
}

type manifestEntry struct {
	ID                     string `yaml:"id"`
	Version                string `yaml:"version"`
	SkipAssemblyReferences bool   `yaml:"skipAssemblyReferences"`
}

// LoadManifest reads a preinstall Configuration from a YAML file. A
// relative repositoryPath is resolved against the manifest's folder.
func LoadManifest(path string) (Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("reading preinstall manifest: %w", err)
	}
	cfg, err := ParseManifest(data)
	if err != nil {
		return Configuration{}, fmt.Errorf("parsing preinstall manifest %s: %w", path, err)
	}
	if !filepath.IsAbs(cfg.RepositoryPath) {
		cfg.RepositoryPath = filepath.Join(filepath.Dir(path), cfg.RepositoryPath)
	}
	return cfg, nil
}

// ParseManifest decodes a YAML manifest. Unknown fields are rejected.
func ParseManifest(data []byte) (Configuration, error) {
	var m manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return Configuration{}, err
	}
	if m.RepositoryPath == "" {
		return Configuration{}, fmt.Errorf("repositoryPath is required")
	}

	cfg := Configuration{
		RepositoryPath: m.RepositoryPath,
		IsPreunzipped:  m.Preunzipped,
		Packages:       make([]Info, 0, len(m.Packages)),
	}
	for i, e := range m.Packages {
		if e.ID == "" {
			return Configuration{}, fmt.Errorf("packages[%d]: id is required", i)
		}
		if e.Version == "" {
			return Configuration{}, fmt.Errorf("packages[%d] %s: version is required", i, e.ID)
		}
		v, err := version.Parse(e.Version)
		if err != nil {
			return Configuration{}, fmt.Errorf("packages[%d] %s: %w", i, e.ID, err)
		}
		cfg.Packages = append(cfg.Packages, Info{ID: e.ID, Version: v, SkipAssemblyReferences: e.SkipAssemblyReferences})
	}
	return cfg, nil
}
