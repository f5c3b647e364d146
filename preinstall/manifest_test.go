package preinstall

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest(t *testing.T) {
	cfg, err := ParseManifest([]byte(`
repositoryPath: /opt/templates/packages
preunzipped: true
packages:
  - id: jQuery
    version: 1.4.4
  - id: EntityFramework
    version: 4.1.10331.0
    skipAssemblyReferences: true
`))
	require.NoError(t, err)

	assert.Equal(t, "/opt/templates/packages", cfg.RepositoryPath)
	assert.True(t, cfg.IsPreunzipped)
	require.Len(t, cfg.Packages, 2)
	assert.Equal(t, "jQuery 1.4.4", cfg.Packages[0].String())
	assert.False(t, cfg.Packages[0].SkipAssemblyReferences)
	assert.Equal(t, "EntityFramework", cfg.Packages[1].ID)
	assert.True(t, cfg.Packages[1].SkipAssemblyReferences)
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"missing repository", "packages: []", "repositoryPath is required"},
		{"missing id", "repositoryPath: p\npackages:\n  - version: 1.0", "id is required"},
		{"missing version", "repositoryPath: p\npackages:\n  - id: A", "version is required"},
		{"bad version", "repositoryPath: p\npackages:\n  - id: A\n    version: not-a-version", "A"},
		{"unknown field", "repositoryPath: p\nfeeds: []", "feeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadManifest_RelativeRepository(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preinstall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("repositoryPath: packages\npackages:\n  - id: A\n    version: 1.0.0\n"), 0644))

	cfg, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "packages"), cfg.RepositoryPath)
	assert.False(t, cfg.IsPreunzipped)

	_, err = LoadManifest(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
