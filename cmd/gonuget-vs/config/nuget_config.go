// Package config reads the NuGet.config settings the CLI needs: package
// sources and the folders packages are installed into.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Well-known keys of the <config> section.
const (
	KeyRepositoryPath       = "repositoryPath"
	KeyGlobalPackagesFolder = "globalPackagesFolder"
)

// NuGetConfig represents a NuGet.config file
type NuGetConfig struct {
	XMLName                xml.Name                `xml:"configuration"`
	PackageSources         *PackageSources         `xml:"packageSources"`
	DisabledPackageSources *DisabledPackageSources `xml:"disabledPackageSources,omitempty"`
	Config                 *Section                `xml:"config"`

	// path is the file the config was loaded from.
	path string
}

// PackageSources contains package source definitions
type PackageSources struct {
	Clear bool            `xml:"clear"`
	Add   []PackageSource `xml:"add"`
}

// PackageSource represents a package source
type PackageSource struct {
	Key             string `xml:"key,attr"`
	Value           string `xml:"value,attr"`
	ProtocolVersion string `xml:"protocolVersion,attr,omitempty"`
	Enabled         string `xml:"enabled,attr,omitempty"`
}

// IsRemote reports whether the source is an HTTP feed.
func (s PackageSource) IsRemote() bool {
	v := strings.ToLower(s.Value)
	return strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")
}

// DisabledPackageSources contains disabled package source definitions
type DisabledPackageSources struct {
	Add []Item `xml:"add"`
}

// Section contains configuration settings
type Section struct {
	Clear bool   `xml:"clear"`
	Add   []Item `xml:"add"`
}

// Item represents a configuration key-value pair
type Item struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

// LoadNuGetConfig loads a NuGet.config file
func LoadNuGetConfig(path string) (*NuGetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := ParseNuGetConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.path = path
	return cfg, nil
}

// LoadOrEmpty loads path, returning an empty config when the file does not
// exist or path is empty.
func LoadOrEmpty(path string) (*NuGetConfig, error) {
	if path == "" {
		return &NuGetConfig{}, nil
	}
	cfg, err := LoadNuGetConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return &NuGetConfig{path: path}, nil
	}
	return cfg, err
}

// ParseNuGetConfig parses NuGet.config XML from a reader
func ParseNuGetConfig(r io.Reader) (*NuGetConfig, error) {
	var cfg NuGetConfig
	if err := xml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config XML: %w", err)
	}
	return &cfg, nil
}

// Path returns the file the config was loaded from, if any.
func (c *NuGetConfig) Path() string { return c.path }

// GetConfigValue gets a configuration value by key
func (c *NuGetConfig) GetConfigValue(key string) string {
	if c.Config == nil {
		return ""
	}
	for _, item := range c.Config.Add {
		if strings.EqualFold(item.Key, key) {
			return item.Value
		}
	}
	return ""
}

// ResolvePath returns the value of a path setting resolved against the
// config file's folder, or "" when the key is not set.
func (c *NuGetConfig) ResolvePath(key string) string {
	v := c.GetConfigValue(key)
	if v == "" {
		return ""
	}
	v = os.ExpandEnv(v)
	if filepath.IsAbs(v) || c.path == "" {
		return v
	}
	return filepath.Join(filepath.Dir(c.path), v)
}

// IsSourceDisabled checks if a source is disabled
func (c *NuGetConfig) IsSourceDisabled(key string) bool {
	if c.DisabledPackageSources == nil {
		return false
	}
	for _, disabled := range c.DisabledPackageSources.Add {
		if strings.EqualFold(disabled.Key, key) && strings.EqualFold(disabled.Value, "true") {
			return true
		}
	}
	return false
}

// GetEnabledPackageSources returns all enabled package sources. A source
// is disabled by the disabledPackageSources section or enabled="false".
// Relative local sources are resolved against the config file's folder.
func (c *NuGetConfig) GetEnabledPackageSources() []PackageSource {
	if c.PackageSources == nil {
		return nil
	}

	var enabled []PackageSource
	for _, source := range c.PackageSources.Add {
		if c.IsSourceDisabled(source.Key) || strings.EqualFold(source.Enabled, "false") {
			continue
		}
		if !source.IsRemote() && !filepath.IsAbs(source.Value) && c.path != "" {
			source.Value = filepath.Join(filepath.Dir(c.path), source.Value)
		}
		enabled = append(enabled, source)
	}
	return enabled
}

// FindConfigFileFrom returns the nearest NuGet.config at or above
// startDir, or "" when there is none.
func FindConfigFileFrom(startDir string) string {
	dir := startDir
	for {
		for _, name := range []string{"NuGet.Config", "NuGet.config", "nuget.config"} {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
