package repository

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/willibrandon/gonuget-vs/packaging"
	"github.com/willibrandon/gonuget-vs/version"
)

// PackagesConfigFileName is the per-project package list.
const PackagesConfigFileName = "packages.config"

// PackageReference is one <package> entry of a packages.config file.
type PackageReference struct {
	ID              string `xml:"id,attr"`
	Version         string `xml:"version,attr"`
	TargetFramework string `xml:"targetFramework,attr,omitempty"`
}

// ParsedVersion parses the entry version.
func (r PackageReference) ParsedVersion() (*version.NuGetVersion, error) {
	return version.Parse(r.Version)
}

type packagesConfigXML struct {
	XMLName  xml.Name           `xml:"packages"`
	Packages []PackageReference `xml:"package"`
}

// PackageReferenceFile reads and writes a packages.config file. A missing
// file is an empty list; removing the last entry deletes the file.
type PackageReferenceFile struct {
	path string
}

// NewPackageReferenceFile binds to the packages.config at path.
func NewPackageReferenceFile(path string) *PackageReferenceFile {
	return &PackageReferenceFile{path: path}
}

// Path returns the file path.
func (f *PackageReferenceFile) Path() string { return f.path }

// References returns every entry. Entries without an id or with an
// unparsable version are dropped.
func (f *PackageReferenceFile) References() ([]PackageReference, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer func() { _ = file.Close() }()

	refs, err := decodePackagesConfig(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return refs, nil
}

func decodePackagesConfig(r io.Reader) ([]PackageReference, error) {
	var doc packagesConfigXML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, err
	}

	refs := make([]PackageReference, 0, len(doc.Packages))
	for _, ref := range doc.Packages {
		if strings.TrimSpace(ref.ID) == "" {
			continue
		}
		if _, err := version.Parse(ref.Version); err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// EntryExists reports whether id at ver is listed.
func (f *PackageReferenceFile) EntryExists(id string, ver *version.NuGetVersion) (bool, error) {
	refs, err := f.References()
	if err != nil {
		return false, err
	}
	return indexOf(refs, id, ver) >= 0, nil
}

// AddEntry lists id at ver, replacing the target framework of an existing
// entry.
func (f *PackageReferenceFile) AddEntry(id string, ver *version.NuGetVersion, targetFramework string) error {
	refs, err := f.References()
	if err != nil {
		return err
	}

	if i := indexOf(refs, id, ver); i >= 0 {
		if refs[i].TargetFramework == targetFramework {
			return nil
		}
		refs[i].TargetFramework = targetFramework
	} else {
		refs = append(refs, PackageReference{ID: id, Version: ver.String(), TargetFramework: targetFramework})
	}
	return f.save(refs)
}

// DeleteEntry unlists id at ver. It reports whether the file is now empty
// (and therefore deleted).
func (f *PackageReferenceFile) DeleteEntry(id string, ver *version.NuGetVersion) (empty bool, err error) {
	refs, err := f.References()
	if err != nil {
		return false, err
	}

	i := indexOf(refs, id, ver)
	if i < 0 {
		return len(refs) == 0, nil
	}
	refs = append(refs[:i], refs[i+1:]...)
	if len(refs) == 0 {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return false, fmt.Errorf("delete %s: %w", f.path, err)
		}
		return true, nil
	}
	return false, f.save(refs)
}

func (f *PackageReferenceFile) save(refs []PackageReference) error {
	sortReferences(refs)

	file, err := packaging.CreateFile(f.path)
	if err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := encodePackagesConfig(file, refs); err != nil {
		_ = file.Close()
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return file.Close()
}

func encodePackagesConfig(w io.Writer, refs []PackageReference) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(packagesConfigXML{Packages: refs}); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func indexOf(refs []PackageReference, id string, ver *version.NuGetVersion) int {
	for i, ref := range refs {
		if !strings.EqualFold(ref.ID, id) {
			continue
		}
		v, err := ref.ParsedVersion()
		if err == nil && v.Compare(ver) == 0 {
			return i
		}
	}
	return -1
}

func sortReferences(refs []PackageReference) {
	sort.SliceStable(refs, func(i, j int) bool {
		return strings.ToLower(refs[i].ID) < strings.ToLower(refs[j].ID)
	})
}

// projectConfigPath returns the packages.config path for a project folder.
func projectConfigPath(projectDir string) string {
	return filepath.Join(projectDir, PackagesConfigFileName)
}
