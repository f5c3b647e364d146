package packaging

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/willibrandon/gonuget-vs/core"
)

// OPC part names and namespaces
const (
	OPCRelationshipsPath      = "_rels/.rels"
	OPCManifestRelType        = "http://schemas.microsoft.com/packaging/2010/07/manifest"
	OPCContentTypesNamespace  = "http://schemas.openxmlformats.org/package/2006/content-types"
	OPCRelationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
	RelationshipContentType   = "application/vnd.openxmlformats-package.relationships+xml"
	DefaultContentType        = "application/octet"
)

type contentTypesXML struct {
	XMLName  xml.Name             `xml:"Types"`
	Xmlns    string               `xml:"xmlns,attr"`
	Defaults []contentTypeDefault `xml:"Default"`
}

type contentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type relationshipsXML struct {
	XMLName       xml.Name       `xml:"Relationships"`
	Xmlns         string         `xml:"xmlns,attr"`
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
	ID     string `xml:"Id,attr"`
}

// WritePackage writes pkg as a .nupkg archive to w: the generated
// manifest, every payload file read through OpenFile, and the OPC parts.
func WritePackage(w io.Writer, pkg *core.Package) error {
	zipWriter := zip.NewWriter(w)

	nuspecName := pkg.ID() + ManifestExtension
	entry, err := zipWriter.Create(nuspecName)
	if err != nil {
		return fmt.Errorf("create nuspec entry: %w", err)
	}
	if err := NewNuspec(pkg).Write(entry); err != nil {
		return err
	}

	files := pkg.Files()
	for _, name := range files {
		if err := writeEntry(zipWriter, pkg, name); err != nil {
			return fmt.Errorf("write file %s: %w", name, err)
		}
	}

	if err := writeXMLPart(zipWriter, OPCRelationshipsPath, &relationshipsXML{
		Xmlns: OPCRelationshipsNamespace,
		Relationships: []relationship{{
			Type:   OPCManifestRelType,
			Target: "/" + nuspecName,
			ID:     "R" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		}},
	}); err != nil {
		return err
	}
	if err := writeXMLPart(zipWriter, ContentTypesFile, contentTypes(append(files, nuspecName))); err != nil {
		return err
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("close ZIP: %w", err)
	}
	return nil
}

// SavePackage writes pkg as a .nupkg file at path.
func SavePackage(path string, pkg *core.Package) error {
	file, err := CreateFile(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if err := WritePackage(file, pkg); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func writeEntry(zipWriter *zip.Writer, pkg *core.Package, name string) error {
	src, err := OpenFile(pkg, name)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := zipWriter.Create(NormalizePath(name))
	if err != nil {
		return fmt.Errorf("create ZIP entry: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("copy content: %w", err)
	}
	return nil
}

func writeXMLPart(zipWriter *zip.Writer, name string, v any) error {
	w, err := zipWriter.Create(name)
	if err != nil {
		return fmt.Errorf("create %s entry: %w", name, err)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("write XML header: %w", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return nil
}

func contentTypes(files []string) *contentTypesXML {
	ct := &contentTypesXML{
		Xmlns:    OPCContentTypesNamespace,
		Defaults: []contentTypeDefault{{Extension: "rels", ContentType: RelationshipContentType}},
	}

	extensions := make(map[string]bool)
	for _, f := range files {
		if ext := strings.TrimPrefix(strings.ToLower(path.Ext(f)), "."); ext != "" && ext != "rels" {
			extensions[ext] = true
		}
	}
	sorted := make([]string, 0, len(extensions))
	for ext := range extensions {
		sorted = append(sorted, ext)
	}
	sort.Strings(sorted)
	for _, ext := range sorted {
		ct.Defaults = append(ct.Defaults, contentTypeDefault{Extension: ext, ContentType: DefaultContentType})
	}
	return ct
}

// CopyPackage copies the backing .nupkg of pkg to dst, or writes a fresh
// archive when pkg is not backed by a .nupkg file.
func CopyPackage(dst string, pkg *core.Package) error {
	if pkg.Path == "" || !strings.EqualFold(path.Ext(pkg.Path), PackageExtension) {
		return SavePackage(dst, pkg)
	}
	if sameFile(pkg.Path, dst) {
		return nil
	}

	src, err := os.Open(pkg.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", pkg.Path, err)
	}
	defer func() { _ = src.Close() }()

	out, err := CreateFile(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy package: %w", err)
	}
	return out.Close()
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
