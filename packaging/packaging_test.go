package packaging

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/willibrandon/gonuget-vs/core"
	"github.com/willibrandon/gonuget-vs/version"
)

const sampleNuspec = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata>
    <id>jQuery.UI</id>
    <version>1.8.20</version>
    <title>jQuery UI</title>
    <authors>jQuery Foundation, Inc.</authors>
    <description>UI widgets</description>
    <dependencies>
      <group targetFramework="net40">
        <dependency id="jQuery" version="[1.4.4, 1.9)" />
      </group>
      <group>
        <dependency id="jQuery" version="1.4.4" />
        <dependency id="Modernizr" />
      </group>
    </dependencies>
    <frameworkAssemblies>
      <frameworkAssembly assemblyName="System.Web" targetFramework="net40" />
      <frameworkAssembly assemblyName="System.Web" targetFramework="net45" />
    </frameworkAssemblies>
  </metadata>
</package>`

func TestParseNuspec(t *testing.T) {
	nuspec, err := ParseNuspec(strings.NewReader(sampleNuspec))
	if err != nil {
		t.Fatalf("ParseNuspec() error = %v", err)
	}

	identity, err := nuspec.Identity()
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if identity.ID != "jQuery.UI" || identity.Version.String() != "1.8.20" {
		t.Errorf("Identity() = %v", identity)
	}

	deps, err := nuspec.Dependencies()
	if err != nil {
		t.Fatalf("Dependencies() error = %v", err)
	}
	if len(deps) != 2 {
		t.Fatalf("Dependencies() = %v, want 2 distinct ids", deps)
	}
	if deps[0].ID != "jQuery" || deps[0].VersionRange.String() != "[1.4.4, 1.9.0)" {
		t.Errorf("first dependency = %v, want first group to win", deps[0])
	}
	if deps[1].VersionRange != nil {
		t.Errorf("Modernizr range = %v, want nil", deps[1].VersionRange)
	}

	if got := nuspec.FrameworkAssemblyNames(); !reflect.DeepEqual(got, []string{"System.Web"}) {
		t.Errorf("FrameworkAssemblyNames() = %v", got)
	}
	if got := nuspec.Authors(); !reflect.DeepEqual(got, []string{"jQuery Foundation", "Inc."}) {
		t.Errorf("Authors() = %v", got)
	}
}

func TestParseNuspec_MissingID(t *testing.T) {
	_, err := ParseNuspec(strings.NewReader(`<package><metadata><version>1.0</version></metadata></package>`))
	if !errors.Is(err, ErrInvalidPackage) {
		t.Errorf("ParseNuspec() error = %v, want ErrInvalidPackage", err)
	}
}

func TestClassifyFiles(t *testing.T) {
	got := ClassifyFiles([]string{
		`lib\net40\A.dll`,
		"lib/net40/A.xml",
		"content/Scripts/a.js",
		"tools/install.ps1",
		"NativeBinaries/x86/sqlite.dll",
		"build/A.targets",
		"_rels/.rels",
		"[Content_Types].xml",
		"A.nuspec",
	})

	want := Contents{
		AssemblyReferences: []string{"lib/net40/A.dll"},
		ContentFiles:       []string{"content/Scripts/a.js"},
		ToolFiles:          []string{"tools/install.ps1"},
		NativeBinaries:     []string{"NativeBinaries/x86/sqlite.dll"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ClassifyFiles() = %+v, want %+v", got, want)
	}

	if ContentTarget("content/Scripts/a.js") != "Scripts/a.js" {
		t.Errorf("ContentTarget() = %q", ContentTarget("content/Scripts/a.js"))
	}
	if NativeTarget("NativeBinaries/x86/sqlite.dll") != "x86/sqlite.dll" {
		t.Errorf("NativeTarget() = %q", NativeTarget("NativeBinaries/x86/sqlite.dll"))
	}
}

func TestValidatePackagePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"lib/net40/A.dll", false},
		{"content/..hidden/file.txt", false},
		{"../evil.dll", true},
		{`content\..\..\evil`, true},
		{"/abs/path", true},
		{"  ", true},
	}

	for _, tt := range tests {
		err := ValidatePackagePath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePackagePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}

func samplePackage() *core.Package {
	return &core.Package{
		Identity:           core.NewPackageIdentity("Sample", version.MustParse("1.0.0")),
		Description:        "sample",
		Authors:            []string{"me"},
		Dependencies:       []core.PackageDependency{{ID: "Dep", VersionRange: version.MustParseRange("1.0")}},
		AssemblyReferences: []string{"lib/net40/Sample.dll"},
		ContentFiles:       []string{"content/readme.txt"},
		ToolFiles:          []string{"tools/install.ps1"},
	}
}

func TestWritePackage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Sample.1.0.0.nupkg")

	if err := SavePackage(path, samplePackage()); err != nil {
		t.Fatalf("SavePackage() error = %v", err)
	}

	pkg, err := ReadPackage(path)
	if err != nil {
		t.Fatalf("ReadPackage() error = %v", err)
	}
	if pkg.Path != path {
		t.Errorf("Path = %q, want %q", pkg.Path, path)
	}
	if !pkg.Identity.Equals(samplePackage().Identity) {
		t.Errorf("Identity = %v", pkg.Identity)
	}
	if !reflect.DeepEqual(pkg.AssemblyReferences, []string{"lib/net40/Sample.dll"}) ||
		!reflect.DeepEqual(pkg.ContentFiles, []string{"content/readme.txt"}) ||
		!reflect.DeepEqual(pkg.ToolFiles, []string{"tools/install.ps1"}) {
		t.Errorf("files = %v", pkg.Files())
	}
	if len(pkg.Dependencies) != 1 || pkg.Dependencies[0].ID != "Dep" {
		t.Errorf("Dependencies = %v", pkg.Dependencies)
	}

	rc, err := OpenFile(pkg, "content/readme.txt")
	if err != nil {
		t.Fatalf("OpenFile() error = %v", err)
	}
	_, _ = io.ReadAll(rc)
	if err := rc.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, err := OpenFile(pkg, "content/missing.txt"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("OpenFile(missing) error = %v, want ErrFileNotFound", err)
	}
}

func TestExtractPackage(t *testing.T) {
	tests := []struct {
		name       string
		mode       PackageSaveMode
		wantNupkg  bool
		wantNuspec bool
	}{
		{"zipped", PackageSaveModeZipped, true, false},
		{"unzipped", PackageSaveModeUnzipped, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			resolver := NewPackagePathResolver(root, true)
			pkg := samplePackage()

			if _, err := ExtractPackage(context.Background(), pkg, resolver, tt.mode); err != nil {
				t.Fatalf("ExtractPackage() error = %v", err)
			}

			installPath := filepath.Join(root, "Sample.1.0.0")
			if installPath != resolver.GetInstallPath(pkg.Identity) {
				t.Fatalf("GetInstallPath() = %q", resolver.GetInstallPath(pkg.Identity))
			}
			assertExists(t, filepath.Join(installPath, "lib", "net40", "Sample.dll"), true)
			assertExists(t, resolver.GetPackageFilePath(pkg.Identity), tt.wantNupkg)
			assertExists(t, resolver.GetManifestFilePath(pkg.Identity), tt.wantNuspec)

			if tt.wantNuspec {
				read, err := ReadPackageFolder(installPath)
				if err != nil {
					t.Fatalf("ReadPackageFolder() error = %v", err)
				}
				if !reflect.DeepEqual(read.Files(), pkg.Files()) {
					t.Errorf("ReadPackageFolder() files = %v, want %v", read.Files(), pkg.Files())
				}
			}
		})
	}
}

func TestExtractPackage_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ExtractPackage(ctx, samplePackage(), NewPackagePathResolver(t.TempDir(), true), PackageSaveModeZipped)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ExtractPackage() error = %v, want context.Canceled", err)
	}
}

func TestCopyToFile_SkipsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b.txt")

	copied, err := CopyToFile(strings.NewReader("first"), path)
	if err != nil || !copied {
		t.Fatalf("CopyToFile() = %v, %v", copied, err)
	}
	copied, err = CopyToFile(strings.NewReader("second"), path)
	if err != nil || copied {
		t.Fatalf("second CopyToFile() = %v, %v; want skip", copied, err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "first" {
		t.Errorf("content = %q, want first", data)
	}
}

func TestRemoveEmptyDirs(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(deep, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "keep.txt"), nil, 0644); err != nil {
		t.Fatal(err)
	}

	RemoveEmptyDirs(deep, root)

	assertExists(t, filepath.Join(root, "a", "b"), false)
	assertExists(t, filepath.Join(root, "a"), true)
}

func TestWithFileLock(t *testing.T) {
	target := filepath.Join(t.TempDir(), "Sample.1.0.0")
	ran := false

	err := WithFileLock(context.Background(), target, func() error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Errorf("WithFileLock() = %v, ran = %v", err, ran)
	}
}

func assertExists(t *testing.T, path string, want bool) {
	t.Helper()
	_, err := os.Stat(path)
	if got := err == nil; got != want {
		t.Errorf("exists(%s) = %v, want %v", path, got, want)
	}
}
