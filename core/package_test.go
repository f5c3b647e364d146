package core

import (
	"testing"

	"github.com/willibrandon/gonuget-vs/version"
)

func TestPackageIdentity_Equals(t *testing.T) {
	tests := []struct {
		name   string
		p1     PackageIdentity
		p2     PackageIdentity
		equals bool
	}{
		{
			name:   "same ID and version",
			p1:     NewPackageIdentity("Newtonsoft.Json", version.MustParse("13.0.1")),
			p2:     NewPackageIdentity("Newtonsoft.Json", version.MustParse("13.0.1")),
			equals: true,
		},
		{
			name:   "case-insensitive ID",
			p1:     NewPackageIdentity("Newtonsoft.Json", version.MustParse("13.0.1")),
			p2:     NewPackageIdentity("newtonsoft.json", version.MustParse("13.0.1")),
			equals: true,
		},
		{
			name:   "equivalent versions",
			p1:     NewPackageIdentity("jQuery", version.MustParse("1.8")),
			p2:     NewPackageIdentity("jQuery", version.MustParse("1.8.0")),
			equals: true,
		},
		{
			name:   "different version",
			p1:     NewPackageIdentity("Newtonsoft.Json", version.MustParse("13.0.1")),
			p2:     NewPackageIdentity("Newtonsoft.Json", version.MustParse("13.0.2")),
			equals: false,
		},
		{
			name:   "different ID",
			p1:     NewPackageIdentity("Newtonsoft.Json", version.MustParse("13.0.1")),
			p2:     NewPackageIdentity("Serilog", version.MustParse("13.0.1")),
			equals: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p1.Equals(tt.p2); got != tt.equals {
				t.Errorf("Equals() = %v, want %v", got, tt.equals)
			}
		})
	}
}

func TestPackageIdentity_Key(t *testing.T) {
	a := NewPackageIdentity("jQuery", version.MustParse("1.8"))
	b := NewPackageIdentity("JQUERY", version.MustParse("1.8.0"))
	if a.Key() != b.Key() {
		t.Errorf("Key() differs for equal identities: %q vs %q", a.Key(), b.Key())
	}
	if got := NewPackageIdentity("jQuery", nil).Key(); got != "jquery" {
		t.Errorf("Key() without version = %q, want jquery", got)
	}
}

func TestIsProjectLevel(t *testing.T) {
	tests := []struct {
		name string
		pkg  *Package
		want bool
	}{
		{"assemblies", &Package{AssemblyReferences: []string{"lib/net40/A.dll"}}, true},
		{"framework assemblies", &Package{FrameworkAssemblies: []string{"System.Web"}}, true},
		{"content", &Package{ContentFiles: []string{"content/Scripts/a.js"}}, true},
		{"tools only", &Package{ToolFiles: []string{"tools/init.ps1"}}, false},
		{"empty", &Package{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsProjectLevel(tt.pkg); got != tt.want {
				t.Errorf("IsProjectLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPackage_HasScript(t *testing.T) {
	pkg := &Package{ToolFiles: []string{`tools\Install.ps1`, "tools/readme.txt"}}
	if !pkg.HasScript("install.ps1") {
		t.Error("HasScript(install.ps1) = false, want true")
	}
	if pkg.HasScript("uninstall.ps1") {
		t.Error("HasScript(uninstall.ps1) = true, want false")
	}
}

func TestDistinct_KeepsFirst(t *testing.T) {
	first := newPackage("A", "1.0")
	first.Title = "first"
	dup := newPackage("a", "1.0.0")
	other := newPackage("A", "2.0")

	got := Distinct([]*Package{first, dup, other})
	if len(got) != 2 {
		t.Fatalf("Distinct() returned %d packages, want 2", len(got))
	}
	if got[0] != first || got[1] != other {
		t.Errorf("Distinct() = %v, want [A 1.0, A 2.0] keeping the first instance", got)
	}
}

func TestReduce_CancelsPairs(t *testing.T) {
	a := newPackage("A", "1.0")
	b := newPackage("B", "1.0")

	got := Reduce([]PackageOperation{
		InstallOperation(a),
		InstallOperation(b),
		UninstallOperation(a),
	})

	if len(got) != 1 || got[0].Package != b {
		t.Errorf("Reduce() = %v, want [Install B 1.0]", got)
	}
	if got[0].String() != "Install B 1.0" {
		t.Errorf("String() = %q", got[0].String())
	}
}

func newPackage(id, ver string) *Package {
	return &Package{Identity: NewPackageIdentity(id, version.MustParse(ver))}
}
