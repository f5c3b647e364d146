package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/willibrandon/gonuget-vs/version"
)

// sliceRepository is a minimal read-only Repository over a slice.
type sliceRepository struct {
	packages []*Package
}

func (r *sliceRepository) Source() string { return "slice" }

func (r *sliceRepository) GetPackages(context.Context) ([]*Package, error) {
	return r.packages, nil
}

func (r *sliceRepository) FindPackage(_ context.Context, id string, ver *version.NuGetVersion) (*Package, error) {
	for _, p := range r.packages {
		if p.Identity.Equals(NewPackageIdentity(id, ver)) {
			return p, nil
		}
	}
	return nil, ErrPackageNotFound
}

func (r *sliceRepository) FindPackagesByID(_ context.Context, id string) ([]*Package, error) {
	var out []*Package
	for _, p := range r.packages {
		if strings.EqualFold(p.ID(), id) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *sliceRepository) Exists(ctx context.Context, id string, ver *version.NuGetVersion) (bool, error) {
	_, err := r.FindPackage(ctx, id, ver)
	return err == nil, nil
}

func (r *sliceRepository) AddPackage(context.Context, *Package) error    { return nil }
func (r *sliceRepository) RemovePackage(context.Context, *Package) error { return nil }
func (r *sliceRepository) StartOperation(string, string) OperationScope  { return NopScope{} }

func TestResolveLowest(t *testing.T) {
	repo := &sliceRepository{packages: []*Package{
		newPackage("A", "1.0"),
		newPackage("A", "1.5"),
		newPackage("A", "2.0"),
		newPackage("A", "1.2-beta"),
	}}
	ctx := context.Background()

	tests := []struct {
		name       string
		rangeText  string
		prerelease bool
		want       string
	}{
		{"at least", "1.1", false, "1.5"},
		{"exact", "[2.0]", false, "2.0"},
		{"prerelease allowed", "1.1", true, "1.2-beta"},
		{"unbounded", "", false, "1.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dep := PackageDependency{ID: "a", VersionRange: version.MustParseRange(tt.rangeText)}
			pkg, err := ResolveLowest(ctx, repo, dep, tt.prerelease)
			if err != nil {
				t.Fatalf("ResolveLowest() error = %v", err)
			}
			if pkg.Version().String() != tt.want {
				t.Errorf("ResolveLowest() = %s, want %s", pkg.Version(), tt.want)
			}
		})
	}

	_, err := ResolveLowest(ctx, repo, PackageDependency{ID: "A", VersionRange: version.MustParseRange("3.0")}, false)
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("ResolveLowest() unsatisfiable error = %v, want ErrPackageNotFound", err)
	}
}

func TestFindPackage(t *testing.T) {
	ctx := context.Background()
	repo := &sliceRepository{packages: []*Package{
		newPackage("A", "1.0"),
		newPackage("A", "2.0"),
		newPackage("A", "3.0-rc"),
		newPackage("Pre", "1.0-alpha"),
	}}

	pkg, err := FindPackage(ctx, repo, "A", nil, false)
	if err != nil || pkg.Version().String() != "2.0" {
		t.Errorf("FindPackage(A, nil) = %v, %v; want 2.0", pkg, err)
	}

	pkg, err = FindPackage(ctx, repo, "A", nil, true)
	if err != nil || pkg.Version().String() != "3.0-rc" {
		t.Errorf("FindPackage(A, nil, prerelease) = %v, %v; want 3.0-rc", pkg, err)
	}

	pkg, err = FindPackage(ctx, repo, "Pre", nil, false)
	if err != nil || pkg.Version().String() != "1.0-alpha" {
		t.Errorf("FindPackage(Pre, nil) = %v, %v; want 1.0-alpha fallback", pkg, err)
	}

	_, err = FindPackage(ctx, repo, "A", version.MustParse("9.0"), false)
	var unknown *UnknownPackageError
	if !errors.As(err, &unknown) || unknown.Source != "slice" {
		t.Errorf("FindPackage(A, 9.0) error = %v, want UnknownPackageError", err)
	}
}

func TestErrors(t *testing.T) {
	batch := &BatchPackageError{
		RepositoryPath: `C:\Preinstalled`,
		Failures: []PackageFailure{
			{ID: "A", Version: version.MustParse("1.0"), Err: errors.New("boom")},
			{ID: "B", Version: version.MustParse("2.0"), Err: &UnknownPackageError{ID: "B"}},
		},
	}

	want := "The following packages failed to install from 'C:\\Preinstalled':\n\nA.1.0 : boom\nB.2.0 : Unable to find package 'B'."
	if batch.Error() != want {
		t.Errorf("Error() = %q, want %q", batch.Error(), want)
	}
	if !errors.Is(batch, ErrPackageNotFound) {
		t.Error("BatchPackageError should unwrap to ErrPackageNotFound")
	}

	if !errors.Is(&UnknownProjectError{Name: "Web"}, ErrProjectNotFound) {
		t.Error("UnknownProjectError should match ErrProjectNotFound")
	}
	if !errors.Is(&DependentsError{Package: newPackage("A", "1.0")}, ErrInvalidOperation) {
		t.Error("DependentsError should match ErrInvalidOperation")
	}
}
