package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/willibrandon/gonuget-vs/version"
)

var (
	// ErrPackageNotFound is reported when a package cannot be resolved.
	ErrPackageNotFound = errors.New("package not found")

	// ErrProjectNotFound is reported when a project name does not resolve.
	ErrProjectNotFound = errors.New("project not found")

	// ErrInvalidOperation marks failures of a single package operation that a
	// batch caller may collect and continue past.
	ErrInvalidOperation = errors.New("invalid package operation")
)

// UnknownPackageError is returned when a package id (and version) cannot be
// found in the repository an operation was asked to use.
type UnknownPackageError struct {
	ID      string
	Version *version.NuGetVersion
	Source  string
}

func (e *UnknownPackageError) Error() string {
	var b strings.Builder
	if e.Version != nil {
		fmt.Fprintf(&b, "Unable to find version '%s' of package '%s'", e.Version, e.ID)
	} else {
		fmt.Fprintf(&b, "Unable to find package '%s'", e.ID)
	}
	if e.Source != "" {
		fmt.Fprintf(&b, " in '%s'", e.Source)
	}
	b.WriteByte('.')
	return b.String()
}

// Is matches ErrPackageNotFound and ErrInvalidOperation.
func (e *UnknownPackageError) Is(target error) bool {
	return target == ErrPackageNotFound || target == ErrInvalidOperation
}

// UnknownProjectError is returned when a project name does not resolve to
// exactly one project.
type UnknownProjectError struct {
	Name string
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("Project '%s' is not found.", e.Name)
}

// Is matches ErrProjectNotFound.
func (e *UnknownProjectError) Is(target error) bool {
	return target == ErrProjectNotFound
}

// UnknownPackageInProjectError is returned when an uninstall targets a
// project-level package that is installed, but only in other projects.
type UnknownPackageInProjectError struct {
	ID      string
	Version *version.NuGetVersion
	Project string
}

func (e *UnknownPackageInProjectError) Error() string {
	if e.Version != nil {
		return fmt.Sprintf("Unable to find package '%s %s' in project '%s'.", e.ID, e.Version, e.Project)
	}
	return fmt.Sprintf("Unable to find package '%s' in project '%s'.", e.ID, e.Project)
}

// Is matches ErrPackageNotFound and ErrInvalidOperation.
func (e *UnknownPackageInProjectError) Is(target error) bool {
	return target == ErrPackageNotFound || target == ErrInvalidOperation
}

// AmbiguousMatchError is returned when an id without a version matches more
// than one installed package.
type AmbiguousMatchError struct {
	ID       string
	Versions []*version.NuGetVersion
	Project  string
}

func (e *AmbiguousMatchError) Error() string {
	versions := make([]string, len(e.Versions))
	for i, v := range e.Versions {
		versions[i] = v.String()
	}
	where := "the solution"
	if e.Project != "" {
		where = "project '" + e.Project + "'"
	}
	return fmt.Sprintf("Multiple versions of '%s' are installed in %s (%s). Specify a version.",
		e.ID, where, strings.Join(versions, ", "))
}

// Is matches ErrInvalidOperation.
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// DependentsError is returned when a package cannot be removed because other
// installed packages depend on it.
type DependentsError struct {
	Package    *Package
	Dependents []*Package
}

func (e *DependentsError) Error() string {
	names := make([]string, len(e.Dependents))
	for i, d := range e.Dependents {
		names[i] = "'" + d.String() + "'"
	}
	return fmt.Sprintf("Unable to uninstall '%s' because %s depends on it.",
		e.Package, strings.Join(names, ", "))
}

// Is matches ErrInvalidOperation.
func (e *DependentsError) Is(target error) bool {
	return target == ErrInvalidOperation
}

// PackageFailure records why one package of a batch failed.
type PackageFailure struct {
	ID      string
	Version *version.NuGetVersion
	Err     error
}

// String returns "id.version : reason".
func (f PackageFailure) String() string {
	return fmt.Sprintf("%s.%s : %v", f.ID, f.Version, f.Err)
}

// BatchPackageError aggregates every failure of a batch install.
type BatchPackageError struct {
	RepositoryPath string
	Failures       []PackageFailure
}

func (e *BatchPackageError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following packages failed to install from '%s':\n\n", e.RepositoryPath)
	for i, f := range e.Failures {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(f.String())
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is / errors.As.
func (e *BatchPackageError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
