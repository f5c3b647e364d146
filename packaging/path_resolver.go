package packaging

import (
	"fmt"
	"path/filepath"

	"github.com/willibrandon/gonuget-vs/core"
)

// PackagePathResolver resolves paths for the packages.config layout:
// {root}/{ID}.{Version}/{ID}.{Version}.nupkg.
type PackagePathResolver struct {
	rootDirectory      string
	useSideBySidePaths bool // Include version in directory name
}

// NewPackagePathResolver creates a path resolver rooted at rootDirectory.
func NewPackagePathResolver(rootDirectory string, useSideBySidePaths bool) *PackagePathResolver {
	return &PackagePathResolver{
		rootDirectory:      rootDirectory,
		useSideBySidePaths: useSideBySidePaths,
	}
}

// Root returns the repository root directory.
func (r *PackagePathResolver) Root() string {
	return r.rootDirectory
}

// GetPackageDirectoryName returns the directory name for a package.
// Format: {ID}.{Version} (if useSideBySidePaths) or {ID} (otherwise)
func (r *PackagePathResolver) GetPackageDirectoryName(identity core.PackageIdentity) string {
	if r.useSideBySidePaths {
		return fmt.Sprintf("%s.%s", identity.ID, identity.Version.String())
	}
	return identity.ID
}

// GetInstallPath returns full installation path.
func (r *PackagePathResolver) GetInstallPath(identity core.PackageIdentity) string {
	return filepath.Join(r.rootDirectory, r.GetPackageDirectoryName(identity))
}

// GetPackageFileName returns the .nupkg file name.
// Format: {ID}.{Version}.nupkg
func (r *PackagePathResolver) GetPackageFileName(identity core.PackageIdentity) string {
	return fmt.Sprintf("%s.%s%s", identity.ID, identity.Version.String(), PackageExtension)
}

// GetPackageFilePath returns full path to .nupkg file.
func (r *PackagePathResolver) GetPackageFilePath(identity core.PackageIdentity) string {
	return filepath.Join(r.GetInstallPath(identity), r.GetPackageFileName(identity))
}

// GetManifestFileName returns the .nuspec file name.
// Format: {ID}.nuspec (preserves original casing)
func (r *PackagePathResolver) GetManifestFileName(identity core.PackageIdentity) string {
	return identity.ID + ManifestExtension
}

// GetManifestFilePath returns full path to the extracted .nuspec file.
func (r *PackagePathResolver) GetManifestFilePath(identity core.PackageIdentity) string {
	return filepath.Join(r.GetInstallPath(identity), r.GetManifestFileName(identity))
}
