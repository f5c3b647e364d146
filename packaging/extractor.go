package packaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/willibrandon/gonuget-vs/core"
)

// PackageSaveMode controls what gets written into an install folder (flags).
type PackageSaveMode int

const (
	// PackageSaveModeNone indicates no save mode.
	PackageSaveModeNone PackageSaveMode = 0
	// PackageSaveModeNuspec extracts the .nuspec file.
	PackageSaveModeNuspec PackageSaveMode = 1 << 0
	// PackageSaveModeNupkg saves the .nupkg file.
	PackageSaveModeNupkg PackageSaveMode = 1 << 1
	// PackageSaveModeFiles extracts package files.
	PackageSaveModeFiles PackageSaveMode = 1 << 2

	// PackageSaveModeZipped keeps the archive next to the extracted files.
	PackageSaveModeZipped = PackageSaveModeNupkg | PackageSaveModeFiles

	// PackageSaveModeUnzipped writes the manifest and files but no archive.
	PackageSaveModeUnzipped = PackageSaveModeNuspec | PackageSaveModeFiles
)

// HasFlag checks if a specific flag is set.
func (m PackageSaveMode) HasFlag(flag PackageSaveMode) bool {
	return m&flag != 0
}

// ExtractPackage materializes pkg into its {ID}.{Version} folder under the
// resolver root and returns the written paths. The folder is locked for the
// duration. The .nupkg is written last and marks a complete install.
func ExtractPackage(ctx context.Context, pkg *core.Package, resolver *PackagePathResolver, mode PackageSaveMode) ([]string, error) {
	installPath := resolver.GetInstallPath(pkg.Identity)
	if err := os.MkdirAll(installPath, 0755); err != nil {
		return nil, fmt.Errorf("create install directory: %w", err)
	}

	var extracted []string
	err := WithFileLock(ctx, installPath, func() error {
		if mode.HasFlag(PackageSaveModeNuspec) {
			manifestPath := resolver.GetManifestFilePath(pkg.Identity)
			file, err := CreateFile(manifestPath)
			if err != nil {
				return fmt.Errorf("create nuspec: %w", err)
			}
			if err := NewNuspec(pkg).Write(file); err != nil {
				_ = file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			extracted = append(extracted, manifestPath)
		}

		if mode.HasFlag(PackageSaveModeFiles) {
			for _, name := range pkg.Files() {
				if err := ctx.Err(); err != nil {
					return err
				}
				target := filepath.Join(installPath, filepath.FromSlash(NormalizePath(name)))
				if err := extractFile(pkg, name, target); err != nil {
					return fmt.Errorf("extract %s: %w", name, err)
				}
				extracted = append(extracted, target)
			}
		}

		if mode.HasFlag(PackageSaveModeNupkg) {
			nupkgPath := resolver.GetPackageFilePath(pkg.Identity)
			if err := CopyPackage(nupkgPath, pkg); err != nil {
				return fmt.Errorf("save nupkg: %w", err)
			}
			extracted = append(extracted, nupkgPath)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return extracted, nil
}

func extractFile(pkg *core.Package, name, target string) error {
	src, err := OpenFile(pkg, name)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	_, err = CopyToFile(src, target)
	return err
}
