package packaging

import "errors"

var (
	// ErrInvalidPackage indicates the package structure is invalid
	ErrInvalidPackage = errors.New("invalid package structure")

	// ErrNuspecNotFound indicates no .nuspec file was found
	ErrNuspecNotFound = errors.New("nuspec file not found")

	// ErrMultipleNuspecs indicates multiple .nuspec files were found
	ErrMultipleNuspecs = errors.New("multiple nuspec files found")

	// ErrInvalidPath indicates an invalid file path (e.g., path traversal)
	ErrInvalidPath = errors.New("invalid file path")

	// ErrFileNotFound indicates a package file does not exist
	ErrFileNotFound = errors.New("package file not found")
)
