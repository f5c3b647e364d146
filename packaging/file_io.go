package packaging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// UnixFileMode is the permission given to extracted files (rwxrw-rw-).
const UnixFileMode os.FileMode = 0766

// CreateFile creates (or truncates) a file, creating parent directories.
// On Unix the file gets UnixFileMode so tools shipped in packages stay
// executable.
func CreateFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	if runtime.GOOS == "windows" {
		return os.Create(path)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, UnixFileMode); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("chmod: %w", err)
	}
	return file, nil
}

// CopyToFile copies stream to fileFullPath. An existing file is left
// untouched and reported with copied == false.
func CopyToFile(stream io.Reader, fileFullPath string) (copied bool, err error) {
	if _, err := os.Stat(fileFullPath); err == nil {
		return false, nil
	}

	file, err := CreateFile(fileFullPath)
	if err != nil {
		return false, fmt.Errorf("create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := io.Copy(file, stream); err != nil {
		return false, fmt.Errorf("copy stream: %w", err)
	}
	return true, nil
}

// RemoveEmptyDirs removes dir and its parents up to (not including) stop
// while they are empty.
func RemoveEmptyDirs(dir, stop string) {
	stop = filepath.Clean(stop)
	for dir = filepath.Clean(dir); dir != stop && len(dir) > len(stop); dir = filepath.Dir(dir) {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
	}
}
