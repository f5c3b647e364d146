package packaging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultLockTimeout is the maximum time to wait for a lock
	DefaultLockTimeout = 2 * time.Minute

	// LockRetryDelay is the retry delay for lock acquisition
	LockRetryDelay = 100 * time.Millisecond

	// LockFileExtension is the lock file extension
	LockFileExtension = ".lock"
)

// FileLock is an exclusive cross-process lock on a {target}.lock file.
type FileLock struct {
	lockFilePath string
	lockFile     *os.File
}

// acquireFileLock polls for the lock on targetPath until it is free, the
// context ends or DefaultLockTimeout passes.
func acquireFileLock(ctx context.Context, targetPath string) (unlock func(), err error) {
	lockFilePath := targetPath + LockFileExtension
	if err := os.MkdirAll(filepath.Dir(lockFilePath), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	deadline := time.Now().Add(DefaultLockTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("lock acquisition cancelled: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout acquiring lock for %s", targetPath)
		}

		lock, err := tryAcquireLock(lockFilePath)
		if err == nil {
			return func() { releaseLock(lock) }, nil
		}

		select {
		case <-ctx.Done():
		case <-time.After(LockRetryDelay):
		}
	}
}

// WithFileLock runs fn while holding the lock for targetPath. Repository
// folders and registry files written by several IDE processes go through it.
func WithFileLock(ctx context.Context, targetPath string, fn func() error) error {
	unlock, err := acquireFileLock(ctx, targetPath)
	if err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer unlock()

	return fn()
}
